package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/greenbite/repository/memory"
)

func TestSubSecondIntervalsStillSchedule(t *testing.T) {
	store := memory.NewStore()

	relay := NewOutboxRelay(store, nil, nil, nil, nil, OutboxRelayConfig{Interval: 200 * time.Millisecond})
	assert.Equal(t, time.Second, relay.cfg.Interval)
	require.Len(t, relay.cron.Entries(), 1)

	bp := NewBufferProcessor(nil, nil, store, nil, ProcessorConfig{Interval: 500 * time.Millisecond})
	assert.Equal(t, time.Second, bp.cfg.Interval)
	require.Len(t, bp.cron.Entries(), 1)
}

func TestScheduleEveryKeepsLongerIntervals(t *testing.T) {
	assert.Equal(t, 90*time.Second, clampInterval(90*time.Second))
	assert.Equal(t, time.Second, clampInterval(0))
}
