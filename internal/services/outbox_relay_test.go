package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository/memory"
	"github.com/fastygo/greenbite/usecase"
)

type relayMetrics struct {
	mu      sync.Mutex
	results []string
	pending int
}

func (m *relayMetrics) Notification(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}

func (m *relayMetrics) OutboxPending(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = n
}

type countingReconciler struct{ calls int }

func (r *countingReconciler) Reconcile(ctx context.Context) (int, error) {
	r.calls++
	return 0, nil
}

func newRelay(store *memory.Store, dispatcher *usecase.Dispatcher, metrics RelayMetrics, clock *time.Time) *OutboxRelay {
	r := NewOutboxRelay(store, dispatcher, nil, metrics, nil, OutboxRelayConfig{
		Interval:    time.Second,
		MaxAttempts: 3,
		BaseBackoff: time.Minute,
		MaxBackoff:  3 * time.Minute,
		Lease:       10 * time.Second,
	})
	r.now = func() time.Time { return *clock }
	return r
}

func approvalMessage(id string, at time.Time) *domain.OutboxMessage {
	payload, _ := json.Marshal(domain.ApprovalEmail{Email: "ngo@example.org", NgoName: "Helpers"})
	return &domain.OutboxMessage{ID: id, Kind: domain.OutboxApprovalEmail, Payload: payload, NextAttemptAt: at}
}

func TestOutboxRelayDeliversOnce(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	require.NoError(t, store.Enqueue(ctx, approvalMessage("m1", clock)))

	sent := 0
	dispatcher := usecase.NewDispatcher()
	dispatcher.RegisterCommand(domain.OutboxApprovalEmail, func(ctx context.Context, payload json.RawMessage) error {
		sent++
		return nil
	})
	metrics := &relayMetrics{}
	relay := newRelay(store, dispatcher, metrics, &clock)

	delivered, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	clock = clock.Add(time.Hour)
	delivered, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"sent"}, metrics.results)
	assert.Zero(t, metrics.pending)
}

func TestOutboxRelayBacksOffThenGivesUp(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	require.NoError(t, store.Enqueue(ctx, approvalMessage("m1", clock)))

	dispatcher := usecase.NewDispatcher()
	dispatcher.RegisterCommand(domain.OutboxApprovalEmail, func(ctx context.Context, payload json.RawMessage) error {
		return errors.New("relay down")
	})
	metrics := &relayMetrics{}
	relay := newRelay(store, dispatcher, metrics, &clock)

	_, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	msg, err := store.Message(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, msg.Attempts)
	assert.Equal(t, clock.Add(time.Minute), msg.NextAttemptAt)

	// not due yet
	clock = clock.Add(30 * time.Second)
	_, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	msg, _ = store.Message(ctx, "m1")
	assert.Equal(t, 1, msg.Attempts)

	clock = clock.Add(time.Minute)
	_, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	msg, _ = store.Message(ctx, "m1")
	assert.Equal(t, 2, msg.Attempts)
	assert.Equal(t, clock.Add(2*time.Minute), msg.NextAttemptAt)

	clock = clock.Add(3 * time.Minute)
	_, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	msg, _ = store.Message(ctx, "m1")
	assert.Equal(t, domain.OutboxDead, msg.State)
	assert.Equal(t, "relay down", msg.LastError)
	assert.Equal(t, []string{"retry", "retry", "dead"}, metrics.results)
}

func TestOutboxRelayUnknownKindIsDead(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	require.NoError(t, store.Enqueue(ctx, &domain.OutboxMessage{ID: "m1", Kind: "ngo.unknown", NextAttemptAt: clock}))

	relay := newRelay(store, usecase.NewDispatcher(), nil, &clock)
	reconciler := &countingReconciler{}
	relay.reconciler = reconciler

	_, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	msg, err := store.Message(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxDead, msg.State)
	assert.Equal(t, 1, reconciler.calls)
}

func TestOutboxRelayBackoff(t *testing.T) {
	clock := time.Now()
	relay := newRelay(memory.NewStore(), usecase.NewDispatcher(), nil, &clock)

	assert.Equal(t, time.Minute, relay.Backoff(0))
	assert.Equal(t, time.Minute, relay.Backoff(1))
	assert.Equal(t, 2*time.Minute, relay.Backoff(2))
	assert.Equal(t, 3*time.Minute, relay.Backoff(3))
	assert.Equal(t, 3*time.Minute, relay.Backoff(10))
}
