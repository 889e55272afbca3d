package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestShutdownRunsHooksInReverseOnce(t *testing.T) {
	m := New(time.Second, nil)

	var order []string
	m.Register("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	m.RegisterStop("second", func() { order = append(order, "second") })
	m.RegisterCloser("third", closerFunc(func() error {
		order = append(order, "third")
		return errors.New("close failed")
	}))

	err := m.Shutdown(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, order)

	assert.Equal(t, err, m.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}

func TestGoCancelsOnFailure(t *testing.T) {
	m := New(time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.Go("server", func() error { return errors.New("listen: address in use") })

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled")
	}
}
