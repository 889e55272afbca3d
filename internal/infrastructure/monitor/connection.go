package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/greenbite/internal/infrastructure/buffer"
)

// PingFunc checks one dependency. A nil PingFunc means the dependency is not
// used by the running store driver and always counts as healthy.
type PingFunc func(ctx context.Context) error

// BacklogFunc reports the number of undelivered outbox messages.
type BacklogFunc func(ctx context.Context) (int, error)

type Dependencies struct {
	Store    string
	Postgres PingFunc
	Redis    PingFunc
	Buffer   *buffer.Store
	Outbox   BacklogFunc
}

type Monitor struct {
	deps Dependencies

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(deps Dependencies, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		deps:     deps,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every check once and stores the result.
func (m *Monitor) Refresh() {
	bufferOK, bufferSize := m.checkBuffer()
	status := Status{
		Store:         m.deps.Store,
		PostgreSQL:    m.ping("postgres", m.deps.Postgres, 3*time.Second),
		Redis:         m.ping("redis", m.deps.Redis, 2*time.Second),
		Buffer:        bufferOK,
		BufferSize:    bufferSize,
		OutboxPending: m.checkOutbox(),
		LastCheck:     time.Now(),
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.Healthy() != status.Healthy() {
		m.logger.Info("dependency status changed",
			zap.Bool("online", status.Healthy()),
			zap.Bool("postgresql", status.PostgreSQL),
			zap.Bool("redis", status.Redis))
	}
}

func (m *Monitor) ping(name string, fn PingFunc, timeout time.Duration) bool {
	if fn == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		m.logger.Debug("ping failed", zap.String("dependency", name), zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkBuffer() (bool, int) {
	if m.deps.Buffer == nil {
		return false, 0
	}
	size, err := m.deps.Buffer.Size()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}

func (m *Monitor) checkOutbox() int {
	if m.deps.Outbox == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := m.deps.Outbox(ctx)
	if err != nil {
		m.logger.Warn("outbox backlog check failed", zap.Error(err))
		return 0
	}
	return n
}
