package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
	"github.com/fastygo/greenbite/usecase"
)

// CommandExecutor runs one outbox message.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, kind string, payload json.RawMessage) error
}

// Reconciler repairs state left behind by interrupted workflows.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// RelayMetrics receives delivery outcomes and the backlog size.
type RelayMetrics interface {
	Notification(result string)
	OutboxPending(n int)
}

type OutboxRelayConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Lease       time.Duration
}

// OutboxRelay delivers committed outbox messages on a cron schedule, retrying
// with exponential backoff until MaxAttempts.
type OutboxRelay struct {
	outbox     repository.Outbox
	executor   CommandExecutor
	reconciler Reconciler
	metrics    RelayMetrics
	logger     *zap.Logger
	cron       *cron.Cron
	cfg        OutboxRelayConfig
	now        func() time.Time

	mu      sync.Mutex
	running bool
}

func NewOutboxRelay(
	outbox repository.Outbox,
	executor CommandExecutor,
	reconciler Reconciler,
	metrics RelayMetrics,
	logger *zap.Logger,
	cfg OutboxRelayConfig,
) *OutboxRelay {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	cfg.Interval = clampInterval(cfg.Interval)
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 30 * time.Second
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = 30 * time.Minute
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &OutboxRelay{
		outbox:     outbox,
		executor:   executor,
		reconciler: reconciler,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
		cron:       cron.New(cron.WithSeconds()),
	}

	scheduleEvery(r.cron, cfg.Interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("outbox relay run failed", zap.Error(err))
		}
	})
	return r
}

func (r *OutboxRelay) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("outbox relay started", zap.Duration("interval", r.cfg.Interval))
}

func (r *OutboxRelay) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("outbox relay stopped")
}

// RunOnce reconciles, then delivers one batch of due messages. Overlapping
// runs are skipped. It returns the number of messages delivered.
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return 0, nil
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if r.reconciler != nil {
		if n, err := r.reconciler.Reconcile(ctx); err != nil {
			r.logger.Warn("reconcile sweep failed", zap.Error(err))
		} else if n > 0 {
			r.logger.Info("reconciled stale records", zap.Int("count", n))
		}
	}

	messages, err := r.outbox.Claim(ctx, r.now(), r.cfg.Lease, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range messages {
		if r.deliver(ctx, &messages[i]) {
			delivered++
		}
	}

	if r.metrics != nil {
		if pending, err := r.outbox.PendingCount(ctx); err == nil {
			r.metrics.OutboxPending(pending)
		}
	}
	return delivered, nil
}

func (r *OutboxRelay) deliver(ctx context.Context, msg *domain.OutboxMessage) bool {
	log := r.logger.With(zap.String("message_id", msg.ID), zap.String("kind", msg.Kind))

	err := r.executor.ExecuteCommand(ctx, msg.Kind, msg.Payload)
	if err == nil {
		if markErr := r.outbox.MarkDelivered(ctx, msg.ID, r.now()); markErr != nil {
			log.Error("failed to mark outbox message delivered", zap.Error(markErr))
		}
		r.observe("sent")
		log.Info("outbox message delivered", zap.Int("attempt", msg.Attempts+1))
		return true
	}

	attempts := msg.Attempts + 1
	var unknown usecase.ErrUnknownCommand
	dead := attempts >= r.cfg.MaxAttempts ||
		errors.As(err, &unknown) ||
		domain.IsDomainError(err, domain.ErrCodeInvalid)
	next := r.now().Add(r.Backoff(attempts))
	if markErr := r.outbox.MarkFailed(ctx, msg.ID, err.Error(), next, dead); markErr != nil {
		log.Error("failed to record outbox failure", zap.Error(markErr))
	}

	if dead {
		r.observe("dead")
		log.Error("outbox message abandoned", zap.Int("attempts", attempts), zap.Error(err))
		return false
	}
	r.observe("retry")
	log.Warn("outbox delivery failed, will retry", zap.Int("attempts", attempts), zap.Time("next_attempt_at", next), zap.Error(err))
	return false
}

// Backoff returns the delay before the next attempt after the given number
// of failed attempts: BaseBackoff doubled per attempt, capped at MaxBackoff.
func (r *OutboxRelay) Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := r.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= r.cfg.MaxBackoff {
			return r.cfg.MaxBackoff
		}
	}
	return delay
}

func (r *OutboxRelay) observe(result string) {
	if r.metrics != nil {
		r.metrics.Notification(result)
	}
}
