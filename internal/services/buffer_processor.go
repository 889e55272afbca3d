package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/internal/infrastructure/buffer"
	"github.com/fastygo/greenbite/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// Retention bounds how long a write may wait in the buffer. Zero keeps writes forever.
	Retention time.Duration
}

// BufferProcessor replays buffered directory writes once the store is reachable again.
type BufferProcessor struct {
	store   *buffer.Store
	monitor ConnectionHealth
	dir     repository.Directory
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	dir repository.Directory,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	cfg.Interval = clampInterval(cfg.Interval)
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:   store,
		monitor: monitor,
		dir:     dir,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	scheduleEvery(bp.cron, cfg.Interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
		bp.Prune(time.Now())
	})

	return bp
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started")
}

// Stop gracefully stops the scheduler.
func (bp *BufferProcessor) Stop(ctx context.Context) {
	if bp == nil || bp.cron == nil {
		return
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	bp.logger.Info("buffer processor stopped")
}

// Drain processes buffered items synchronously.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := bp.store.GetBatch(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	// a path whose older write failed is skipped so writes apply in order
	blocked := make(map[string]bool)
	for _, item := range items {
		if blocked[item.Path] {
			continue
		}
		if err := bp.processItem(ctx, item); err != nil {
			blocked[item.Path] = true
			bp.logger.Error("failed to process buffer item",
				zap.String("item_id", item.ID),
				zap.String("entity", item.Entity),
				zap.Error(err))

			item.Retries++
			if item.Retries >= bp.cfg.MaxRetries {
				bp.logger.Warn("dropping buffer item (max retries reached)",
					zap.String("item_id", item.ID),
					zap.String("path", item.Path))
				_ = bp.store.Remove(item)
				continue
			}
			if err := bp.store.Requeue(item); err != nil {
				bp.logger.Error("failed to requeue buffer item", zap.Error(err))
			}
			continue
		}

		if err := bp.store.Remove(item); err != nil {
			bp.logger.Warn("failed to purge processed buffer item", zap.Error(err))
		}
	}
	return nil
}

// Prune drops writes that outlived the retention window.
func (bp *BufferProcessor) Prune(now time.Time) int {
	if bp == nil || bp.store == nil || bp.cfg.Retention <= 0 {
		return 0
	}
	removed, err := bp.store.Cleanup(now.Add(-bp.cfg.Retention))
	if err != nil {
		bp.logger.Error("buffer cleanup failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		bp.logger.Warn("expired buffered writes dropped", zap.Int("count", removed), zap.Duration("retention", bp.cfg.Retention))
	}
	return removed
}

// BufferOperation attempts to run the operation immediately and falls back to persisting it.
func (bp *BufferProcessor) BufferOperation(ctx context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return fmt.Errorf("buffer processor not configured")
	}

	if bp.monitor == nil || bp.monitor.IsOnline() {
		if err := bp.processItem(ctx, item); err == nil {
			return nil
		} else {
			bp.logger.Warn("immediate processing failed, buffering", zap.Error(err))
		}
	}
	if err := bp.store.Enqueue(item); err != nil {
		if errors.Is(err, buffer.ErrFull) {
			return domain.Unavailable("write buffer full", err)
		}
		return err
	}
	return nil
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (bp *BufferProcessor) processItem(ctx context.Context, item buffer.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if bp.dir == nil {
		return fmt.Errorf("buffer processor has no directory")
	}
	if !domain.ValidPath(item.Path) {
		return domain.Invalid("invalid buffered path %q", item.Path)
	}

	switch item.Operation {
	case buffer.OperationSet:
		return bp.dir.Set(ctx, item.Path, item.Data)
	case buffer.OperationPatch:
		var fields map[string]interface{}
		if err := json.Unmarshal(item.Data, &fields); err != nil {
			return err
		}
		return bp.dir.Patch(ctx, item.Path, fields)
	case buffer.OperationDelete:
		err := bp.dir.Delete(ctx, item.Path)
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unsupported operation %s", item.Operation)
	}
}
