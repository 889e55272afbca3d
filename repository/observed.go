package repository

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
)

type observedDirectory struct {
	Directory
	feed   ChangeFeed
	logger *zap.Logger
}

// Observe wraps dir so every committed mutation is published on feed.
// Publishing is best effort: a failed publish is logged, the write stands.
func Observe(dir Directory, feed ChangeFeed, logger *zap.Logger) Directory {
	if feed == nil {
		return dir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &observedDirectory{Directory: dir, feed: feed, logger: logger}
}

func (d *observedDirectory) Set(ctx context.Context, path string, value interface{}) error {
	if err := d.Directory.Set(ctx, path, value); err != nil {
		return err
	}
	d.publish(ctx, domain.NewChange(path, domain.ChangeSet, encode(value)))
	return nil
}

func (d *observedDirectory) Patch(ctx context.Context, path string, fields map[string]interface{}) error {
	if err := d.Directory.Patch(ctx, path, fields); err != nil {
		return err
	}
	d.publish(ctx, domain.NewChange(path, domain.ChangePatch, encode(fields)))
	return nil
}

func (d *observedDirectory) Delete(ctx context.Context, path string) error {
	if err := d.Directory.Delete(ctx, path); err != nil {
		return err
	}
	d.publish(ctx, domain.NewChange(path, domain.ChangeDelete, nil))
	return nil
}

func (d *observedDirectory) RunTx(ctx context.Context, fn func(tx Tx) error) error {
	var changes []domain.Change
	err := d.Directory.RunTx(ctx, func(tx Tx) error {
		changes = changes[:0]
		return fn(&recordingTx{Tx: tx, changes: &changes})
	})
	if err != nil {
		return err
	}
	for _, change := range changes {
		d.publish(ctx, change)
	}
	return nil
}

func (d *observedDirectory) publish(ctx context.Context, change domain.Change) {
	if err := d.feed.Publish(ctx, change); err != nil {
		d.logger.Warn("change publish failed", zap.String("path", change.Path), zap.Error(err))
	}
}

type recordingTx struct {
	Tx
	changes *[]domain.Change
}

func (t *recordingTx) Set(ctx context.Context, path string, value interface{}) error {
	if err := t.Tx.Set(ctx, path, value); err != nil {
		return err
	}
	*t.changes = append(*t.changes, domain.NewChange(path, domain.ChangeSet, encode(value)))
	return nil
}

func (t *recordingTx) Patch(ctx context.Context, path string, fields map[string]interface{}) error {
	if err := t.Tx.Patch(ctx, path, fields); err != nil {
		return err
	}
	*t.changes = append(*t.changes, domain.NewChange(path, domain.ChangePatch, encode(fields)))
	return nil
}

func (t *recordingTx) Delete(ctx context.Context, path string) error {
	if err := t.Tx.Delete(ctx, path); err != nil {
		return err
	}
	*t.changes = append(*t.changes, domain.NewChange(path, domain.ChangeDelete, nil))
	return nil
}

func encode(value interface{}) json.RawMessage {
	if raw, ok := value.(json.RawMessage); ok {
		return raw
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return b
}
