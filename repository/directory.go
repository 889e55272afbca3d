package repository

import (
	"context"

	"github.com/fastygo/greenbite/domain"
)

// Directory is the path-addressed profile and document store.
// Values passed to Set are JSON-encoded; Patch merges top-level fields.
// Get, Patch and Delete return domain.ErrDocumentNotFound for absent paths.
// Delete never cascades to sub-collections.
type Directory interface {
	Get(ctx context.Context, path string) (*domain.Document, error)
	List(ctx context.Context, collection string) ([]domain.Document, error)
	Set(ctx context.Context, path string, value interface{}) error
	Patch(ctx context.Context, path string, fields map[string]interface{}) error
	Delete(ctx context.Context, path string) error
	RunTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is a conditional multi-document write. Reads observe earlier writes of
// the same transaction; nothing is visible to others until fn returns nil.
type Tx interface {
	Get(ctx context.Context, path string) (*domain.Document, error)
	Set(ctx context.Context, path string, value interface{}) error
	Patch(ctx context.Context, path string, fields map[string]interface{}) error
	Delete(ctx context.Context, path string) error
	Enqueue(ctx context.Context, msg *domain.OutboxMessage) error
}
