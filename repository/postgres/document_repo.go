package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

type documentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates a Postgres-backed Directory. Documents live
// in a single JSONB table keyed by path.
func NewDocumentRepository(pool *pgxpool.Pool) repository.Directory {
	return &documentRepository{pool: pool}
}

func (r *documentRepository) Get(ctx context.Context, path string) (*domain.Document, error) {
	return getDocument(ctx, r.pool, path, false)
}

func (r *documentRepository) List(ctx context.Context, collection string) ([]domain.Document, error) {
	const query = `
	SELECT path, data, created_at, updated_at
	FROM documents
	WHERE collection = $1
	ORDER BY path
	`
	rows, err := r.pool.Query(ctx, query, collection)
	if err != nil {
		return nil, domain.Unavailable("list documents", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *documentRepository) Set(ctx context.Context, path string, value interface{}) error {
	return setDocument(ctx, r.pool, path, value)
}

func (r *documentRepository) Patch(ctx context.Context, path string, fields map[string]interface{}) error {
	return patchDocument(ctx, r.pool, path, fields)
}

func (r *documentRepository) Delete(ctx context.Context, path string) error {
	return deleteDocument(ctx, r.pool, path)
}

func (r *documentRepository) RunTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.Unavailable("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&documentTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Unavailable("commit transaction", err)
	}
	return nil
}

type documentTx struct {
	tx pgx.Tx
}

// Get locks the row so a concurrent transaction on the same path waits.
func (t *documentTx) Get(ctx context.Context, path string) (*domain.Document, error) {
	return getDocument(ctx, t.tx, path, true)
}

func (t *documentTx) Set(ctx context.Context, path string, value interface{}) error {
	return setDocument(ctx, t.tx, path, value)
}

func (t *documentTx) Patch(ctx context.Context, path string, fields map[string]interface{}) error {
	return patchDocument(ctx, t.tx, path, fields)
}

func (t *documentTx) Delete(ctx context.Context, path string) error {
	return deleteDocument(ctx, t.tx, path)
}

func (t *documentTx) Enqueue(ctx context.Context, msg *domain.OutboxMessage) error {
	return insertOutbox(ctx, t.tx, msg)
}

func getDocument(ctx context.Context, q querier, path string, lock bool) (*domain.Document, error) {
	query := `
	SELECT path, data, created_at, updated_at
	FROM documents
	WHERE path = $1
	`
	if lock {
		query += ` FOR UPDATE`
	}
	return scanDocument(q.QueryRow(ctx, query, path))
}

func setDocument(ctx context.Context, q querier, path string, value interface{}) error {
	if !domain.ValidPath(path) {
		return domain.Invalid("invalid document path %q", path)
	}
	data, err := marshalValue(value)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "encode document", err)
	}

	const query = `
	INSERT INTO documents (path, collection, data, created_at, updated_at)
	VALUES ($1, $2, $3::jsonb, NOW(), NOW())
	ON CONFLICT (path) DO UPDATE
	SET data = EXCLUDED.data,
		updated_at = NOW()
	`
	collection, _ := domain.SplitPath(path)
	if _, err := q.Exec(ctx, query, path, collection, data); err != nil {
		return domain.Unavailable("write document", err)
	}
	return nil
}

func patchDocument(ctx context.Context, q querier, path string, fields map[string]interface{}) error {
	data, err := marshalValue(fields)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "encode patch", err)
	}

	const query = `
	UPDATE documents
	SET data = data || $2::jsonb,
		updated_at = NOW()
	WHERE path = $1
	`
	tag, err := q.Exec(ctx, query, path, data)
	if err != nil {
		return domain.Unavailable("patch document", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func deleteDocument(ctx context.Context, q querier, path string) error {
	const query = `DELETE FROM documents WHERE path = $1`
	tag, err := q.Exec(ctx, query, path)
	if err != nil {
		return domain.Unavailable("delete document", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Document, error) {
	var doc domain.Document
	var data []byte
	if err := row.Scan(&doc.Path, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, domain.Unavailable("read document", err)
	}
	doc.Data = make([]byte, len(data))
	copy(doc.Data, data)
	return &doc, nil
}
