package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

const outboxColumns = `id, kind, payload, state, attempts, last_error, created_at, next_attempt_at, delivered_at`

type outboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository returns a Postgres-backed Outbox sharing the documents database.
func NewOutboxRepository(pool *pgxpool.Pool) repository.Outbox {
	return &outboxRepository{pool: pool}
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg *domain.OutboxMessage) error {
	return insertOutbox(ctx, r.pool, msg)
}

func (r *outboxRepository) Claim(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.OutboxMessage, error) {
	const query = `
	UPDATE outbox
	SET next_attempt_at = $2
	WHERE id IN (
		SELECT id FROM outbox
		WHERE state = 'pending' AND next_attempt_at <= $1
		ORDER BY created_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	)
	RETURNING ` + outboxColumns

	rows, err := r.pool.Query(ctx, query, now, now.Add(lease), clampLimit(limit))
	if err != nil {
		return nil, domain.Unavailable("claim outbox", err)
	}
	defer rows.Close()

	var messages []domain.OutboxMessage
	for rows.Next() {
		msg, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (r *outboxRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	const query = `
	UPDATE outbox
	SET state = 'delivered',
		attempts = attempts + 1,
		last_error = '',
		delivered_at = $2
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return domain.Unavailable("mark outbox delivered", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, lastErr string, next time.Time, dead bool) error {
	const query = `
	UPDATE outbox
	SET attempts = attempts + 1,
		last_error = $2,
		next_attempt_at = $3,
		state = CASE WHEN $4 THEN 'dead' ELSE state END
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, lastErr, next, dead)
	if err != nil {
		return domain.Unavailable("mark outbox failed", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *outboxRepository) Message(ctx context.Context, id string) (*domain.OutboxMessage, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox WHERE id = $1`
	return scanOutbox(r.pool.QueryRow(ctx, query, id))
}

func (r *outboxRepository) PendingCount(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM outbox WHERE state = 'pending'`
	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, domain.Unavailable("count outbox", err)
	}
	return count, nil
}

func insertOutbox(ctx context.Context, q querier, msg *domain.OutboxMessage) error {
	if msg == nil || msg.Kind == "" {
		return domain.ErrInvalidPayload
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.State == "" {
		msg.State = domain.OutboxPending
	}

	const query = `
	INSERT INTO outbox (id, kind, payload, state, attempts, last_error, created_at, next_attempt_at)
	VALUES ($1, $2, $3::jsonb, $4, 0, '', NOW(), COALESCE($5, NOW()))
	RETURNING created_at, next_attempt_at
	`
	if err := q.QueryRow(ctx, query,
		msg.ID,
		msg.Kind,
		[]byte(msg.Payload),
		msg.State,
		nullTime(msg.NextAttemptAt),
	).Scan(&msg.CreatedAt, &msg.NextAttemptAt); err != nil {
		return domain.Unavailable("enqueue outbox", err)
	}
	return nil
}

func scanOutbox(row interface {
	Scan(dest ...interface{}) error
}) (*domain.OutboxMessage, error) {
	var msg domain.OutboxMessage
	var (
		payload   []byte
		delivered *time.Time
	)
	if err := row.Scan(
		&msg.ID,
		&msg.Kind,
		&payload,
		&msg.State,
		&msg.Attempts,
		&msg.LastError,
		&msg.CreatedAt,
		&msg.NextAttemptAt,
		&delivered,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, domain.Unavailable("read outbox", err)
	}
	msg.Payload = make([]byte, len(payload))
	copy(msg.Payload, payload)
	msg.DeliveredAt = delivered
	return &msg, nil
}
