package repository

import (
	"context"
	"time"

	"github.com/fastygo/greenbite/domain"
)

// Outbox stores side effects committed alongside directory writes.
type Outbox interface {
	Enqueue(ctx context.Context, msg *domain.OutboxMessage) error
	// Claim returns up to limit pending messages due at now and pushes their
	// next attempt out by lease so concurrent relays skip them.
	Claim(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.OutboxMessage, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, lastErr string, next time.Time, dead bool) error
	Message(ctx context.Context, id string) (*domain.OutboxMessage, error)
	PendingCount(ctx context.Context) (int, error)
}
