package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

func (s *Store) Enqueue(ctx context.Context, msg *domain.OutboxMessage) error {
	return s.RunTx(ctx, func(tx repository.Tx) error { return tx.Enqueue(ctx, msg) })
}

func (s *Store) Claim(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*domain.OutboxMessage
	for _, msg := range s.outbox {
		if msg.State == domain.OutboxPending && !msg.NextAttemptAt.After(now) {
			due = append(due, msg)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]domain.OutboxMessage, 0, len(due))
	for _, msg := range due {
		msg.NextAttemptAt = now.Add(lease)
		claimed = append(claimed, *msg)
	}
	return claimed, nil
}

func (s *Store) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.outbox[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	delivered := at.UTC()
	msg.State = domain.OutboxDelivered
	msg.DeliveredAt = &delivered
	msg.Attempts++
	msg.LastError = ""
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id string, lastErr string, next time.Time, dead bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.outbox[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	msg.Attempts++
	msg.LastError = lastErr
	msg.NextAttemptAt = next.UTC()
	if dead {
		msg.State = domain.OutboxDead
	}
	return nil
}

func (s *Store) Message(ctx context.Context, id string) (*domain.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.outbox[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	clone := *msg
	return &clone, nil
}

func (s *Store) PendingCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int
	for _, msg := range s.outbox {
		if msg.State == domain.OutboxPending {
			count++
		}
	}
	return count, nil
}
