package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

const (
	sessionPrefix  = "greenbite:session:"
	extendAttempts = 3
)

type sessionRepository struct {
	client *redislib.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionRepository stores sessions as JSON under a key that expires with the session.
func NewSessionRepository(client *redislib.Client, ttl time.Duration) repository.SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &sessionRepository{client: client, ttl: ttl, now: time.Now}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.Unavailable("load session", err)
	}
	return decodeSession(raw)
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}
	now := r.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		session.ExpiresAt = session.CreatedAt.Add(r.ttl)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "encode session", err)
	}
	ttl := session.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return domain.Invalid("session already expired")
	}
	if err := r.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return domain.Unavailable("save session", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return domain.Unavailable("delete session", err)
	}
	return nil
}

// Extend moves both the key expiry and the stored ExpiresAt. The read and
// rewrite run under WATCH so a concurrent sign-out is not resurrected.
func (r *sessionRepository) Extend(ctx context.Context, id string, ttlSeconds int) error {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = r.ttl
	}
	key := sessionKey(id)

	extend := func(tx *redislib.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redislib.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		session, err := decodeSession(raw)
		if err != nil {
			return err
		}
		session.ExpiresAt = r.now().Add(ttl)
		payload, err := json.Marshal(session)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < extendAttempts; attempt++ {
		err = r.client.Watch(ctx, extend, key)
		if !errors.Is(err, redislib.TxFailedErr) {
			break
		}
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrSessionNotFound):
		return domain.ErrSessionNotFound
	case domain.IsDomainError(err, domain.ErrCodeInternal):
		return err
	default:
		return domain.Unavailable("extend session", err)
	}
}

func decodeSession(raw []byte) (*domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "decode session", err)
	}
	return &session, nil
}

func sessionKey(id string) string {
	return sessionPrefix + id
}
