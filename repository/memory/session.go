package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	ttl      time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{sessions: make(map[string]domain.Session), ttl: ttl}
}

var _ repository.SessionRepository = (*SessionStore)(nil)

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.IsExpired(time.Now()) {
		delete(s.sessions, id)
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if session.ExpiresAt.Before(session.CreatedAt) {
		session.ExpiresAt = session.CreatedAt.Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) Extend(ctx context.Context, id string, ttlSeconds int) error {
	duration := time.Duration(ttlSeconds) * time.Second
	if duration <= 0 {
		duration = s.ttl
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.ExpiresAt = time.Now().Add(duration)
	s.sessions[id] = session
	return nil
}
