package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

type IdentityStore struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Credentials
	byEmail map[string]string
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		byID:    make(map[string]*domain.Credentials),
		byEmail: make(map[string]string),
	}
}

var _ repository.IdentityRepository = (*IdentityStore)(nil)

func (s *IdentityStore) Create(ctx context.Context, cred *domain.Credentials) error {
	if cred == nil || cred.ID == "" {
		return domain.ErrInvalidPayload
	}
	email := domain.NormalizeEmail(cred.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return domain.ErrEmailTaken
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}
	clone := *cred
	clone.Email = email
	s.byID[cred.ID] = &clone
	s.byEmail[email] = cred.ID
	return nil
}

func (s *IdentityStore) GetByID(ctx context.Context, id string) (*domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	clone := *cred
	return &clone, nil
}

func (s *IdentityStore) GetByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	s.mu.RLock()
	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *IdentityStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byID[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	delete(s.byID, id)
	delete(s.byEmail, cred.Email)
	return nil
}
