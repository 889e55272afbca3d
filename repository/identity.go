package repository

import (
	"context"

	"github.com/fastygo/greenbite/domain"
)

type IdentityRepository interface {
	Create(ctx context.Context, cred *domain.Credentials) error
	GetByID(ctx context.Context, id string) (*domain.Credentials, error)
	GetByEmail(ctx context.Context, email string) (*domain.Credentials, error)
	Delete(ctx context.Context, id string) error
}
