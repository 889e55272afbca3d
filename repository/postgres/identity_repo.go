package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

type identityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository instantiates a Postgres-backed credentials store.
func NewIdentityRepository(pool *pgxpool.Pool) repository.IdentityRepository {
	return &identityRepository{pool: pool}
}

func (r *identityRepository) Create(ctx context.Context, cred *domain.Credentials) error {
	if cred == nil || cred.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO identities (id, email, display_name, password_hash, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	RETURNING created_at
	`
	cred.Email = domain.NormalizeEmail(cred.Email)
	if err := r.pool.QueryRow(ctx, query,
		cred.ID,
		cred.Email,
		cred.DisplayName,
		cred.PasswordHash,
	).Scan(&cred.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return domain.Unavailable("create identity", err)
	}
	return nil
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*domain.Credentials, error) {
	const query = `
		SELECT id, email, display_name, password_hash, created_at
		FROM identities
		WHERE id = $1
	`
	return scanCredentials(r.pool.QueryRow(ctx, query, id))
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	const query = `
		SELECT id, email, display_name, password_hash, created_at
		FROM identities
		WHERE email = $1
	`
	return scanCredentials(r.pool.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

func (r *identityRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return domain.Unavailable("delete identity", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func scanCredentials(row pgx.Row) (*domain.Credentials, error) {
	var cred domain.Credentials
	if err := row.Scan(&cred.ID, &cred.Email, &cred.DisplayName, &cred.PasswordHash, &cred.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, domain.Unavailable("read identity", err)
	}
	return &cred, nil
}
