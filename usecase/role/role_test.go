package role

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
	"github.com/fastygo/greenbite/repository/memory"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, domain.UserPath("u1"), domain.UserProfile{ID: "u1", Role: "user"}))
	require.NoError(t, store.Set(ctx, domain.UserPath("odd"), domain.UserProfile{ID: "odd", Role: "volunteer"}))
	require.NoError(t, store.Set(ctx, domain.NgoPath("n1"), domain.NgoProfile{ID: "n1", Role: "ngo", Approved: true}))
	require.NoError(t, store.Set(ctx, domain.PendingNgoPath("p1"), domain.NgoProfile{ID: "p1", Role: "ngo"}))
	require.NoError(t, store.Set(ctx, domain.AdminPath("a1"), domain.AdminProfile{ID: "a1", Role: "admin"}))

	resolver := New(store, nil)

	tests := []struct {
		name     string
		identity domain.Identity
		kind     domain.ProfileKind
		role     string
	}{
		{"user", domain.Identity{ID: "u1"}, domain.KindUser, "user"},
		{"stored role is returned verbatim", domain.Identity{ID: "odd"}, domain.KindUser, "volunteer"},
		{"approved ngo", domain.Identity{ID: "n1"}, domain.KindApprovedNgo, "ngo"},
		{"pending ngo", domain.Identity{ID: "p1"}, domain.KindPendingNgo, "ngo"},
		{"admin", domain.Identity{ID: "a1"}, domain.KindAdmin, "admin"},
		{"no record", domain.Identity{ID: "nobody"}, domain.KindUnknown, ""},
		{"no identity", domain.Identity{}, domain.KindUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := resolver.Resolve(ctx, tt.identity)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, profile.Kind)
			assert.Equal(t, tt.role, profile.Role())
		})
	}
}

func TestResolvePrefersUserRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, domain.UserPath("x"), domain.UserProfile{ID: "x", Role: "user"}))
	require.NoError(t, store.Set(ctx, domain.NgoPath("x"), domain.NgoProfile{ID: "x", Role: "ngo", Approved: true}))

	profile, err := New(store, nil).Resolve(ctx, domain.Identity{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, domain.KindUser, profile.Kind)
}

type failingDirectory struct {
	repository.Directory
}

func (failingDirectory) Get(ctx context.Context, path string) (*domain.Document, error) {
	return nil, domain.Unavailable("read document", errors.New("connection refused"))
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	profile, err := New(failingDirectory{}, nil).Resolve(context.Background(), domain.Identity{ID: "u1"})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
	assert.Equal(t, domain.KindUnknown, profile.Kind)
}
