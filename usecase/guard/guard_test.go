package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/greenbite/domain"
)

func TestDecide(t *testing.T) {
	identity := &domain.Identity{ID: "u1"}
	user := domain.UserProfileOf(&domain.UserProfile{Role: domain.RoleUser})
	ngo := domain.ApprovedNgoOf(&domain.NgoProfile{Role: domain.RoleNgo, Approved: true})
	pendingNgo := domain.PendingNgoOf(&domain.NgoProfile{Role: domain.RoleNgo})
	admin := domain.AdminProfileOf(&domain.AdminProfile{Role: domain.RoleAdmin})

	tests := []struct {
		name     string
		identity *domain.Identity
		res      Resolution
		view     string
		want     State
	}{
		{"public view without identity", nil, Resolution{}, "about", Admitted},
		{"public view while loading", identity, Resolution{Pending: true}, "home", Admitted},
		{"protected view without identity", nil, Resolution{}, "dashboard", Redirected},
		{"lookup outstanding", identity, Resolution{Pending: true}, "dashboard", Loading},
		{"matching role", identity, Resolution{Profile: user}, "items", Admitted},
		{"role mismatch", identity, Resolution{Profile: ngo}, "items", Redirected},
		{"approved ngo", identity, Resolution{Profile: ngo}, "ngo", Admitted},
		{"pending ngo", identity, Resolution{Profile: pendingNgo}, "ngo", Redirected},
		{"admin view", identity, Resolution{Profile: admin}, "admin", Admitted},
		{"user on admin view", identity, Resolution{Profile: user}, "admin", Redirected},
		{"unknown role", identity, Resolution{Profile: domain.UnknownProfile()}, "account", Redirected},
		{"unknown view", identity, Resolution{Profile: user}, "secret", Redirected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.identity, tt.res, tt.view)
			assert.Equal(t, tt.want, d.State)
			if tt.want == Redirected {
				assert.Equal(t, RoleSelectionPath, d.Redirect)
			} else {
				assert.Empty(t, d.Redirect)
			}
		})
	}
}

type resolverFunc func(ctx context.Context, identity domain.Identity) (domain.Profile, error)

func (f resolverFunc) Resolve(ctx context.Context, identity domain.Identity) (domain.Profile, error) {
	return f(ctx, identity)
}

func TestCheckTimesOutToLoading(t *testing.T) {
	slow := resolverFunc(func(ctx context.Context, identity domain.Identity) (domain.Profile, error) {
		<-ctx.Done()
		return domain.UnknownProfile(), ctx.Err()
	})
	g := New(slow, 10*time.Millisecond, nil)

	d, _, err := g.Check(context.Background(), &domain.Identity{ID: "u1"}, "dashboard")
	require.NoError(t, err)
	assert.Equal(t, Loading, d.State)
}

func TestCheckReturnsStoreErrors(t *testing.T) {
	broken := resolverFunc(func(ctx context.Context, identity domain.Identity) (domain.Profile, error) {
		return domain.UnknownProfile(), domain.Unavailable("read document", errors.New("down"))
	})
	_, _, err := New(broken, time.Second, nil).Check(context.Background(), &domain.Identity{ID: "u1"}, "items")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
}

func TestCheckSkipsLookupForPublicViews(t *testing.T) {
	called := false
	r := resolverFunc(func(ctx context.Context, identity domain.Identity) (domain.Profile, error) {
		called = true
		return domain.UnknownProfile(), nil
	})
	d, _, err := New(r, time.Second, nil).Check(context.Background(), nil, "help")
	require.NoError(t, err)
	assert.Equal(t, Admitted, d.State)
	assert.False(t, called)
}

func TestCheckAdmitsResolvedRole(t *testing.T) {
	r := resolverFunc(func(ctx context.Context, identity domain.Identity) (domain.Profile, error) {
		return domain.UserProfileOf(&domain.UserProfile{ID: identity.ID, Role: domain.RoleUser}), nil
	})
	d, profile, err := New(r, time.Second, nil).Check(context.Background(), &domain.Identity{ID: "u1"}, "chatbot")
	require.NoError(t, err)
	assert.Equal(t, Admitted, d.State)
	assert.Equal(t, domain.RoleUser, d.Role)
	assert.Equal(t, domain.KindUser, profile.Kind)
}
