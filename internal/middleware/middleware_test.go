package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/pkg/httpcontext"
	"github.com/fastygo/greenbite/usecase/guard"
)

type staticAuth struct {
	identity domain.Identity
	err      error
}

func (a staticAuth) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token != "good" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return a.identity, a.err
}

func okHandler(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusOK) }

func TestJWTAuth(t *testing.T) {
	mw := JWTAuth(staticAuth{identity: domain.Identity{ID: "u1"}}, time.Second, nil)

	var seen domain.Identity
	handler := mw(func(ctx *fasthttp.RequestCtx) {
		seen, _ = httpcontext.RequestIdentity(ctx)
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Authorization", "Bearer good")
	handler(&ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "u1", seen.ID)

	var stream fasthttp.RequestCtx
	stream.Request.SetRequestURI("/api/v1/ngo/donations/stream?access_token=good")
	handler(&stream)
	assert.Equal(t, fasthttp.StatusOK, stream.Response.StatusCode())

	var missing fasthttp.RequestCtx
	handler(&missing)
	assert.Equal(t, fasthttp.StatusUnauthorized, missing.Response.StatusCode())

	var bad fasthttp.RequestCtx
	bad.Request.Header.Set("Authorization", "Bearer forged")
	handler(&bad)
	assert.Equal(t, fasthttp.StatusUnauthorized, bad.Response.StatusCode())
}

func TestJWTAuthStoreDown(t *testing.T) {
	mw := JWTAuth(staticAuth{err: domain.Unavailable("read session", context.DeadlineExceeded)}, time.Second, nil)
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Authorization", "Bearer good")
	mw(okHandler)(&ctx)
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
}

type stubChecker struct {
	decision guard.Decision
	profile  domain.Profile
	err      error
}

func (c stubChecker) Check(ctx context.Context, identity *domain.Identity, view string) (guard.Decision, domain.Profile, error) {
	return c.decision, c.profile, c.err
}

func guardedRequest(checker AccessChecker) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.SetUserValue(httpcontext.UserValueIdentity, domain.Identity{ID: "u1"})
	RequireView(checker, "admin", nil)(func(ctx *fasthttp.RequestCtx) {
		if _, ok := httpcontext.RequestProfile(ctx); ok {
			ctx.SetStatusCode(fasthttp.StatusOK)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusTeapot)
	})(&ctx)
	return &ctx
}

func TestRequireView(t *testing.T) {
	admin := domain.AdminProfileOf(&domain.AdminProfile{ID: "u1", Role: domain.RoleAdmin})

	ctx := guardedRequest(stubChecker{decision: guard.Decision{State: guard.Admitted}, profile: admin})
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = guardedRequest(stubChecker{decision: guard.Decision{State: guard.Loading}})
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	assert.Equal(t, "1", string(ctx.Response.Header.Peek("Retry-After")))

	ctx = guardedRequest(stubChecker{decision: guard.Decision{State: guard.Redirected, Redirect: guard.RoleSelectionPath}})
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `"redirect":"/role"`)

	ctx = guardedRequest(stubChecker{err: domain.Unavailable("list", context.Canceled)})
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())

	var anonymous fasthttp.RequestCtx
	RequireView(stubChecker{}, "admin", nil)(okHandler)(&anonymous)
	assert.Equal(t, fasthttp.StatusUnauthorized, anonymous.Response.StatusCode())
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(1, 2)
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "budgets are per client")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	l := NewRateLimiter(1, 1)
	handler := l.Middleware(okHandler)

	var first, second fasthttp.RequestCtx
	handler(&first)
	handler(&second)
	assert.Equal(t, fasthttp.StatusOK, first.Response.StatusCode())
	assert.Equal(t, fasthttp.StatusTooManyRequests, second.Response.StatusCode())
}
