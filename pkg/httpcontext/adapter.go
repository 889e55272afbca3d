package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/greenbite/domain"
	appLogger "github.com/fastygo/greenbite/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
	KeyIdentity   Key = "identity"
)

// fasthttp user values set by the auth and guard middleware.
const (
	UserValueIdentity = "identity"
	UserValueProfile  = "profile"
)

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout time.Duration
}

// NewAdapter constructs a new Adapter using the provided timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		timeout: timeout,
	}
}

// Attach creates a context with timeout derived from the adapter and enriches it with request metadata.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	base := context.Background()

	stdCtx, cancel := context.WithTimeout(base, a.timeout)

	reqID := getRequestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)
	ctx.Response.Header.Set("X-Request-ID", reqID)

	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}
	if identity, ok := RequestIdentity(ctx); ok {
		stdCtx = WithIdentity(stdCtx, identity)
	}

	return stdCtx, cancel
}

func getRequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if header := string(ctx.Request.Header.Peek("X-Request-ID")); strings.TrimSpace(header) != "" {
		return header
	}
	return uuid.NewString()
}

// WithIdentity stores the authenticated identity in ctx.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	ctx = context.WithValue(ctx, KeyIdentity, identity)
	return appLogger.ContextWithIdentity(ctx, identity.ID)
}

// IdentityFrom returns the identity attached by WithIdentity.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(KeyIdentity).(domain.Identity)
	return identity, ok && !identity.IsZero()
}

// RequestIdentity returns the identity the auth middleware placed on the request.
func RequestIdentity(ctx *fasthttp.RequestCtx) (domain.Identity, bool) {
	if ctx == nil {
		return domain.Identity{}, false
	}
	identity, ok := ctx.UserValue(UserValueIdentity).(domain.Identity)
	return identity, ok && !identity.IsZero()
}

// RequestProfile returns the profile the guard middleware resolved for the request.
func RequestProfile(ctx *fasthttp.RequestCtx) (domain.Profile, bool) {
	if ctx == nil {
		return domain.UnknownProfile(), false
	}
	profile, ok := ctx.UserValue(UserValueProfile).(domain.Profile)
	if !ok {
		return domain.UnknownProfile(), false
	}
	return profile, profile.Known()
}
