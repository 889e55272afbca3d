package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/api/transport"
	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/pkg/httpcontext"
)

// Authenticator validates a bearer token and returns its identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// JWTAuth admits requests carrying a valid token for a live session and
// stores the identity as a request user value.
func JWTAuth(auth Authenticator, timeout time.Duration, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				reject(ctx, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "missing bearer token", nil)
				return
			}

			stdCtx, cancel := context.WithTimeout(context.Background(), timeout)
			identity, err := auth.Authenticate(stdCtx, tokenString)
			cancel()
			if err != nil {
				if domain.IsDomainError(err, domain.ErrCodeUnavailable) {
					logger.Error("session lookup failed", zap.Error(err))
					reject(ctx, http.StatusServiceUnavailable, domain.ErrCodeUnavailable, "session store unavailable", nil)
					return
				}
				logger.Warn("invalid jwt token", zap.Error(err))
				reject(ctx, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid or expired token", nil)
				return
			}

			ctx.SetUserValue(httpcontext.UserValueIdentity, identity)
			next(ctx)
		}
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		// EventSource cannot set headers, so the stream endpoint accepts ?access_token=.
		return string(ctx.QueryArgs().Peek("access_token"))
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

func reject(ctx *fasthttp.RequestCtx, status int, code domain.ErrorCode, message string, meta interface{}) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(transport.NewError(string(code), message, meta))
	ctx.SetBody(body)
}
