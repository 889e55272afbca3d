package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/pkg/httpcontext"
	"github.com/fastygo/greenbite/usecase/guard"
)

// AccessChecker decides whether an identity may open a view.
type AccessChecker interface {
	Check(ctx context.Context, identity *domain.Identity, view string) (guard.Decision, domain.Profile, error)
}

// RequireView guards a handler with the role the view requires. A role lookup
// still in flight answers 503 with Retry-After; a denied role answers 403
// carrying the redirect target. Admitted requests get the resolved profile
// as a user value.
func RequireView(checker AccessChecker, view string, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			identity, ok := httpcontext.RequestIdentity(ctx)
			if !ok {
				reject(ctx, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "unauthorized", nil)
				return
			}

			stdCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			decision, profile, err := checker.Check(stdCtx, &identity, view)
			cancel()
			if err != nil {
				logger.Error("role resolution failed", zap.String("view", view), zap.String("user_id", identity.ID), zap.Error(err))
				status := http.StatusInternalServerError
				code := domain.ErrCodeInternal
				if domain.IsDomainError(err, domain.ErrCodeUnavailable) {
					status, code = http.StatusServiceUnavailable, domain.ErrCodeUnavailable
				}
				reject(ctx, status, code, "role lookup failed", nil)
				return
			}

			switch decision.State {
			case guard.Admitted:
				ctx.SetUserValue(httpcontext.UserValueProfile, profile)
				next(ctx)
			case guard.Loading:
				ctx.Response.Header.Set("Retry-After", "1")
				reject(ctx, http.StatusServiceUnavailable, domain.ErrCodeUnavailable, "role is still loading", decision)
			default:
				reject(ctx, http.StatusForbidden, domain.ErrCodeForbidden, "forbidden", decision)
			}
		}
	}
}
