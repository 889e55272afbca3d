package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/api/transport"
	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/pkg/httpcontext"
	appLogger "github.com/fastygo/greenbite/pkg/logger"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	stdCtx, cancel := context.WithCancel(context.Background())
	if identity, ok := httpcontext.RequestIdentity(ctx); ok {
		stdCtx = httpcontext.WithIdentity(stdCtx, identity)
	}
	return stdCtx, cancel
}

func (h baseHandler) log(ctx context.Context) *zap.Logger {
	return appLogger.WithIdentity(ctx, h.logger)
}

// identity writes a 401 and returns false when the request is anonymous.
func (h baseHandler) identity(ctx *fasthttp.RequestCtx) (domain.Identity, bool) {
	identity, ok := httpcontext.RequestIdentity(ctx)
	if !ok {
		h.respondError(ctx, domain.ErrUnauthorized)
	}
	return identity, ok
}

// profile writes a 403 and returns false when the guard resolved no profile.
func (h baseHandler) profile(ctx *fasthttp.RequestCtx) (domain.Profile, bool) {
	profile, ok := httpcontext.RequestProfile(ctx)
	if !ok {
		h.respondError(ctx, domain.ErrForbidden)
	}
	return profile, ok
}

func (h baseHandler) decode(ctx *fasthttp.RequestCtx, dst interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return false
	}
	return true
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
	}
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.respondJSON(ctx, status, transport.NewError(code, message, nil))
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	value, _ := ctx.UserValue(name).(string)
	return value
}

func mapError(err error) (int, string) {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized, string(domain.ErrCodeUnauthorized)
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		return http.StatusForbidden, string(domain.ErrCodeForbidden)
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return http.StatusBadRequest, string(domain.ErrCodeInvalid)
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, string(domain.ErrCodeNotFound)
	case domain.IsDomainError(err, domain.ErrCodeConflict):
		return http.StatusConflict, string(domain.ErrCodeConflict)
	case domain.IsDomainError(err, domain.ErrCodeUnavailable):
		return http.StatusServiceUnavailable, string(domain.ErrCodeUnavailable)
	case domain.IsDomainError(err, domain.ErrCodePartial):
		return http.StatusMultiStatus, string(domain.ErrCodePartial)
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}
