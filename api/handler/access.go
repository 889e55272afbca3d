package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/pkg/httpcontext"
	"github.com/fastygo/greenbite/usecase/guard"
)

// AccessHandler lets the front end ask the route guard about a view before rendering it.
type AccessHandler struct {
	baseHandler
	guard *guard.Guard
}

func NewAccessHandler(g *guard.Guard, adapter *httpcontext.Adapter, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		baseHandler: newBaseHandler(adapter, logger),
		guard:       g,
	}
}

// @Summary Route guard decision for a view
// @Tags access
// @Router /api/v1/access/{view} [get]
func (h *AccessHandler) Check(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	decision, _, err := h.guard.Check(stdCtx, &identity, pathParam(ctx, "view"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, decision)
}
