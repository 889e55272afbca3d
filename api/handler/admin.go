package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/api/transport"
	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/pkg/httpcontext"
	approvalUC "github.com/fastygo/greenbite/usecase/approval"
)

type AdminHandler struct {
	baseHandler
	uc *approvalUC.UseCase
}

func NewAdminHandler(uc *approvalUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Registered donors
// @Tags admin
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(ctx *fasthttp.RequestCtx) {
	actor, ok := h.profile(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	users, err := h.uc.ListUsers(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, users)
}

// @Summary NGOs awaiting approval
// @Tags admin
// @Router /api/v1/admin/ngos/pending [get]
func (h *AdminHandler) ListPending(ctx *fasthttp.RequestCtx) {
	actor, ok := h.profile(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ngos, err := h.uc.ListPending(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ngos)
}

// @Summary Approved NGOs
// @Tags admin
// @Router /api/v1/admin/ngos [get]
func (h *AdminHandler) ListApproved(ctx *fasthttp.RequestCtx) {
	actor, ok := h.profile(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ngos, err := h.uc.ListApproved(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ngos)
}

// @Summary Approve a pending NGO
// @Description A "PARTIAL" code means the NGO is approved but the welcome email is still queued.
// @Tags admin
// @Router /api/v1/admin/ngos/{id}/approve [post]
func (h *AdminHandler) Approve(ctx *fasthttp.RequestCtx) {
	actor, ok := h.profile(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.Approve(stdCtx, actor, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if result.Warning != "" {
		h.log(stdCtx).Warn("ngo approved with warning", zap.String("ngo_id", result.NgoID), zap.String("warning", result.Warning))
		h.respondJSON(ctx, http.StatusOK, transport.NewPartial(string(domain.ErrCodePartial), result, result.Warning))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

// @Summary Reject a pending NGO or remove an approved one
// @Tags admin
// @Router /api/v1/admin/ngos/{id}/reject [post]
func (h *AdminHandler) Reject(ctx *fasthttp.RequestCtx) {
	actor, ok := h.profile(ctx)
	if !ok {
		return
	}
	var req transport.RejectRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id := pathParam(ctx, "id")
	if err := h.uc.Reject(stdCtx, actor, id, req.Pending, req.Confirmation); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.log(stdCtx).Info("ngo removed", zap.String("ngo_id", id), zap.Bool("pending", req.Pending))
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"ngoId": id})
}
