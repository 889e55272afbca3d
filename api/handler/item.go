package handler

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/api/transport"
	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/pkg/httpcontext"
	inventoryUC "github.com/fastygo/greenbite/usecase/inventory"
)

const maxImageBytes = 8 << 20

type ItemHandler struct {
	baseHandler
	uc  *inventoryUC.UseCase
	now func() time.Time
}

func NewItemHandler(uc *inventoryUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		now:         time.Now,
	}
}

// @Summary List food items
// @Tags items
// @Router /api/v1/items [get]
func (h *ItemHandler) List(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.uc.List(stdCtx, identity)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, items)
}

// @Summary Add a food item
// @Tags items
// @Router /api/v1/items [post]
func (h *ItemHandler) Create(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}
	var req transport.FoodItemRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, err := h.uc.Add(stdCtx, identity, toFoodItem(req))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, item)
}

// @Summary Update a food item
// @Tags items
// @Router /api/v1/items/{id} [put]
func (h *ItemHandler) Update(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}
	var req transport.FoodItemRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, err := h.uc.Update(stdCtx, identity, pathParam(ctx, "id"), toFoodItem(req))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, item)
}

// @Summary Delete a food item
// @Tags items
// @Router /api/v1/items/{id} [delete]
func (h *ItemHandler) Delete(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, identity, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Toggle the expiry alert of an item
// @Tags items
// @Router /api/v1/items/{id}/alert [post]
func (h *ItemHandler) ToggleAlert(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, err := h.uc.ToggleAlert(stdCtx, identity, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, item)
}

// @Summary Upload a photo for an item
// @Tags items
// @Accept multipart/form-data
// @Router /api/v1/items/{id}/image [post]
func (h *ItemHandler) UploadImage(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}
	name, data, ok := h.formFile(ctx, "image")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, err := h.uc.AttachImage(stdCtx, identity, pathParam(ctx, "id"), name, bytes.NewReader(data))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, item)
}

// @Summary Read an expiry date from a label photo
// @Tags items
// @Accept multipart/form-data
// @Router /api/v1/items/scan-expiry [post]
func (h *ItemHandler) ScanExpiry(ctx *fasthttp.RequestCtx) {
	if _, ok := h.identity(ctx); !ok {
		return
	}
	name, data, ok := h.formFile(ctx, "file")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	date, err := h.uc.ScanExpiry(stdCtx, name, data)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"expiryDate": date})
}

// @Summary Expiry dashboard
// @Tags items
// @Param sort query string false "expiryDate, name, quantity or recentlyAdded"
// @Router /api/v1/dashboard [get]
func (h *ItemHandler) Dashboard(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	dashboard, err := h.uc.Dashboard(stdCtx, identity, h.now(), string(ctx.QueryArgs().Peek("sort")))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, dashboard)
}

func (h *ItemHandler) formFile(ctx *fasthttp.RequestCtx, field string) (string, []byte, bool) {
	header, err := ctx.FormFile(field)
	if err != nil {
		h.respondError(ctx, domain.Invalid("multipart field %q is required", field))
		return "", nil, false
	}
	if header.Size > maxImageBytes {
		h.respondError(ctx, domain.Invalid("image exceeds %d bytes", maxImageBytes))
		return "", nil, false
	}
	file, err := header.Open()
	if err != nil {
		h.respondError(ctx, domain.Invalid("unreadable upload"))
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		h.respondError(ctx, domain.Invalid("unreadable upload"))
		return "", nil, false
	}
	return header.Filename, data, true
}

func toFoodItem(req transport.FoodItemRequest) domain.FoodItem {
	return domain.FoodItem{
		Name:         req.Name,
		Quantity:     req.Quantity,
		ExpiryDate:   req.ExpiryDate,
		AlertEnabled: req.AlertEnabled,
	}
}
