package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/api/transport"
	"github.com/fastygo/greenbite/pkg/httpcontext"
	donationUC "github.com/fastygo/greenbite/usecase/donation"
)

const streamHeartbeat = 25 * time.Second

type DonationHandler struct {
	baseHandler
	uc *donationUC.UseCase
}

func NewDonationHandler(uc *donationUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *DonationHandler {
	return &DonationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Approved NGOs a donor can give to
// @Tags donations
// @Router /api/v1/donations/ngos [get]
func (h *DonationHandler) ListNgos(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ngos, err := h.uc.ListApprovedNgos(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ngos)
}

// @Summary Items not yet offered to an NGO
// @Tags donations
// @Router /api/v1/donations/items [get]
func (h *DonationHandler) ListItems(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.uc.ListDonatable(stdCtx, identity)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, items)
}

// @Summary Donate an item
// @Tags donations
// @Router /api/v1/donations [post]
func (h *DonationHandler) Create(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}
	var req transport.DonationRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.Create(stdCtx, identity, req.ItemID, req.NgoID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Donations received by the signed-in NGO
// @Tags ngo
// @Router /api/v1/ngo/donations [get]
func (h *DonationHandler) ListReceived(ctx *fasthttp.RequestCtx) {
	profile, ok := h.profile(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	donations, err := h.uc.ListForNGO(stdCtx, profile)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, donations)
}

// @Summary Accept a donation
// @Tags ngo
// @Router /api/v1/ngo/donations/{id}/accept [post]
func (h *DonationHandler) Accept(ctx *fasthttp.RequestCtx) {
	profile, ok := h.profile(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	donation, err := h.uc.Accept(stdCtx, profile, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, donation)
}

// @Summary Live donation updates as server-sent events
// @Description Sends a "snapshot" event with the current list, then one "change" event per write.
// @Tags ngo
// @Produce text/event-stream
// @Router /api/v1/ngo/donations/stream [get]
func (h *DonationHandler) Stream(ctx *fasthttp.RequestCtx) {
	profile, ok := h.profile(ctx)
	if !ok {
		return
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	snapshot, sub, err := h.uc.Watch(streamCtx, profile)
	if err != nil {
		cancel()
		h.respondError(ctx, err)
		return
	}

	logger := h.logger.With(zap.String("ngo_id", profile.ID()))
	ctx.Response.Header.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	// The server write timeout would otherwise end the stream; each write pushes the deadline out.
	conn := ctx.Conn()
	extend := func() { _ = conn.SetWriteDeadline(time.Now().Add(2 * streamHeartbeat)) }

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Close()

		extend()
		if err := writeEvent(w, "snapshot", snapshot); err != nil {
			return
		}

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()
		for {
			select {
			case change, open := <-sub.Changes():
				if !open {
					return
				}
				extend()
				if err := writeEvent(w, "change", change); err != nil {
					logger.Debug("donation stream closed", zap.Error(err))
					return
				}
			case <-heartbeat.C:
				extend()
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
}

func writeEvent(w *bufio.Writer, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return w.Flush()
}
