// Package relay serves the approval email endpoint used by the API's notifier.
package relay

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/pkg/mailer"
)

const ApprovalEmailPath = "/api/send-approval-email"

type response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Handler struct {
	sender  mailer.Sender
	timeout time.Duration
	logger  *zap.Logger
}

func NewHandler(sender mailer.Sender, timeout time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{sender: sender, timeout: timeout, logger: logger}
}

// Router exposes the relay endpoints.
func (h *Handler) Router() *router.Router {
	r := router.New()
	r.POST(ApprovalEmailPath, withCORS(h.SendApprovalEmail))
	r.OPTIONS(ApprovalEmailPath, withCORS(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}))
	r.GET("/health", func(ctx *fasthttp.RequestCtx) {
		respond(ctx, fasthttp.StatusOK, response{Success: true})
	})
	return r
}

func (h *Handler) SendApprovalEmail(ctx *fasthttp.RequestCtx) {
	var req domain.ApprovalEmail
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		respond(ctx, fasthttp.StatusBadRequest, response{Error: "malformed request body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respond(ctx, fasthttp.StatusBadRequest, response{Error: "email is required"})
		return
	}

	msg, err := mailer.ApprovalMessage(req.Email, req.NgoName)
	if err != nil {
		h.logger.Error("render approval email", zap.Error(err))
		respond(ctx, fasthttp.StatusInternalServerError, response{Error: err.Error()})
		return
	}

	sendCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.sender.Send(sendCtx, msg); err != nil {
		h.logger.Error("error sending email", zap.String("to", msg.To), zap.Error(err))
		respond(ctx, fasthttp.StatusInternalServerError, response{Error: err.Error()})
		return
	}

	h.logger.Info("approval email sent", zap.String("to", msg.To))
	respond(ctx, fasthttp.StatusOK, response{Success: true})
}

func respond(ctx *fasthttp.RequestCtx, status int, body response) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	out, _ := json.Marshal(body)
	ctx.SetBody(out)
}

func withCORS(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		ctx.Response.Header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type")
		next(ctx)
	}
}
