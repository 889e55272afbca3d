package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/api/transport"
	"github.com/fastygo/greenbite/internal/infrastructure/monitor"
	"github.com/fastygo/greenbite/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

func NewHealthHandler(mon *monitor.Monitor, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

type healthReport struct {
	Timestamp time.Time      `json:"timestamp"`
	Online    bool           `json:"online"`
	Status    monitor.Status `json:"status"`
}

// @Summary Dependency status of the API
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	report := healthReport{
		Timestamp: time.Now().UTC(),
		Online:    status.Healthy(),
		Status:    status,
	}

	if !report.Online {
		h.logger.Warn("health check degraded",
			zap.Bool("postgresql", status.PostgreSQL),
			zap.Bool("redis", status.Redis))
		h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", report))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, report)
}
