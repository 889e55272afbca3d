// Package metrics collects workflow and HTTP metrics for Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/fastygo/greenbite/usecase"
)

// Collector implements usecase.WorkflowMetrics and the outbox relay metrics.
type Collector struct {
	approvals     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	donations     *prometheus.CounterVec
	outboxPending prometheus.Gauge
	requests      *prometheus.CounterVec
	latency       prometheus.Histogram
}

var _ usecase.WorkflowMetrics = (*Collector)(nil)

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		approvals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenbite_approvals_total",
			Help: "NGO approval attempts by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenbite_notifications_total",
			Help: "Approval email deliveries by result.",
		}, []string{"result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenbite_rejections_total",
			Help: "NGO rejection attempts by result.",
		}, []string{"result"}),
		donations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenbite_donations_total",
			Help: "Donation lifecycle events.",
		}, []string{"event"}),
		outboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenbite_outbox_pending",
			Help: "Outbox messages waiting for delivery.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenbite_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status_code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "greenbite_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.approvals,
		c.notifications,
		c.rejections,
		c.donations,
		c.outboxPending,
		c.requests,
		c.latency,
	)
	return c
}

func (c *Collector) Approval(result string)     { c.approvals.WithLabelValues(result).Inc() }
func (c *Collector) Notification(result string) { c.notifications.WithLabelValues(result).Inc() }
func (c *Collector) Rejection(result string)    { c.rejections.WithLabelValues(result).Inc() }
func (c *Collector) Donation(event string)      { c.donations.WithLabelValues(event).Inc() }

func (c *Collector) OutboxPending(n int) {
	c.outboxPending.Set(float64(n))
}

// Instrument counts requests and observes their latency.
func (c *Collector) Instrument(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		c.requests.WithLabelValues(string(ctx.Method()), strconv.Itoa(ctx.Response.StatusCode())).Inc()
		c.latency.Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
