package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestCollectorCountsWorkflowEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.Approval("approved")
	c.Approval("approved")
	c.Notification("deferred")
	c.Rejection("denied")
	c.Donation("created")
	c.OutboxPending(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.approvals.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues("deferred")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejections.WithLabelValues("denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.donations.WithLabelValues("created")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.outboxPending))
}

func TestInstrumentAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	handler := c.Instrument(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusCreated)
	})
	var req fasthttp.RequestCtx
	req.Request.Header.SetMethod(fasthttp.MethodPost)
	handler(&req)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "201")))

	var scrape fasthttp.RequestCtx
	scrape.Request.Header.SetMethod(fasthttp.MethodGet)
	scrape.Request.SetRequestURI("/metrics")
	Handler(reg)(&scrape)
	require.Equal(t, fasthttp.StatusOK, scrape.Response.StatusCode())
	assert.True(t, strings.Contains(string(scrape.Response.Body()), "greenbite_http_requests_total"))
}
