// Package integrations holds the outbound HTTP clients for the services the
// API depends on: the notification relay, the OCR service and the recipe API.
package integrations

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/greenbite/domain"
)

// NewHTTPClient returns a fasthttp client tuned for short JSON calls.
func NewHTTPClient(name string, timeout time.Duration) *fasthttp.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &fasthttp.Client{
		Name:                name,
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxIdleConnDuration: time.Minute,
	}
}

// Do executes req honouring both timeout and ctx's deadline, whichever is sooner.
func Do(ctx context.Context, client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return domain.Unavailable("request cancelled", err)
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := client.DoDeadline(req, resp, deadline); err != nil {
		return domain.Unavailable(string(req.URI().Host())+" unreachable", err)
	}
	return nil
}

// IsSuccess reports a 2xx status.
func IsSuccess(status int) bool {
	return status >= fasthttp.StatusOK && status < fasthttp.StatusMultipleChoices
}
