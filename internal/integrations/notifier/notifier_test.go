package notifier

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/fastygo/greenbite/domain"
)

func startRelay(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = fasthttp.Serve(ln, handler) }()
	t.Cleanup(func() { _ = ln.Close() })

	c := New(Config{URL: "http://relay.local", Timeout: time.Second}, nil)
	c.http.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }
	return c
}

func TestSendApprovalEmail(t *testing.T) {
	var got domain.ApprovalEmail
	c := startRelay(t, func(ctx *fasthttp.RequestCtx) {
		assert.Equal(t, approvalPath, string(ctx.Path()))
		assert.Equal(t, fasthttp.MethodPost, string(ctx.Method()))
		assert.NoError(t, json.Unmarshal(ctx.PostBody(), &got))
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"success":true}`)
	})

	err := c.SendApprovalEmail(context.Background(), domain.ApprovalEmail{Email: "ngo@example.org", NgoName: "Helpers"})
	require.NoError(t, err)
	assert.Equal(t, "ngo@example.org", got.Email)
	assert.Equal(t, "Helpers", got.NgoName)
}

func TestSendApprovalEmailFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"relay reports failure", fasthttp.StatusOK, `{"success":false}`},
		{"server error", fasthttp.StatusInternalServerError, `{"success":false,"error":"smtp down"}`},
		{"garbage", fasthttp.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := startRelay(t, func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(tt.status)
				ctx.SetBodyString(tt.body)
			})
			err := c.SendApprovalEmail(context.Background(), domain.ApprovalEmail{Email: "a@b.org"})
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
		})
	}
}

func TestSendApprovalEmailHonoursCancellation(t *testing.T) {
	c := New(Config{URL: "http://relay.local"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.SendApprovalEmail(ctx, domain.ApprovalEmail{Email: "a@b.org"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
}
