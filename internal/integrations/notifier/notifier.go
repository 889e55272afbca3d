package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/internal/integrations"
)

const approvalPath = "/api/send-approval-email"

type Config struct {
	URL     string
	Timeout time.Duration
}

// Client posts approval emails to the mail relay.
type Client struct {
	http    *fasthttp.Client
	url     string
	timeout time.Duration
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		http:    integrations.NewHTTPClient("greenbite-notifier", cfg.Timeout),
		url:     cfg.URL + approvalPath,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

type relayResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SendApprovalEmail fails unless the relay answers 2xx with success=true.
func (c *Client) SendApprovalEmail(ctx context.Context, mail domain.ApprovalEmail) error {
	body, err := json.Marshal(mail)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "encode approval email", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := integrations.Do(ctx, c.http, req, resp, c.timeout); err != nil {
		return err
	}

	var out relayResponse
	_ = json.Unmarshal(resp.Body(), &out)
	if !integrations.IsSuccess(resp.StatusCode()) || !out.Success {
		reason := out.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode())
		}
		return domain.Unavailable("approval email not sent", fmt.Errorf("relay: %s", reason))
	}

	c.logger.Debug("approval email sent", zap.String("email", mail.Email))
	return nil
}
