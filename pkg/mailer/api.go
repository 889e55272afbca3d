package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

type APIConfig struct {
	URL      string
	Key      string
	From     string
	FromName string
	Timeout  time.Duration
}

// APISender posts messages to a ZeptoMail-compatible HTTP API.
type APISender struct {
	cfg    APIConfig
	client *fasthttp.Client
}

func NewAPISender(cfg APIConfig) *APISender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &APISender{
		cfg: cfg,
		client: &fasthttp.Client{
			Name:         "greenbite-mailer",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
	}
}

type apiAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type apiRecipient struct {
	Email apiAddress `json:"email_address"`
}

type apiRequest struct {
	From     apiAddress     `json:"from"`
	To       []apiRecipient `json:"to"`
	Subject  string         `json:"subject"`
	HTMLBody string         `json:"htmlbody"`
}

func (s *APISender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if s.cfg.URL == "" || s.cfg.Key == "" || s.cfg.From == "" {
		return fmt.Errorf("mailer: api url, key and sender address are required")
	}

	body, err := json.Marshal(apiRequest{
		From:     apiAddress{Address: s.cfg.From, Name: s.cfg.FromName},
		To:       []apiRecipient{{Email: apiAddress{Address: msg.To, Name: msg.ToName}}},
		Subject:  msg.Subject,
		HTMLBody: msg.HTML,
	})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.cfg.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", s.cfg.Key)
	req.SetBody(body)

	deadline := time.Now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK, fasthttp.StatusCreated, fasthttp.StatusAccepted:
		return nil
	default:
		return fmt.Errorf("mailer: api returned status %d", resp.StatusCode())
	}
}
