package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/internal/integrations"
)

type Config struct {
	URL     string
	Timeout time.Duration
}

// Client forwards label photos to the OCR service.
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
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		http:    integrations.NewHTTPClient("greenbite-ocr", cfg.Timeout),
		url:     cfg.URL + "/upload",
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

type uploadResponse struct {
	ExpiryDate string `json:"expiry_date"`
	Error      string `json:"error"`
}

// ScanExpiry uploads the image as multipart field "file" and returns the
// detected expiry date as YYYY-MM-DD.
func (c *Client) ScanExpiry(ctx context.Context, filename string, image []byte) (string, error) {
	if filename == "" {
		filename = "label.jpg"
	}
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeInternal, "build upload", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", domain.WrapError(domain.ErrCodeInternal, "build upload", err)
	}
	if err := form.Close(); err != nil {
		return "", domain.WrapError(domain.ErrCodeInternal, "build upload", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(form.FormDataContentType())
	req.SetBody(body.Bytes())

	if err := integrations.Do(ctx, c.http, req, resp, c.timeout); err != nil {
		return "", err
	}

	var out uploadResponse
	_ = json.Unmarshal(resp.Body(), &out)
	status := resp.StatusCode()
	switch {
	case integrations.IsSuccess(status) && out.ExpiryDate != "":
	case status >= fasthttp.StatusBadRequest && status < fasthttp.StatusInternalServerError:
		if out.Error == "" {
			out.Error = "no expiry date found"
		}
		return "", domain.Invalid("%s", out.Error)
	default:
		return "", domain.Unavailable("ocr service failed", fmt.Errorf("status %d", status))
	}

	date, err := NormalizeDate(out.ExpiryDate)
	if err != nil {
		c.logger.Info("unrecognised expiry date", zap.String("raw", out.ExpiryDate))
		return "", domain.Invalid("unrecognised expiry date %q", out.ExpiryDate)
	}
	return date, nil
}

var dayFirst = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})$`)

// NormalizeDate turns the day-first dates printed on labels (dd/mm/yyyy,
// dd-mm-yy, dd.mm.yyyy) and ISO dates into YYYY-MM-DD.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if t, err := domain.ParseDate(raw); err == nil {
		return t.Format(domain.DateLayout), nil
	}

	m := dayFirst.FindStringSubmatch(raw)
	if m == nil {
		return "", fmt.Errorf("unsupported date %q", raw)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	switch len(m[3]) {
	case 2:
		year += 2000
	case 4:
	default:
		return "", fmt.Errorf("unsupported year in %q", raw)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return "", fmt.Errorf("invalid date %q", raw)
	}
	return t.Format(domain.DateLayout), nil
}
