package recipes

import (
	"context"
	"encoding/json"
	"fmt"
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
	APIKey  string
	Timeout time.Duration
}

// Client talks to a spoonacular-compatible recipe API.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	apiKey  string
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
		http:    integrations.NewHTTPClient("greenbite-recipes", cfg.Timeout),
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// FindByIngredients returns up to number recipes using the given ingredients.
func (c *Client) FindByIngredients(ctx context.Context, ingredients []string, number int) ([]domain.Recipe, error) {
	if c.apiKey == "" {
		return nil, domain.Unavailable("recipe api key not configured", nil)
	}
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("ingredients", strings.Join(ingredients, ","))
	args.Set("number", strconv.Itoa(number))
	args.Set("apiKey", c.apiKey)

	var out []domain.Recipe
	if err := c.getJSON(ctx, c.baseURL+"/recipes/findByIngredients?"+args.String(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

type information struct {
	SourceURL string `json:"sourceUrl"`
}

// SourceURL looks up the original page of a recipe.
func (c *Client) SourceURL(ctx context.Context, id int) (string, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("apiKey", c.apiKey)

	var out information
	if err := c.getJSON(ctx, fmt.Sprintf("%s/recipes/%d/information?%s", c.baseURL, id, args.String()), &out); err != nil {
		return "", err
	}
	return out.SourceURL, nil
}

func (c *Client) getJSON(ctx context.Context, uri string, dst interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := integrations.Do(ctx, c.http, req, resp, c.timeout); err != nil {
		return err
	}
	if !integrations.IsSuccess(resp.StatusCode()) {
		return domain.Unavailable("recipe api failed", fmt.Errorf("status %d", resp.StatusCode()))
	}
	if err := json.Unmarshal(resp.Body(), dst); err != nil {
		return domain.Unavailable("recipe api returned malformed json", err)
	}
	return nil
}
