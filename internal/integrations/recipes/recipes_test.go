package recipes

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/usecase/recipe"
)

var _ recipe.Finder = (*Client)(nil)

func startAPI(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = fasthttp.Serve(ln, handler) }()
	t.Cleanup(func() { _ = ln.Close() })

	c := New(Config{URL: "http://recipes.local", APIKey: "k", Timeout: time.Second}, nil)
	c.http.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }
	return c
}

func TestFindByIngredientsAndSourceURL(t *testing.T) {
	c := startAPI(t, func(ctx *fasthttp.RequestCtx) {
		args := ctx.QueryArgs()
		assert.Equal(t, "k", string(args.Peek("apiKey")))
		switch string(ctx.Path()) {
		case "/recipes/findByIngredients":
			assert.Equal(t, "milk,eggs", string(args.Peek("ingredients")))
			assert.Equal(t, "5", string(args.Peek("number")))
			ctx.SetBodyString(`[{"id":7,"title":"Custard","usedIngredientCount":2,"missedIngredientCount":1}]`)
		case "/recipes/7/information":
			ctx.SetBodyString(`{"id":7,"sourceUrl":"https://example.org/custard"}`)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	})

	found, err := c.FindByIngredients(context.Background(), []string{"milk", "eggs"}, 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Custard", found[0].Title)

	url, err := c.SourceURL(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/custard", url)
}

func TestFindByIngredientsErrors(t *testing.T) {
	c := startAPI(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusPaymentRequired)
	})
	_, err := c.FindByIngredients(context.Background(), []string{"rice"}, 5)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))

	_, err = New(Config{URL: "http://recipes.local"}, nil).FindByIngredients(context.Background(), []string{"rice"}, 5)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
}
