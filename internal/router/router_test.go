package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	frouter "github.com/fasthttp/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"

	apiHandler "github.com/fastygo/greenbite/api/handler"
	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/internal/middleware"
	"github.com/fastygo/greenbite/pkg/httpcontext"
	"github.com/fastygo/greenbite/repository"
	"github.com/fastygo/greenbite/repository/memory"
	approvalUC "github.com/fastygo/greenbite/usecase/approval"
	authUC "github.com/fastygo/greenbite/usecase/auth"
	donationUC "github.com/fastygo/greenbite/usecase/donation"
	guardUC "github.com/fastygo/greenbite/usecase/guard"
	inventoryUC "github.com/fastygo/greenbite/usecase/inventory"
	profileUC "github.com/fastygo/greenbite/usecase/profile"
	roleUC "github.com/fastygo/greenbite/usecase/role"
)

type downNotifier struct{}

func (downNotifier) SendApprovalEmail(ctx context.Context, mail domain.ApprovalEmail) error {
	return errors.New("relay unreachable")
}

type testEnv struct {
	router     *frouter.Router
	dir        repository.Directory
	identities *memory.IdentityStore
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	feed := memory.NewFeed()
	dir := repository.Observe(store, feed, nil)
	identities := memory.NewIdentityStore()
	adapter := httpcontext.NewAdapter(time.Second)

	resolver := roleUC.New(dir, nil)
	routeGuard := guardUC.New(resolver, time.Second, nil)
	auth := authUC.New(identities, memory.NewSessionStore(time.Hour), dir, feed, authUC.Config{
		Tokens: authUC.TokenConfig{Secret: "router-test"},
	}, nil)
	approval := approvalUC.New(dir, store, downNotifier{}, nil, approvalUC.Config{ConfirmSecret: "admin"}, nil)

	r := New(Handlers{
		Auth:     apiHandler.NewAuthHandler(auth, adapter, nil, time.Hour, 24*time.Hour),
		Profile:  apiHandler.NewProfileHandler(profileUC.New(dir, resolver, nil, nil), adapter, nil),
		Access:   apiHandler.NewAccessHandler(routeGuard, adapter, nil),
		Item:     apiHandler.NewItemHandler(inventoryUC.New(dir, nil, nil, nil, nil), adapter, nil),
		Donation: apiHandler.NewDonationHandler(donationUC.New(dir, feed, nil, nil), adapter, nil),
		Admin:    apiHandler.NewAdminHandler(approval, adapter, nil),
	}, Guards{
		Auth: middleware.JWTAuth(auth, time.Second, nil),
		View: func(view string) Middleware {
			return middleware.RequireView(routeGuard, view, nil)
		},
	})
	return &testEnv{router: r, dir: dir, identities: identities}
}

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Meta   json.RawMessage `json:"meta"`
}

func (e *testEnv) do(t *testing.T, method, uri, token string, body interface{}) (int, envelope) {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if token != "" {
		ctx.Request.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		ctx.Request.SetBody(raw)
	}
	e.router.Handler(&ctx)

	var env envelope
	if len(ctx.Response.Body()) > 0 {
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env), string(ctx.Response.Body()))
	}
	return ctx.Response.StatusCode(), env
}

func (e *testEnv) signUp(t *testing.T, email, role string) (string, string) {
	t.Helper()
	status, env := e.do(t, fasthttp.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": email, "password": "secret1", "role": role, "name": "Test " + role,
	})
	require.Equal(t, fasthttp.StatusCreated, status)
	var res struct {
		Identity domain.Identity `json:"identity"`
		Token    string          `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.Identity.ID, res.Token
}

func (e *testEnv) admin(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.identities.Create(ctx, &domain.Credentials{ID: "a1", Email: "admin@example.com", PasswordHash: string(hash)}))
	require.NoError(t, e.dir.Set(ctx, domain.AdminPath("a1"), domain.AdminProfile{ID: "a1", Role: domain.RoleAdmin}))

	status, env := e.do(t, fasthttp.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "admin-pass",
	})
	require.Equal(t, fasthttp.StatusOK, status)
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.Token
}

func TestDonorRoutes(t *testing.T) {
	env := newEnv(t)
	_, token := env.signUp(t, "donor@example.com", domain.RoleUser)

	status, _ := env.do(t, fasthttp.MethodGet, "/api/v1/items", "", nil)
	assert.Equal(t, fasthttp.StatusUnauthorized, status)

	status, _ = env.do(t, fasthttp.MethodPost, "/api/v1/items", token, map[string]interface{}{
		"name": "Milk", "quantity": 2, "expiryDate": "2030-01-01",
	})
	assert.Equal(t, fasthttp.StatusCreated, status)

	status, body := env.do(t, fasthttp.MethodGet, "/api/v1/items", token, nil)
	require.Equal(t, fasthttp.StatusOK, status)
	var items []domain.FoodItem
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].Name)

	status, body = env.do(t, fasthttp.MethodGet, "/api/v1/admin/users", token, nil)
	assert.Equal(t, fasthttp.StatusForbidden, status)
	assert.Contains(t, string(body.Meta), guardUC.RoleSelectionPath)
}

func TestPendingNgoIsKeptOutUntilApproved(t *testing.T) {
	env := newEnv(t)
	ngoID, ngoToken := env.signUp(t, "ngo@example.com", domain.RoleNgo)

	status, _ := env.do(t, fasthttp.MethodGet, "/api/v1/ngo/donations", ngoToken, nil)
	assert.Equal(t, fasthttp.StatusForbidden, status)

	adminToken := env.admin(t)
	status, body := env.do(t, fasthttp.MethodPost, "/api/v1/admin/ngos/"+ngoID+"/approve", adminToken, nil)
	require.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, string(domain.ErrCodePartial), body.Code, "email failure is reported as a warning")
	assert.JSONEq(t, `{"warning":"`+domain.ErrNotificationFailed.Message+`"}`, string(body.Meta))

	status, _ = env.do(t, fasthttp.MethodGet, "/api/v1/ngo/donations", ngoToken, nil)
	assert.Equal(t, fasthttp.StatusOK, status)

	status, _ = env.do(t, fasthttp.MethodPost, "/api/v1/admin/ngos/"+ngoID+"/reject", adminToken, map[string]interface{}{
		"pending": false, "confirmation": "wrong",
	})
	assert.Equal(t, fasthttp.StatusUnauthorized, status)
}

func TestAccessCheckAndLogout(t *testing.T) {
	env := newEnv(t)
	_, token := env.signUp(t, "donor@example.com", domain.RoleUser)

	status, body := env.do(t, fasthttp.MethodGet, "/api/v1/access/items", token, nil)
	require.Equal(t, fasthttp.StatusOK, status)
	var decision guardUC.Decision
	require.NoError(t, json.Unmarshal(body.Data, &decision))
	assert.Equal(t, guardUC.Admitted, decision.State)

	status, _ = env.do(t, fasthttp.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, fasthttp.StatusOK, status)

	status, _ = env.do(t, fasthttp.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, fasthttp.StatusUnauthorized, status)
}
