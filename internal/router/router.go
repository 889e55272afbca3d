package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/greenbite/api/handler"
)

type Handlers struct {
	Auth     *apiHandler.AuthHandler
	Profile  *apiHandler.ProfileHandler
	Access   *apiHandler.AccessHandler
	Item     *apiHandler.ItemHandler
	Donation *apiHandler.DonationHandler
	Recipe   *apiHandler.RecipeHandler
	Admin    *apiHandler.AdminHandler
	Health   *apiHandler.HealthHandler
	Metrics  fasthttp.RequestHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// Guards bundles the middleware chain. View returns the guard for a named view.
type Guards struct {
	Auth      Middleware
	RateLimit Middleware
	View      func(view string) Middleware
}

func New(handlers Handlers, guards Guards) *router.Router {
	r := router.New()

	token := guards.Auth
	role := func(view string, h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return token(guards.View(view)(h))
	}
	limited := guards.RateLimit
	if limited == nil {
		limited = func(h fasthttp.RequestHandler) fasthttp.RequestHandler { return h }
	}

	r.GET("/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		r.GET("/metrics", handlers.Metrics)
	}

	// Auth routes
	r.POST("/api/v1/auth/signup", limited(handlers.Auth.SignUp))
	r.POST("/api/v1/auth/login", limited(handlers.Auth.Login))
	r.POST("/api/v1/auth/refresh", token(handlers.Auth.Refresh))
	r.POST("/api/v1/auth/logout", token(handlers.Auth.Logout))

	r.GET("/api/v1/me", token(handlers.Profile.Me))
	r.GET("/api/v1/access/{view}", token(handlers.Access.Check))

	// Donor routes
	r.GET("/api/v1/profile", role("account", handlers.Profile.GetProfile))
	r.PUT("/api/v1/profile", role("account", handlers.Profile.UpdateProfile))

	r.GET("/api/v1/items", role("items", handlers.Item.List))
	r.POST("/api/v1/items", role("items", handlers.Item.Create))
	r.POST("/api/v1/items/scan-expiry", role("items", handlers.Item.ScanExpiry))
	r.PUT("/api/v1/items/{id}", role("items", handlers.Item.Update))
	r.DELETE("/api/v1/items/{id}", role("items", handlers.Item.Delete))
	r.POST("/api/v1/items/{id}/alert", role("items", handlers.Item.ToggleAlert))
	r.POST("/api/v1/items/{id}/image", role("items", handlers.Item.UploadImage))
	r.GET("/api/v1/dashboard", role("dashboard", handlers.Item.Dashboard))

	r.GET("/api/v1/donations/ngos", role("donations", handlers.Donation.ListNgos))
	r.GET("/api/v1/donations/items", role("donations", handlers.Donation.ListItems))
	r.POST("/api/v1/donations", role("donations", handlers.Donation.Create))

	r.POST("/api/v1/recipes/suggest", role("dashboard", handlers.Recipe.Suggest))

	// NGO routes
	r.GET("/api/v1/ngo/donations", role("ngo", handlers.Donation.ListReceived))
	r.GET("/api/v1/ngo/donations/stream", role("ngo", handlers.Donation.Stream))
	r.POST("/api/v1/ngo/donations/{id}/accept", role("ngo", handlers.Donation.Accept))

	// Admin routes
	r.GET("/api/v1/admin/users", role("admin", handlers.Admin.ListUsers))
	r.GET("/api/v1/admin/ngos/pending", role("admin", handlers.Admin.ListPending))
	r.GET("/api/v1/admin/ngos", role("admin", handlers.Admin.ListApproved))
	r.POST("/api/v1/admin/ngos/{id}/approve", role("admin", handlers.Admin.Approve))
	r.POST("/api/v1/admin/ngos/{id}/reject", role("admin", handlers.Admin.Reject))

	return r
}
