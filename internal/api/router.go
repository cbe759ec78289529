package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gluk-w/claworc/launchpad-ai/internal/proxy"
)

// NewRouter wires the account-facing and admin routes.
func NewRouter(g *Generation, limiter *proxy.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	// Health (no auth)
	r.Get("/health", HealthCheck)

	r.Route("/v1", func(r chi.Router) {
		r.Use(proxy.AuthMiddleware)
		r.Use(limiter.Middleware)
		r.Post("/suggestions", g.Suggest)
		r.Get("/quota", g.Quota)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminAuth)

		r.Get("/plans", ListPlans)
		r.Post("/accounts", g.CreateAccount)
		r.Put("/accounts/{id}/plan", g.SetPlan)
		r.Get("/accounts/{id}/usage", g.AccountUsage)
		r.Post("/tokens", RegisterToken)
		r.Delete("/tokens/{account}", RevokeToken)
		r.Put("/tokens/{account}/disable", DisableToken)
		r.Put("/tokens/{account}/enable", EnableToken)
		r.Put("/keys", SyncKeys)
		r.Get("/usage", g.Usage)
	})
	return r
}
