package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/auth"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/telemetry"
)

// Router bundles the handlers and middleware dependencies of the API.
type Router struct {
	Log         *zap.Logger
	Auth        *auth.Verifier
	CORSOrigins []string

	Health    *HealthHandler
	Events    *EventHandler
	Purchases *PurchaseHandler
	Webhooks  *WebhookHandler
	Tickets   *TicketHandler
}

// Handler builds the chi route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(telemetry.Middleware)
	r.Use(Metrics)
	r.Use(Logger(rt.Log))
	r.Use(CORS(rt.CORSOrigins))

	r.Get("/health", rt.Health.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/events", func(r chi.Router) {
		r.Get("/", rt.Events.ListEvents)
		r.Get("/{id}", rt.Events.GetEvent)
		r.Get("/{id}/price", rt.Events.GetPrice)
		r.With(rt.Auth.Middleware, auth.RequireRole(auth.RoleAdmin)).Post("/", rt.Events.CreateEvent)
	})

	r.Post("/purchases", rt.Purchases.Create)

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/payment", rt.Webhooks.Payment)
		r.Post("/stripe", rt.Webhooks.Stripe)
	})

	r.Route("/me", func(r chi.Router) {
		r.Use(rt.Auth.Middleware)
		r.Get("/tickets", rt.Tickets.ListMine)
		r.Get("/transactions/{id}", rt.Purchases.GetMyTransaction)
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Use(rt.Auth.Middleware)
		r.With(auth.RequireRole(auth.RoleStaff, auth.RoleAdmin)).Post("/validate", rt.Tickets.Validate)
		r.With(auth.RequireRole(auth.RoleAdmin)).Post("/{id}/void", rt.Tickets.Void)
	})

	return r
}
