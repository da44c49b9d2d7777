/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboard clients

ROUTE GROUPS:
  /api/obligations/*    Obligation and payment operations
  /api/owners/*         Balance and settlement views
  /api/settlements/*    Settlement lifecycle
  /api/admin/*          Owner/apartment registration, manual sweep
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/atrium/property-ledger/metrics"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Obligation routes
		r.Route("/obligations", func(r chi.Router) {
			r.Post("/", h.CreateObligation)
			r.Get("/", h.ListObligations)
			r.Get("/{id}", h.GetObligation)
			r.Get("/{id}/payments", h.ListObligationPayments)
			r.Post("/{id}/payments", h.RecordPayment)
		})

		// Owner routes
		r.Route("/owners", func(r chi.Router) {
			r.Get("/{id}/balance", h.GetOwnerBalance)
			r.Get("/{id}/settlement", h.ComputeSettlement)
			r.Get("/{id}/settlements", h.ListOwnerSettlements)
		})

		// Settlement routes
		r.Route("/settlements", func(r chi.Router) {
			r.Post("/", h.RecordSettlement)
			r.Get("/{id}", h.GetSettlement)
			r.Post("/{id}/settle", h.Settle)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/owners", h.RegisterOwner)
			r.Post("/apartments", h.RegisterApartment)
			r.Post("/sweep", h.TriggerSweep)
		})
	})

	// Prometheus metrics
	r.Handle("/metrics", metrics.Handler())

	return r
}
