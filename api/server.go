/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for a local frontend

ROUTE GROUPS:
  /api/incomes/*          Incomes and statement import
  /api/reports/*          Quarterly and balance reports
  /api/payments/*         Tax payments
  /api/reconciliations    Settlement entries
  /api/taxes/*            Income tax schedules
  /                       Endpoint index

SECURITY NOTE:
  No authentication. The server is meant to listen on localhost for a
  single taxpayer.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/monotax/main.go: `monotax serve`
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
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

	r.Route("/api", func(r chi.Router) {
		r.Route("/incomes", func(r chi.Router) {
			r.Get("/", h.ListIncomes)
			r.Post("/", h.ImportStatement)
			r.Get("/taxer.csv", h.ExportTaxer)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/quarterly", h.QuarterlyReport)
			r.Get("/balance", h.BalanceReport)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Post("/{id}/apply", h.ApplyPayment)
			r.Post("/{id}/undo", h.UndoPayment)
		})

		r.Get("/reconciliations", h.ListReconciliations)

		r.Route("/taxes", func(r chi.Router) {
			r.Get("/", h.ListTaxes)
			r.Post("/", h.CreateTax)
			r.Get("/{name}", h.GetTax)
			r.Post("/{name}/rates", h.AddRateChange)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>monotax</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>monotax API</h1>
<ul>
<li><a href="/api/incomes">/api/incomes</a> - Incomes</li>
<li><a href="/api/reports/quarterly?year=current">/api/reports/quarterly</a> - Quarterly report</li>
<li><a href="/api/reports/balance">/api/reports/balance</a> - Balance report</li>
<li><a href="/api/payments">/api/payments</a> - Tax payments</li>
<li><a href="/api/taxes">/api/taxes</a> - Income tax schedules</li>
</ul>
</body>
</html>`))
	})

	return r
}
