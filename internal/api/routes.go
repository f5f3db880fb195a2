package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shiptrack/internal/metrics"
)

// requestTimeout applies to every non-streaming request.
const requestTimeout = 30 * time.Second

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.Logger))
	r.Use(corsHandler(s.Config.AllowOrigins))
	if s.Config.RateRPS > 0 {
		r.Use(newRateLimiter(s.Config.RateRPS, s.Config.RateBurst).Handler)
	}
	r.Use(instrument)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
	})

	r.Get("/healthz", s.HealthHandler)
	r.Get("/readyz", s.ReadyHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/debug/config", s.DebugJSON)
	r.Get("/openapi.json", s.OpenAPIHandler)
	r.Get("/docs", s.DocsHandler)

	r.Route("/v1", func(r chi.Router) {
		// Streams stay open past the request timeout.
		r.Get("/sessions/{id}/events/stream", s.SessionStreamHandler)
		r.Get("/sessions/{id}/ws", s.SessionWSHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Post("/sessions", s.CreateSessionHandler)
			r.Get("/sessions", s.ListSessionsHandler)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", s.GetSessionHandler)
				r.Delete("/", s.DeleteSessionHandler)
				r.Put("/{slot}", s.LoadSlotHandler)
				r.Delete("/{slot}", s.ClearSlotHandler)
				r.Post("/swap", s.SwapHandler)
				r.Post("/clear", s.ClearHandler)
				r.Put("/thresholds", s.ThresholdsHandler)

				r.Get("/analysis", s.AnalysisHandler)
				r.Get("/status", s.StatusHandler)
				r.Get("/summary", s.SummaryHandler)
				r.Get("/route", s.RouteHandler)
				r.Get("/milestones", s.MilestonesHandler)
				r.Get("/timeline", s.TimelineHandler)
				r.Get("/comparison", s.ComparisonHandler)
				r.Get("/alerts", s.AlertsHandler)
				r.Get("/insights", s.InsightsHandler)
			})

			r.Get("/history", s.ListHistoryHandler)
			r.With(s.requireAdmin).Delete("/history", s.ClearHistoryHandler)
			r.Get("/history/{key}", s.GetHistoryHandler)
			r.Delete("/history/{key}", s.DeleteHistoryHandler)
			r.Post("/history/{key}/load", s.LoadHistoryHandler)

			r.Get("/locations/{code}", s.LocationHandler)
			r.Post("/docstore/query", s.DocStoreQueryHandler)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/subscriptions", s.CreateSubscriptionHandler)
				r.Get("/subscriptions", s.ListSubscriptionsHandler)
				r.Delete("/subscriptions/{id}", s.DeleteSubscriptionHandler)
				r.Get("/admin/webhook-deliveries", s.WebhookDeliveriesHandler)
				r.Post("/admin/webhook-deliveries/{id}/retry", s.WebhookDeliveryRetryHandler)
			})
		})
	})
	return r
}
