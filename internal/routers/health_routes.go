package routers

import (
	"athena/interview/internal/handlers"
	"athena/interview/internal/metrics"

	"github.com/go-chi/chi/v5"
)

func HealthRoutes(router chi.Router, healthHandler *handlers.HealthHandler) {
	router.Get("/healthz", healthHandler.HealthzHandler)
	router.Get("/readyz", healthHandler.ReadyzHandler)
	router.Get("/api/v1/interview/healthz", healthHandler.HealthzHandler)
	router.Handle("/metrics", metrics.Handler())
}
