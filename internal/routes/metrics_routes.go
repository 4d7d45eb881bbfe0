package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"packshop/internal/metrics"
)

func RegisterMetricsRoutes(r chi.Router, gatherer prometheus.Gatherer) {
	r.Method("GET", "/metrics", metrics.Handler(gatherer))
}
