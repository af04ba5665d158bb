package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/solodex/pkg/metrics"
)

// BackendNamer reports the active store backend.
type BackendNamer interface {
	Backend() string
}

// HealthHandler handles health check and metrics requests.
type HealthHandler struct {
	backend BackendNamer
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(backend BackendNamer) *HealthHandler {
	return &HealthHandler{backend: backend}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": h.backend.Backend(),
	})
}

// MetricsHandler serves the private metrics registry.
func (h *HealthHandler) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
