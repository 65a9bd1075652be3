package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// HealthHandler serves liveness, readiness and version endpoints.
type HealthHandler struct {
	logger    *slog.Logger
	service   DataService
	wsMetrics func() map[string]interface{}
	version   string
	startedAt time.Time
}

// NewHealthHandler creates a health handler. wsMetrics may be nil.
func NewHealthHandler(service DataService, logger *slog.Logger, wsMetrics func() map[string]interface{}, version string) *HealthHandler {
	return &HealthHandler{
		logger:    logger.With(slog.String("component", "health_handler")),
		service:   service,
		wsMetrics: wsMetrics,
		version:   version,
		startedAt: time.Now(),
	}
}

// Routes returns the router for health endpoints
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)
	r.Get("/health/live", h.Live)
	r.Get("/version", h.Version)

	return r
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"dataset_loaded": h.service.HasDataset(),
		"cache":          h.service.CacheStats(),
	}
	if h.wsMetrics != nil {
		payload["websocket"] = h.wsMetrics()
	}
	render.JSON(w, r, payload)
}

// Ready handles GET /health/ready. The server is ready as soon as it
// can answer; a missing dataset is a normal state, not unreadiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"status": "ready"})
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"status": "alive"})
}

// Version handles GET /version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"version": h.version,
	})
}
