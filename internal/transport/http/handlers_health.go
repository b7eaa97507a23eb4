package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"portico/pkg/platform/httputil"
)

// healthCheckTimeout bounds each dependency probe so a hung backend cannot
// stall the health endpoint.
const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves liveness plus optional dependency checks.
type HealthHandler struct {
	logger *slog.Logger
	names  []string
	checks map[string]HealthCheck
}

// NewHealthHandler constructs a health handler with no checks.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		logger: logger,
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a named dependency probe. Nil checks are ignored so
// callers can pass optional backends straight through.
func (h *HealthHandler) AddCheck(name string, check HealthCheck) {
	if check == nil {
		return
	}
	if _, dup := h.checks[name]; !dup {
		h.names = append(h.names, name)
	}
	h.checks[name] = check
}

// Register mounts the health endpoint.
func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/healthz", h.HandleHealth)
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for _, name := range h.names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			h.logger.WarnContext(r.Context(), "health check failed",
				"check", name,
				"error", err,
			)
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"failed": failed,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
