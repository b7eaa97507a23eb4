package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"portico/pkg/platform/httputil"
	"portico/pkg/requestcontext"
)

// LogoutHandler runs the sign-out operation for the logout endpoint.
type LogoutHandler struct {
	gateway Mediator
	logger  *slog.Logger
}

// NewLogoutHandler constructs the logout handler.
func NewLogoutHandler(gw Mediator, logger *slog.Logger) *LogoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogoutHandler{gateway: gw, logger: logger}
}

// Register mounts the logout endpoint. Both verbs are accepted: GET for
// RP-initiated logout redirects, POST for API clients.
func (h *LogoutHandler) Register(r chi.Router) {
	r.Get("/connect/logout", h.HandleLogout)
	r.Post("/connect/logout", h.HandleLogout)
}

// HandleLogout handles /connect/logout requests.
func (h *LogoutHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	handled, err := h.gateway.SignOut(w, r)
	if err != nil {
		h.logger.ErrorContext(ctx, "sign-out failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !handled {
		// The pipeline declined the sign-out. There is no host session
		// machinery behind it, so acknowledge with no content.
		w.WriteHeader(http.StatusNoContent)
	}
}
