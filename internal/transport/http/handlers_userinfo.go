package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"portico/pkg/platform/httputil"
	"portico/pkg/requestcontext"
)

// UserinfoHandler serves the userinfo endpoint from the ambient principal.
// Authentication happened during mediation; this handler only reads the
// result and challenges when there is none.
type UserinfoHandler struct {
	gateway Mediator
	logger  *slog.Logger
}

// NewUserinfoHandler constructs the userinfo handler.
func NewUserinfoHandler(gw Mediator, logger *slog.Logger) *UserinfoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserinfoHandler{gateway: gw, logger: logger}
}

// Register mounts the userinfo endpoint on the router.
func (h *UserinfoHandler) Register(r chi.Router) {
	r.Get("/userinfo", h.HandleUserinfo)
}

// HandleUserinfo handles GET /userinfo requests.
func (h *UserinfoHandler) HandleUserinfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal, err := h.gateway.Authenticate(r)
	if err != nil {
		h.logger.ErrorContext(ctx, "userinfo authentication lookup failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if principal == nil {
		if _, err := h.gateway.Challenge(w, r, nil); err != nil {
			h.logger.ErrorContext(ctx, "userinfo challenge failed",
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, err)
		}
		return
	}

	doc := map[string]any{"sub": principal.Subject}
	for key, value := range principal.Claims {
		// exp is carried internally as time.Time; the wire format is the
		// usual unix timestamp.
		if t, ok := value.(time.Time); ok {
			doc[key] = t.Unix()
			continue
		}
		doc[key] = value
	}

	h.logger.InfoContext(ctx, "userinfo served",
		"request_id", requestID,
		"subject", principal.Subject,
	)
	httputil.WriteJSON(w, http.StatusOK, doc)
}
