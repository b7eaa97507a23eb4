package httptransport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"portico/internal/platform/secrets"
	"portico/internal/txn"
	dErrors "portico/pkg/domain-errors"
	"portico/pkg/platform/httputil"
	"portico/pkg/requestcontext"
)

// DevTokenRequest is the request body for the development token route.
type DevTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Subject      string `json:"subject"`
	Scope        string `json:"scope,omitempty"`
}

// Validate implements httputil.Validatable.
func (r *DevTokenRequest) Validate() error {
	if strings.TrimSpace(r.ClientID) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "client_id is required")
	}
	if r.ClientSecret == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "client_secret is required")
	}
	if strings.TrimSpace(r.Subject) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	return nil
}

// DevTokenHandler mints access tokens for local development. It verifies the
// configured client credentials and runs the sign-in operation, which renders
// the token response. Production assemblies never mount it.
type DevTokenHandler struct {
	gateway    Mediator
	clientID   string
	secretHash string
	logger     *slog.Logger
}

// NewDevTokenHandler constructs the development token handler. The secret
// hash must be a bcrypt hash from secrets.Hash.
func NewDevTokenHandler(gw Mediator, clientID, secretHash string, logger *slog.Logger) *DevTokenHandler {
	if clientID == "" || secretHash == "" {
		panic("httptransport: dev token route requires client credentials")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DevTokenHandler{
		gateway:    gw,
		clientID:   clientID,
		secretHash: secretHash,
		logger:     logger,
	}
}

// Register mounts the development token endpoint.
func (h *DevTokenHandler) Register(r chi.Router) {
	r.Post("/dev/token", h.HandleToken)
}

// HandleToken handles POST /dev/token requests.
func (h *DevTokenHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DevTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if req.ClientID != h.clientID || secrets.Verify(req.ClientSecret, h.secretHash) != nil {
		h.logger.WarnContext(ctx, "dev sign-in refused",
			"request_id", requestID,
			"client_id", req.ClientID,
			"client_ip", requestcontext.ClientIP(ctx),
			"device", requestcontext.Device(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid client credentials"))
		return
	}

	principal := &txn.Principal{
		Subject: strings.TrimSpace(req.Subject),
		Claims: map[string]any{
			"client_id": req.ClientID,
			"scope":     req.Scope,
		},
	}

	handled, err := h.gateway.SignIn(w, r, principal)
	if err != nil {
		h.logger.ErrorContext(ctx, "dev sign-in failed",
			"request_id", requestID,
			"subject", principal.Subject,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !handled {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "sign-in pipeline produced no response"))
		return
	}

	h.logger.InfoContext(ctx, "dev sign-in completed",
		"request_id", requestID,
		"subject", principal.Subject,
		"device", requestcontext.Device(ctx),
	)
}
