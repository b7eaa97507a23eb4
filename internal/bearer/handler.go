package bearer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"portico/internal/audit"
	"portico/internal/dispatch"
	"portico/internal/oidc"
	"portico/internal/txn"
	"portico/pkg/platform/circuit"
	"portico/pkg/platform/sentinel"
	"portico/pkg/requestcontext"
)

// RevocationChecker is the consumer-side view of a revocation list.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuditPublisher publishes audit events without blocking the pipeline.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler resolves the Authorization header into an ambient principal.
//
// Requests without a bearer token pass through unsettled. Structurally bad,
// expired or revoked tokens reject the exchange with invalid_token. Valid
// tokens attach the principal to the transaction and leave the exchange
// unsettled so the request continues to the application.
//
// Revocation checks fail open: when the list is unreachable the token is
// trusted and the breaker records the failure, so transitions get logged
// once instead of per request. Token expiry bounds the exposure.
type Handler struct {
	validator  *Validator
	revocation RevocationChecker
	breaker    *circuit.Breaker
	logger     *slog.Logger
	audit      AuditPublisher
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRevocation enables revocation checks against the given list.
func WithRevocation(checker RevocationChecker) HandlerOption {
	return func(h *Handler) {
		h.revocation = checker
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithAuditPublisher wires rejection events into the audit trail.
func WithAuditPublisher(publisher AuditPublisher) HandlerOption {
	return func(h *Handler) {
		h.audit = publisher
	}
}

// NewHandler builds the bearer resolution handler around a validator.
// Without WithRevocation only signature and lifetime are checked.
func NewHandler(validator *Validator, opts ...HandlerOption) *Handler {
	h := &Handler{
		validator: validator,
		breaker:   circuit.New("revocation-list"),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *Handler) Handle(ctx context.Context, ex *dispatch.Exchange) error {
	authHeader := ex.Request().Header.Get("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return nil
	}

	claims, err := h.validator.Validate(token)
	if err != nil {
		if errors.Is(err, sentinel.ErrExpired) {
			return h.reject(ctx, ex, "the access token has expired")
		}
		return h.reject(ctx, ex, "the access token is invalid")
	}

	if h.isRevoked(ctx, claims.ID) {
		return h.reject(ctx, ex, "the access token has been revoked")
	}

	principal := &txn.Principal{
		Subject: claims.Subject,
		Claims: map[string]any{
			"scope":     claims.Scope,
			"client_id": claims.ClientID,
			"jti":       claims.ID,
		},
	}
	if claims.ExpiresAt != nil {
		principal.Claims["exp"] = claims.ExpiresAt.Time
	}
	ex.Transaction().SetPrincipal(principal)
	return nil
}

func (h *Handler) isRevoked(ctx context.Context, jti string) bool {
	if h.revocation == nil || jti == "" {
		return false
	}

	revoked, err := h.revocation.IsRevoked(ctx, jti)
	if err != nil {
		_, change := h.breaker.RecordFailure()
		if change.Opened {
			h.logger.ErrorContext(ctx, "revocation list unreachable, trusting tokens unchecked",
				"store", h.breaker.Name(),
				"error", err,
			)
		} else {
			h.logger.WarnContext(ctx, "revocation check failed, trusting token",
				"store", h.breaker.Name(),
				"error", err,
			)
		}
		return false
	}

	if _, change := h.breaker.RecordSuccess(); change.Closed {
		h.logger.InfoContext(ctx, "revocation list recovered", "store", h.breaker.Name())
	}
	return revoked
}

func (h *Handler) reject(ctx context.Context, ex *dispatch.Exchange, reason string) error {
	t := ex.Transaction()
	h.logger.InfoContext(ctx, string(audit.EventTokenRejected),
		"event", string(audit.EventTokenRejected),
		"log_type", "audit",
		"op", string(ex.Op()),
		"reason", reason,
		"request_id", t.RequestID(),
	)

	if h.audit != nil {
		event := audit.Event{
			TransactionID: t.ID().String(),
			RequestID:     t.RequestID(),
			Op:            string(ex.Op()),
			Action:        string(audit.EventTokenRejected),
			Outcome:       dispatch.OutcomeRejected.String(),
			Reason:        reason,
			ClientIP:      requestcontext.ClientIP(ctx),
		}
		if err := h.audit.Emit(ctx, event); err != nil {
			h.logger.WarnContext(ctx, "failed to publish audit event",
				"event", string(audit.EventTokenRejected),
				"error", err,
			)
		}
	}

	return ex.Reject(dispatch.Rejection{
		Code:        oidc.ErrorInvalidToken,
		Description: reason,
	})
}
