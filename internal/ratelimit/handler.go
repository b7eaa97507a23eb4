package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"portico/internal/audit"
	"portico/internal/dispatch"
	"portico/internal/oidc"
	"portico/internal/ratelimit/metrics"
	"portico/pkg/requestcontext"
)

// WindowStore is the consumer-side view of a window store.
type WindowStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// AuditPublisher publishes audit events without blocking the pipeline.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// KeyFunc derives the throttle key for an exchange.
type KeyFunc func(ctx context.Context, ex *dispatch.Exchange) string

// ClientIPKey throttles by the client address stamped on the request
// context. Requests without one share a single bucket.
func ClientIPKey(ctx context.Context, _ *dispatch.Exchange) string {
	ip := requestcontext.ClientIP(ctx)
	if ip == "" {
		return "unknown"
	}
	return SanitizeKeySegment(ip)
}

// Handler throttles request exchanges against a window store.
//
// Store errors fail open: an unreachable window store admits the request
// and counts the miss, so throttling degrades to a no-op instead of an
// outage. Over-limit requests reject with temporarily_unavailable and a
// Retry-After header already set on the response writer.
type Handler struct {
	store   WindowStore
	limit   int
	window  time.Duration
	keyFor  KeyFunc
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   AuditPublisher
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithKeyFunc overrides how throttle keys are derived.
func WithKeyFunc(keyFor KeyFunc) HandlerOption {
	return func(h *Handler) {
		if keyFor != nil {
			h.keyFor = keyFor
		}
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

// WithMetrics wires Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithAuditPublisher wires rejection events into the audit trail.
func WithAuditPublisher(publisher AuditPublisher) HandlerOption {
	return func(h *Handler) {
		h.audit = publisher
	}
}

// NewHandler builds a throttling handler. It panics on a non-positive limit
// or window: those are assembly mistakes, caught at startup.
func NewHandler(store WindowStore, limit int, window time.Duration, opts ...HandlerOption) *Handler {
	if store == nil {
		panic("ratelimit: store must not be nil")
	}
	if limit <= 0 {
		panic("ratelimit: limit must be positive")
	}
	if window <= 0 {
		panic("ratelimit: window must be positive")
	}

	h := &Handler{
		store:  store,
		limit:  limit,
		window: window,
		keyFor: ClientIPKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *Handler) Handle(ctx context.Context, ex *dispatch.Exchange) error {
	key := h.keyFor(ctx, ex)

	result, err := h.store.Allow(ctx, key, h.limit, h.window)
	if err != nil {
		h.metrics.IncrementCheckErrors()
		h.logger.WarnContext(ctx, "rate limit check failed, admitting request",
			"key", key,
			"error", err,
		)
		return nil
	}

	if result.Allowed {
		h.metrics.IncrementAllowed()
		return nil
	}

	h.metrics.IncrementRejected()

	retryAfter := result.RetryAfter
	if retryAfter < 1 {
		retryAfter = 1
	}
	ex.Writer().Header().Set("Retry-After", strconv.Itoa(retryAfter))

	t := ex.Transaction()
	h.logger.InfoContext(ctx, string(audit.EventRateLimitExceeded),
		"event", string(audit.EventRateLimitExceeded),
		"log_type", "audit",
		"op", string(ex.Op()),
		"key", key,
		"limit", h.limit,
		"request_id", t.RequestID(),
	)
	if h.audit != nil {
		event := audit.Event{
			TransactionID: t.ID().String(),
			RequestID:     t.RequestID(),
			Op:            string(ex.Op()),
			Action:        string(audit.EventRateLimitExceeded),
			Outcome:       dispatch.OutcomeRejected.String(),
			Reason:        "request rate limit exceeded",
			ClientIP:      requestcontext.ClientIP(ctx),
		}
		if err := h.audit.Emit(ctx, event); err != nil {
			h.logger.WarnContext(ctx, "failed to publish audit event",
				"event", string(audit.EventRateLimitExceeded),
				"error", err,
			)
		}
	}

	return ex.Reject(dispatch.Rejection{
		Code:        oidc.ErrorTemporarilyUnavail,
		Description: "request rate limit exceeded",
	})
}
