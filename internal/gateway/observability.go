package gateway

import (
	"context"

	"portico/internal/audit"
	"portico/internal/dispatch"
	"portico/internal/txn"
	"portico/pkg/attrs"
	"portico/pkg/requestcontext"
)

// eventForOp maps a settled operation to its lifecycle audit event.
func eventForOp(op dispatch.Op) audit.AuditEvent {
	switch op {
	case dispatch.OpChallenge:
		return audit.EventChallengeIssued
	case dispatch.OpSignIn:
		return audit.EventSignInCompleted
	case dispatch.OpSignOut:
		return audit.EventSignOutCompleted
	default:
		return audit.EventRequestHandled
	}
}

// logAudit writes a structured audit log line and publishes the matching
// audit event. Attributes follow the slog key-value convention; a "reason"
// attribute is lifted into the event's Reason field.
func (g *Gateway) logAudit(ctx context.Context, t *txn.Transaction, ex *dispatch.Exchange, action audit.AuditEvent, attributes ...any) {
	requestID := t.RequestID()

	args := append([]any{
		"event", string(action),
		"log_type", "audit",
		"op", string(ex.Op()),
		"outcome", ex.Outcome().String(),
		"request_id", requestID,
	}, attributes...)
	g.logger.InfoContext(ctx, string(action), args...)

	if g.audit == nil {
		return
	}

	event := audit.Event{
		TransactionID: t.ID().String(),
		RequestID:     requestID,
		Op:            string(ex.Op()),
		Action:        string(action),
		Outcome:       ex.Outcome().String(),
		Reason:        attrs.ExtractString(attributes, "reason"),
		Subject:       attrs.ExtractString(attributes, "subject"),
		ClientIP:      requestcontext.ClientIP(ctx),
	}
	if event.Subject == "" {
		if principal := t.Principal(); principal != nil {
			event.Subject = principal.Subject
		}
	}

	if err := g.audit.Emit(ctx, event); err != nil {
		g.logger.WarnContext(ctx, "failed to publish audit event",
			"event", string(action),
			"error", err,
			"request_id", requestID,
		)
	}
}
