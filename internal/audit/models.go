package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategorySecurity covers events relevant to security monitoring and forensics.
	// These feed into SIEM systems and alerting pipelines.
	// Examples: rejected operations, revoked tokens, unresolved protocol errors.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled or aggregated with shorter retention.
	// Examples: handled requests, completed sign-ins, issued challenges.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the mediation lifecycle to capture key actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time
	TransactionID string
	RequestID     string
	// Op is the mediated operation the event belongs to
	// (request, challenge, sign_in, sign_out, error).
	Op      string
	Action  string
	Outcome string
	// Reason carries the protocol error code when the event records a
	// rejection or an escalation.
	Reason  string
	Subject string
	// ClientIP is kept for security forensics on rejection events.
	ClientIP string
}

type AuditEvent string

const (
	// Lifecycle events
	EventRequestHandled   AuditEvent = "request_handled"
	EventChallengeIssued  AuditEvent = "challenge_issued"
	EventSignInCompleted  AuditEvent = "sign_in_completed"
	EventSignOutCompleted AuditEvent = "sign_out_completed"
	EventErrorResolved    AuditEvent = "error_resolved"
	EventErrorUnresolved  AuditEvent = "error_unresolved"

	// Handler events
	EventTokenRejected     AuditEvent = "token_rejected"
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

// eventCategories maps each audit event to its category.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	// Security events - feed into SIEM and alerting
	EventErrorResolved:     CategorySecurity,
	EventErrorUnresolved:   CategorySecurity,
	EventTokenRejected:     CategorySecurity,
	EventRateLimitExceeded: CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventRequestHandled:   CategoryOperations,
	EventChallengeIssued:  CategoryOperations,
	EventSignInCompleted:  CategoryOperations,
	EventSignOutCompleted: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
