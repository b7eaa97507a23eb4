package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"portico/internal/audit"
	"portico/internal/platform/kafka/consumer"
)

// MaterializedStore is the storage surface for consumed events. The event ID
// comes from the message key so redelivered messages collapse to one row.
type MaterializedStore interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// EventsHandler materializes audit events from the audit topic into the
// queryable store.
type EventsHandler struct {
	store  MaterializedStore
	logger *slog.Logger
}

// NewEventsHandler creates an audit event materializer.
func NewEventsHandler(store MaterializedStore, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{store: store, logger: logger}
}

// eventPayload matches the JSON structure the Kafka sink publishes.
type eventPayload struct {
	ID            string `json:"ID"`
	Category      string `json:"Category"`
	Timestamp     string `json:"Timestamp"`
	TransactionID string `json:"TransactionID"`
	RequestID     string `json:"RequestID"`
	Op            string `json:"Op"`
	Action        string `json:"Action"`
	Outcome       string `json:"Outcome"`
	Reason        string `json:"Reason"`
	Subject       string `json:"Subject"`
	ClientIP      string `json:"ClientIP"`
}

// Handle materializes one audit event. Poison messages are logged and
// committed; store failures are returned so the record is retried.
func (h *EventsHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to parse audit event ID",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var payload eventPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.WarnContext(ctx, "failed to unmarshal audit payload",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}

	event := audit.Event{
		TransactionID: payload.TransactionID,
		RequestID:     payload.RequestID,
		Op:            payload.Op,
		Action:        payload.Action,
		Outcome:       payload.Outcome,
		Reason:        payload.Reason,
		Subject:       payload.Subject,
		ClientIP:      payload.ClientIP,
	}

	if payload.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
			event.Timestamp = ts
		}
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to materialize audit event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("store audit event: %w", err)
	}

	return nil
}
