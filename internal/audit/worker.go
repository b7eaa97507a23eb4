package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from the publisher's queue and persists them.
// Store failures are logged and the event is lost; the audit trail is
// fail-open so a sink outage never takes the mediation path down with it.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.ErrorContext(ctx, "audit event persistence failed",
						"action", event.Action,
						"request_id", event.RequestID,
						"error", err,
					)
				}
			}
		}
	}
}
