// Package postgres persists audit events in the audit_events table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"portico/internal/audit"
)

// Store implements audit.Store on PostgreSQL. Direct writes generate an
// event ID; the Kafka consumer materializes with AppendWithID so both paths
// share one table and stay idempotent.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes an audit event under a fresh ID.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	return s.AppendWithID(ctx, uuid.New(), event)
}

// AppendWithID inserts an audit event with a caller-supplied ID. Duplicate
// inserts are ignored via ON CONFLICT DO NOTHING, which makes redelivery
// from the Kafka consumer safe.
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	// The eventCategories map is the source of truth for categories.
	category := audit.AuditEvent(event.Action).Category()

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, transaction_id, request_id,
			op, action, outcome, reason, subject, client_ip
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(category),
		event.Timestamp,
		event.TransactionID,
		event.RequestID,
		event.Op,
		event.Action,
		event.Outcome,
		event.Reason,
		event.Subject,
		event.ClientIP,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByTransaction returns events recorded for a single mediated request,
// oldest first.
func (s *Store) ListByTransaction(ctx context.Context, transactionID string) ([]audit.Event, error) {
	query := `
		SELECT timestamp, transaction_id, request_id,
			   op, action, outcome, reason, subject, client_ip
		FROM audit_events
		WHERE transaction_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListRecent returns the N most recent events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT timestamp, transaction_id, request_id,
			   op, action, outcome, reason, subject, client_ip
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

func (s *Store) scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var event audit.Event
		err := rows.Scan(
			&event.Timestamp,
			&event.TransactionID,
			&event.RequestID,
			&event.Op,
			&event.Action,
			&event.Outcome,
			&event.Reason,
			&event.Subject,
			&event.ClientIP,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
