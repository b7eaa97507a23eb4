// Package domain holds shared domain primitives.
//
// ID types are distinct named types over uuid.UUID so they cannot be mixed
// up at compile time. Construct from external input via the Parse functions,
// which enforce validity at trust boundaries; direct casting bypasses
// validation and is reserved for internal code that already holds a UUID.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// TransactionID identifies one request-mediation transaction.
type TransactionID uuid.UUID

// NewTransactionID returns a fresh random transaction ID.
func NewTransactionID() TransactionID {
	return TransactionID(uuid.New())
}

// ParseTransactionID validates and returns a TransactionID.
// Rejects empty input, malformed UUIDs, and the nil UUID.
func ParseTransactionID(s string) (TransactionID, error) {
	if s == "" {
		return TransactionID{}, fmt.Errorf("transaction id is empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return TransactionID{}, fmt.Errorf("parse transaction id: %w", err)
	}
	if parsed == uuid.Nil {
		return TransactionID{}, fmt.Errorf("transaction id is nil")
	}
	return TransactionID(parsed), nil
}

// String returns the canonical UUID string form.
func (id TransactionID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero value.
func (id TransactionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
