// Package sentinel holds infrastructure-level sentinel errors. Stores and
// platform clients return these, optionally wrapped, so callers can branch
// with errors.Is and translate them into domain errors at the boundary.
package sentinel

import "errors"

var (
	// ErrNotFound means the entity does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrExpired means a token or credential is past its validity window.
	ErrExpired = errors.New("expired")
	// ErrInvalidState means the entity is in the wrong state for the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable means a backing service is temporarily unreachable.
	ErrUnavailable = errors.New("unavailable")
)
