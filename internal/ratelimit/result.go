// Package ratelimit throttles request exchanges before any protocol
// handling happens. The handler consults a window store keyed by client and
// rejects over-limit requests; store implementations live under store/.
package ratelimit

import (
	"strings"
	"time"
)

// Result is the outcome of one window check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is the wait in whole seconds, set only when not allowed.
	RetryAfter int
}

// SanitizeKeySegment escapes delimiter characters in throttle key segments
// so a client-controlled value containing ':' cannot address an adjacent
// bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
