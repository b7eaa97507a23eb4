// Package requesttime pins one "now" per HTTP request so audit timestamps
// and time-sensitive checks within a request agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"portico/pkg/requestcontext"
)

// Middleware stamps the request context with the arrival time.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
