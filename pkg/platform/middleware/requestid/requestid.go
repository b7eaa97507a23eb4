// Package requestid assigns each request a correlation ID.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"portico/pkg/requestcontext"
)

// Header carries the request ID to clients and accepts one from trusted
// upstream proxies.
const Header = "X-Request-ID"

// Middleware stores a request ID in the context and echoes it on the
// response. An inbound X-Request-ID is reused so traces correlate across
// hops; otherwise a fresh UUID is minted.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
