// Package recovery converts handler panics into opaque server errors.
package recovery

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	dErrors "portico/pkg/domain-errors"
	"portico/pkg/platform/httputil"
	"portico/pkg/requestcontext"
)

// Middleware recovers panics from downstream handlers, logs them with a
// stack trace and answers with a generic internal error. http.ErrAbortHandler
// is re-raised so the server's own abort path keeps working.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic while serving request",
					"request_id", requestcontext.RequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal server error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
