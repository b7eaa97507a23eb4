package gateway

import (
	"net/http"

	"portico/pkg/platform/httputil"
)

// Middleware mediates every request through the request pipeline. Handled
// requests are terminated here; pass-through requests continue to next with
// the transaction attached to the request context. Faults surface as an
// opaque server error so pipeline misconfiguration never leaks protocol
// details to clients.
func (g *Gateway) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handled, r, err := g.ProcessRequest(w, r)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			if handled {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
