package render

import (
	"context"
	"net/http"

	"portico/internal/dispatch"
	"portico/pkg/platform/httputil"
)

// NewSignOutRenderer settles sign-out exchanges. Without response
// parameters it writes 204 No Content; with them (a post-logout redirect,
// a confirmation flag) it writes them as a 200 JSON body.
func NewSignOutRenderer() dispatch.Handler {
	return dispatch.HandlerFunc(func(_ context.Context, ex *dispatch.Exchange) error {
		payload := ex.Transaction().Response().Payload()
		if len(payload) == 0 {
			ex.Writer().WriteHeader(http.StatusNoContent)
			return ex.MarkHandled()
		}
		httputil.WriteJSON(ex.Writer(), http.StatusOK, payload)
		return ex.MarkHandled()
	})
}
