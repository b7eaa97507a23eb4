package render

import (
	"context"

	"portico/internal/dispatch"
)

// NewPassthrough returns the terminator for request exchanges nothing else
// claimed: it skips the exchange so the host falls through to its own mux.
// Register it for OpRequest with an order after every other handler;
// without it an unclaimed request leaves the exchange pending and the
// gateway escalates.
func NewPassthrough() dispatch.Handler {
	return dispatch.HandlerFunc(func(_ context.Context, ex *dispatch.Exchange) error {
		if ex.Settled() {
			return nil
		}
		return ex.MarkSkipped()
	})
}
