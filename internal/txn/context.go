package txn

import (
	"context"
	"net/http"

	"portico/pkg/requestcontext"
)

type transactionKey struct{}

// ContextKeyTransaction is exported for tests that need context.WithValue.
var ContextKeyTransaction = transactionKey{}

// FromContext returns the transaction cached on the context, or nil when the
// context carries none.
func FromContext(ctx context.Context) *Transaction {
	if t, ok := ctx.Value(ContextKeyTransaction).(*Transaction); ok {
		return t
	}
	return nil
}

// WithTransaction caches a transaction on the context.
func WithTransaction(ctx context.Context, t *Transaction) context.Context {
	return context.WithValue(ctx, ContextKeyTransaction, t)
}

// Acquire returns the request's transaction, creating and caching one when
// the request does not carry one yet. Repeated calls on the same request (or
// any request derived from its context) return the identical transaction, so
// a second logical pass over the same physical request reuses the first
// pass's state. The returned request must replace the caller's: it is the one
// whose context holds the transaction.
func Acquire(r *http.Request) (*Transaction, *http.Request) {
	ctx := r.Context()
	if t := FromContext(ctx); t != nil {
		return t, r
	}

	t := newTransaction(requestcontext.RequestID(ctx), requestcontext.Now(ctx))
	return t, r.WithContext(WithTransaction(ctx, t))
}
