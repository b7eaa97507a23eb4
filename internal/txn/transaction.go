// Package txn implements the per-request mediation transaction: the single
// correlation unit every lifecycle operation of one inbound request shares.
//
// A transaction is created at most once per physical request and cached on the
// request context, so re-entrant passes over the same request (for example the
// error re-dispatch after a rejection) observe the same instance. It is owned
// by one request flow at a time; the request-processing model guarantees
// single-flow progression, so the transaction carries no locking.
package txn

import (
	"time"

	id "portico/pkg/domain"
)

// Transaction correlates all lifecycle operations of one inbound request.
type Transaction struct {
	id        id.TransactionID
	requestID string
	createdAt time.Time

	principal *Principal
	props     map[string]any

	response *Response
}

func newTransaction(requestID string, createdAt time.Time) *Transaction {
	return &Transaction{
		id:        id.NewTransactionID(),
		requestID: requestID,
		createdAt: createdAt,
		props:     make(map[string]any),
		response:  &Response{},
	}
}

// ID returns the transaction identifier.
func (t *Transaction) ID() id.TransactionID {
	return t.id
}

// RequestID returns the identifier of the inbound request this transaction
// was created for. It is the only reference the transaction keeps to the
// request: a plain identifier, written once at creation, never an owning
// pointer that could extend the request's lifetime.
func (t *Transaction) RequestID() string {
	return t.requestID
}

// CreatedAt returns the transaction creation time.
func (t *Transaction) CreatedAt() time.Time {
	return t.createdAt
}

// Principal returns the ambient principal attached to the transaction, or
// nil when no identity has been established. Absence is a valid state, not
// an error.
func (t *Transaction) Principal() *Principal {
	return t.principal
}

// SetPrincipal attaches an ambient principal. The most recently set value
// wins; nil clears it.
func (t *Transaction) SetPrincipal(p *Principal) {
	t.principal = p
}

// Property returns a collaborator extension value by key.
func (t *Transaction) Property(key string) (any, bool) {
	v, ok := t.props[key]
	return v, ok
}

// SetProperty stores a collaborator extension value. The most recently set
// value wins.
func (t *Transaction) SetProperty(key string, value any) {
	t.props[key] = value
}

// Response returns the protocol response payload shared by every exchange
// derived from this transaction. Never nil.
func (t *Transaction) Response() *Response {
	return t.response
}

// ResetResponse replaces the response with a fresh empty payload and returns
// it. Entry points call this so each operation starts from a clean response
// rather than inheriting parameters from an earlier pass.
func (t *Transaction) ResetResponse() *Response {
	t.response = &Response{}
	return t.response
}

// Principal is the identity attached to a transaction. Claims are opaque to
// the mediation core; only the handler pipeline and the application interpret
// them.
type Principal struct {
	Subject string
	Claims  map[string]any
}
