// Package dispatch implements the outcome-dispatch protocol between the
// request gateway and the handler pipeline.
//
// Every lifecycle operation of a transaction travels through the pipeline as
// an Exchange. Handlers inspect the exchange and settle it with exactly one
// of three verdicts: Handled (a complete response was produced), Skipped (the
// pipeline declines and the caller falls back to default behavior), or
// Rejected (a protocol-level refusal carrying an error triple). Settlement is
// write-once; the pipeline stops running handlers once an exchange settles.
package dispatch

import (
	"errors"
	"net/http"

	"portico/internal/txn"
)

// Op names the lifecycle operation an exchange carries.
type Op string

const (
	OpRequest   Op = "request"
	OpChallenge Op = "challenge"
	OpSignIn    Op = "sign_in"
	OpSignOut   Op = "sign_out"
	OpError     Op = "error"
)

// Outcome is the pipeline's verdict for one exchange.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeHandled
	OutcomeSkipped
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// ErrSettled is returned by settlement methods when the exchange already
// carries a verdict. Outcomes are write-once.
var ErrSettled = errors.New("exchange outcome already settled")

// Rejection is the protocol error triple carried by a rejected exchange.
type Rejection struct {
	Code        string
	Description string
	URI         string
}

// Exchange is one dispatched lifecycle operation: the transaction, the
// operation kind, operation-specific input, and the pipeline's verdict.
// The embedded writer and request give terminal handlers the surface they
// need to produce the wire response.
type Exchange struct {
	op        Op
	txn       *txn.Transaction
	principal *txn.Principal

	writer  http.ResponseWriter
	request *http.Request

	outcome   Outcome
	rejection Rejection
}

// NewExchange builds an exchange for op over the given transaction.
func NewExchange(op Op, t *txn.Transaction, w http.ResponseWriter, r *http.Request) *Exchange {
	return &Exchange{op: op, txn: t, writer: w, request: r}
}

// NewSignInExchange builds the sign-in exchange, which alone carries a
// principal as operation input.
func NewSignInExchange(t *txn.Transaction, p *txn.Principal, w http.ResponseWriter, r *http.Request) *Exchange {
	return &Exchange{op: OpSignIn, txn: t, principal: p, writer: w, request: r}
}

// NewErrorExchange builds the secondary exchange for the escalation path,
// seeded with the rejection it is escalating.
func NewErrorExchange(t *txn.Transaction, rej Rejection, w http.ResponseWriter, r *http.Request) *Exchange {
	return &Exchange{op: OpError, txn: t, rejection: rej, writer: w, request: r}
}

// Op returns the operation kind.
func (e *Exchange) Op() Op {
	return e.op
}

// Transaction returns the transaction the exchange operates on.
func (e *Exchange) Transaction() *txn.Transaction {
	return e.txn
}

// Principal returns the sign-in input principal; nil for every other op.
func (e *Exchange) Principal() *txn.Principal {
	return e.principal
}

// Writer returns the response writer for terminal handlers.
func (e *Exchange) Writer() http.ResponseWriter {
	return e.writer
}

// Request returns the inbound request under mediation.
func (e *Exchange) Request() *http.Request {
	return e.request
}

// Outcome returns the current verdict.
func (e *Exchange) Outcome() Outcome {
	return e.outcome
}

// Settled reports whether a verdict has been recorded.
func (e *Exchange) Settled() bool {
	return e.outcome != OutcomePending
}

// Rejection returns the error triple recorded by Reject, or the seed triple
// of an error exchange. Zero value when the exchange was never rejected.
func (e *Exchange) Rejection() Rejection {
	return e.rejection
}

// MarkHandled records that a complete response was produced.
func (e *Exchange) MarkHandled() error {
	if e.Settled() {
		return ErrSettled
	}
	e.outcome = OutcomeHandled
	return nil
}

// MarkSkipped records that the pipeline declines the operation.
func (e *Exchange) MarkSkipped() error {
	if e.Settled() {
		return ErrSettled
	}
	e.outcome = OutcomeSkipped
	return nil
}

// Reject records a protocol-level refusal. The code may be empty; the
// escalation cascade applies the invalid_request default.
func (e *Exchange) Reject(rej Rejection) error {
	if e.Settled() {
		return ErrSettled
	}
	e.outcome = OutcomeRejected
	e.rejection = rej
	return nil
}
