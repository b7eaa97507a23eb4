// Package gateway mediates HTTP requests through the handler pipeline. It
// owns the transaction lifecycle: each entry point builds an outcome
// exchange, dispatches it, and settles the result, escalating rejections to
// the error pipeline before giving up.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"portico/internal/audit"
	"portico/internal/dispatch"
	"portico/internal/gateway/metrics"
	"portico/internal/oidc"
	"portico/internal/txn"
	dErrors "portico/pkg/domain-errors"
)

// Well-known property keys recognized by Challenge and Forbid. Values under
// these keys pre-populate the response before the pipeline runs.
const (
	PropertyError            = "error"
	PropertyErrorDescription = "error_description"
	PropertyErrorURI         = "error_uri"
)

// Dispatcher runs an exchange through the handler pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, ex *dispatch.Exchange) error
}

// AuditPublisher records mediation lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Gateway exposes the mediation entry points. All methods are safe for
// concurrent use across requests; a single request's calls are sequential.
type Gateway struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	audit      AuditPublisher
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for lifecycle and fault reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithAuditPublisher sets the publisher for audit events.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(g *Gateway) {
		g.audit = publisher
	}
}

// New creates a gateway dispatching through the given Dispatcher.
func New(dispatcher Dispatcher, opts ...Option) *Gateway {
	g := &Gateway{
		dispatcher: dispatcher,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProcessRequest mediates the current request through the request pipeline.
// It acquires the per-request transaction, creating it on first touch, and
// returns the request carrying it so callers can hand it downstream. The
// boolean reports whether a handler produced the response; false means the
// request is not protocol-relevant and the host should continue serving it.
func (g *Gateway) ProcessRequest(w http.ResponseWriter, r *http.Request) (bool, *http.Request, error) {
	t, r := txn.Acquire(r)
	ex := dispatch.NewExchange(dispatch.OpRequest, t, w, r)
	handled, err := g.run(r.Context(), t, ex)
	return handled, r, err
}

// Challenge asks the pipeline to demand authentication for the current
// request. The response is reset and pre-populated from the given properties
// under the well-known keys before the challenge pipeline runs.
func (g *Gateway) Challenge(w http.ResponseWriter, r *http.Request, props map[string]string) (bool, error) {
	t := txn.FromContext(r.Context())
	if t == nil {
		return false, dErrors.New(dErrors.CodeInvariantViolation, "challenge invoked outside a mediated request")
	}

	resp := t.ResetResponse()
	resp.SetError(props[PropertyError], props[PropertyErrorDescription], props[PropertyErrorURI])

	ex := dispatch.NewExchange(dispatch.OpChallenge, t, w, r)
	return g.run(r.Context(), t, ex)
}

// Forbid signals that the authenticated caller lacks permission. It runs the
// same challenge pipeline with the same properties so both paths settle and
// escalate identically.
func (g *Gateway) Forbid(w http.ResponseWriter, r *http.Request, props map[string]string) (bool, error) {
	return g.Challenge(w, r, props)
}

// SignIn asks the pipeline to establish a session for the given principal.
// The principal is required; sign-in with nothing to sign in is a caller bug
// and is refused before any handler runs.
func (g *Gateway) SignIn(w http.ResponseWriter, r *http.Request, principal *txn.Principal) (bool, error) {
	t := txn.FromContext(r.Context())
	if t == nil {
		return false, dErrors.New(dErrors.CodeInvariantViolation, "sign-in invoked outside a mediated request")
	}
	if principal == nil {
		return false, dErrors.New(dErrors.CodeInvalidInput, "sign-in requires a principal")
	}

	t.ResetResponse()
	ex := dispatch.NewSignInExchange(t, principal, w, r)
	return g.run(r.Context(), t, ex)
}

// SignOut asks the pipeline to terminate the current session.
func (g *Gateway) SignOut(w http.ResponseWriter, r *http.Request) (bool, error) {
	t := txn.FromContext(r.Context())
	if t == nil {
		return false, dErrors.New(dErrors.CodeInvariantViolation, "sign-out invoked outside a mediated request")
	}

	t.ResetResponse()
	ex := dispatch.NewExchange(dispatch.OpSignOut, t, w, r)
	return g.run(r.Context(), t, ex)
}

// Authenticate reports the principal validated earlier in the request, if
// any. It is read-only: no pipeline runs and no outcome is recorded. A nil
// principal with nil error means no credentials were presented, which
// callers typically answer with Challenge.
func (g *Gateway) Authenticate(r *http.Request) (*txn.Principal, error) {
	t := txn.FromContext(r.Context())
	if t == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "authenticate invoked outside a mediated request")
	}
	return t.Principal(), nil
}

func (g *Gateway) run(ctx context.Context, t *txn.Transaction, ex *dispatch.Exchange) (bool, error) {
	if err := g.dispatch(ctx, ex); err != nil {
		return false, err
	}
	return g.resolve(ctx, t, ex)
}

func (g *Gateway) dispatch(ctx context.Context, ex *dispatch.Exchange) error {
	start := time.Now()
	err := g.dispatcher.Dispatch(ctx, ex)
	g.metrics.ObserveDispatch(string(ex.Op()), time.Since(start))
	if err != nil {
		g.logger.ErrorContext(ctx, "pipeline dispatch failed",
			"op", string(ex.Op()),
			"request_id", ex.Transaction().RequestID(),
			"error", err,
		)
		return err
	}
	g.metrics.IncrementOutcome(string(ex.Op()), ex.Outcome().String())
	return nil
}

// resolve settles a dispatched exchange. Handled means the response was
// produced here; Skipped hands the request back to the host. A rejection, or
// a pipeline that never settled its exchange, escalates to the error
// pipeline, which gets exactly one chance to render the failure before the
// gateway reports an unrecoverable fault.
func (g *Gateway) resolve(ctx context.Context, t *txn.Transaction, primary *dispatch.Exchange) (bool, error) {
	op := string(primary.Op())

	switch primary.Outcome() {
	case dispatch.OutcomeHandled:
		extra := []any{"reason", t.Response().Error}
		if principal := primary.Principal(); principal != nil {
			extra = append(extra, "subject", principal.Subject)
		}
		g.logAudit(ctx, t, primary, eventForOp(primary.Op()), extra...)
		return true, nil
	case dispatch.OutcomeSkipped:
		return false, nil
	}

	rej := primary.Rejection()
	if rej.Code == "" {
		resp := t.Response()
		rej = dispatch.Rejection{Code: resp.Error, Description: resp.ErrorDescription, URI: resp.ErrorURI}
	}
	if rej.Code == "" {
		rej.Code = oidc.ErrorInvalidRequest
	}

	g.logger.WarnContext(ctx, "operation rejected, escalating to error pipeline",
		"op", op,
		"error_code", rej.Code,
		"request_id", t.RequestID(),
	)

	resp := t.ResetResponse()
	resp.SetError(rej.Code, rej.Description, rej.URI)

	secondary := dispatch.NewErrorExchange(t, rej, primary.Writer(), primary.Request())
	if err := g.dispatch(ctx, secondary); err != nil {
		return false, err
	}

	switch secondary.Outcome() {
	case dispatch.OutcomeHandled:
		g.metrics.IncrementEscalation(op, "resolved")
		g.logAudit(ctx, t, secondary, audit.EventErrorResolved, "reason", rej.Code)
		return true, nil
	case dispatch.OutcomeSkipped:
		g.metrics.IncrementEscalation(op, "passed")
		return false, nil
	}

	g.metrics.IncrementEscalation(op, "unresolved")
	g.logAudit(ctx, t, secondary, audit.EventErrorUnresolved, "reason", rej.Code)
	g.logger.ErrorContext(ctx, "error pipeline left the response unrendered",
		"op", op,
		"error_code", rej.Code,
		"request_id", t.RequestID(),
	)
	return false, dErrors.Newf(dErrors.CodeInvariantViolation,
		"no handler resolved the %q error raised by the %s pipeline", rej.Code, op)
}
