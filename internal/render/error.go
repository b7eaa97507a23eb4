// Package render ships the terminal pipeline handlers: the renderers that
// turn a transaction's response payload into the wire response and settle
// the exchange, plus the passthrough terminator for unmatched traffic.
// Hosts register them last; everything before them only shapes the payload.
package render

import (
	"context"
	"net/http"

	"portico/internal/dispatch"
	"portico/internal/oidc"
	"portico/pkg/platform/httputil"
)

// ErrorRenderer renders error exchanges: the escalation cascade seeds the
// transaction response with the rejection triple, this handler maps the
// error code to an HTTP status and writes the payload as JSON.
//
// 401 responses always carry a WWW-Authenticate challenge (RFC 7235
// requires one); 403 responses carry it only for insufficient_scope, where
// the challenge names the scope the client was missing.
type ErrorRenderer struct {
	realm string
}

// ErrorRendererOption configures an ErrorRenderer.
type ErrorRendererOption func(*ErrorRenderer)

// WithRealm sets the protection realm named in challenges.
func WithRealm(realm string) ErrorRendererOption {
	return func(r *ErrorRenderer) {
		r.realm = realm
	}
}

// NewErrorRenderer builds the terminal renderer for error exchanges.
func NewErrorRenderer(opts ...ErrorRendererOption) *ErrorRenderer {
	r := &ErrorRenderer{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *ErrorRenderer) Handle(_ context.Context, ex *dispatch.Exchange) error {
	resp := ex.Transaction().Response()
	status := oidc.StatusFor(resp.Error)

	if challenge, ok := r.challengeFor(status, resp.Error, resp.ErrorDescription); ok {
		ex.Writer().Header().Set("WWW-Authenticate", challenge.Header())
	}

	httputil.WriteJSON(ex.Writer(), status, resp.Payload())
	return ex.MarkHandled()
}

func (r *ErrorRenderer) challengeFor(status int, code, description string) (oidc.Challenge, bool) {
	switch {
	case status == http.StatusUnauthorized:
		return oidc.Challenge{Realm: r.realm, Error: code, Description: description}, true
	case status == http.StatusForbidden && code == oidc.ErrorInsufficientScope:
		return oidc.Challenge{Realm: r.realm, Error: code, Description: description}, true
	default:
		return oidc.Challenge{}, false
	}
}
