package render

import (
	"context"
	"net/http"
	"time"

	"portico/internal/dispatch"
	dErrors "portico/pkg/domain-errors"
	"portico/pkg/platform/httputil"
)

// TokenIssuer mints an access token for a signed-in subject.
type TokenIssuer interface {
	Issue(subject string, clientID string, scope string, expiresIn time.Duration) (string, error)
}

// defaultTokenTTL is the access token lifetime when none is configured.
const defaultTokenTTL = time.Hour

// SignInRenderer settles sign-in exchanges: it mints an access token for
// the exchange's principal and writes the standard token response. Issuer
// failures are infrastructure faults and abort the dispatch.
type SignInRenderer struct {
	issuer   TokenIssuer
	tokenTTL time.Duration
}

// SignInRendererOption configures a SignInRenderer.
type SignInRendererOption func(*SignInRenderer)

// WithTokenTTL overrides the issued token lifetime.
func WithTokenTTL(ttl time.Duration) SignInRendererOption {
	return func(r *SignInRenderer) {
		if ttl > 0 {
			r.tokenTTL = ttl
		}
	}
}

// NewSignInRenderer builds the terminal renderer for sign-in exchanges.
// It panics on a nil issuer: that is an assembly mistake.
func NewSignInRenderer(issuer TokenIssuer, opts ...SignInRendererOption) *SignInRenderer {
	if issuer == nil {
		panic("render: token issuer must not be nil")
	}
	r := &SignInRenderer{issuer: issuer, tokenTTL: defaultTokenTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *SignInRenderer) Handle(_ context.Context, ex *dispatch.Exchange) error {
	principal := ex.Principal()
	if principal == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "sign-in exchange carries no principal")
	}

	clientID, _ := principal.Claims["client_id"].(string)
	scope, _ := principal.Claims["scope"].(string)

	token, err := r.issuer.Issue(principal.Subject, clientID, scope, r.tokenTTL)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "mint access token")
	}

	payload := ex.Transaction().Response().Payload()
	payload["access_token"] = token
	payload["token_type"] = "Bearer"
	payload["expires_in"] = int(r.tokenTTL.Seconds())
	if scope != "" {
		payload["scope"] = scope
	}

	httputil.WriteJSON(ex.Writer(), http.StatusOK, payload)
	return ex.MarkHandled()
}
