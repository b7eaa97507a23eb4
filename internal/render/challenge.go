package render

import (
	"context"
	"net/http"

	"portico/internal/dispatch"
	"portico/internal/oidc"
	"portico/pkg/platform/httputil"
)

// ChallengeRenderer renders challenge exchanges. A bare challenge (no error
// code seeded) is a plain 401 with a Bearer challenge and no body; a seeded
// challenge maps its error code to a status and writes the payload too.
type ChallengeRenderer struct {
	realm string
}

// ChallengeRendererOption configures a ChallengeRenderer.
type ChallengeRendererOption func(*ChallengeRenderer)

// WithChallengeRealm sets the protection realm named in challenges.
func WithChallengeRealm(realm string) ChallengeRendererOption {
	return func(r *ChallengeRenderer) {
		r.realm = realm
	}
}

// NewChallengeRenderer builds the terminal renderer for challenge exchanges.
func NewChallengeRenderer(opts ...ChallengeRendererOption) *ChallengeRenderer {
	r := &ChallengeRenderer{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *ChallengeRenderer) Handle(_ context.Context, ex *dispatch.Exchange) error {
	resp := ex.Transaction().Response()

	challenge := oidc.Challenge{
		Realm:       r.realm,
		Error:       resp.Error,
		Description: resp.ErrorDescription,
	}
	ex.Writer().Header().Set("WWW-Authenticate", challenge.Header())

	if resp.Error == "" {
		ex.Writer().WriteHeader(http.StatusUnauthorized)
		return ex.MarkHandled()
	}

	httputil.WriteJSON(ex.Writer(), oidc.StatusFor(resp.Error), resp.Payload())
	return ex.MarkHandled()
}
