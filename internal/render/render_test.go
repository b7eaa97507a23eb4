package render

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portico/internal/dispatch"
	"portico/internal/oidc"
	"portico/internal/txn"
	dErrors "portico/pkg/domain-errors"
)

func newExchange(t *testing.T, op dispatch.Op) (*dispatch.Exchange, *httptest.ResponseRecorder) {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/resource", nil)
	tx, r := txn.Acquire(r)
	w := httptest.NewRecorder()
	if op == dispatch.OpSignIn {
		return dispatch.NewSignInExchange(tx, nil, w, r), w
	}
	return dispatch.NewExchange(op, tx, w, r), w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorRenderer(t *testing.T) {
	t.Run("renders seeded rejection with mapped status", func(t *testing.T) {
		ex, w := newExchange(t, dispatch.OpError)
		ex.Transaction().Response().SetError(oidc.ErrorInvalidToken, "the access token has expired", "")

		require.NoError(t, NewErrorRenderer(WithRealm("portico")).Handle(context.Background(), ex))

		assert.Equal(t, dispatch.OutcomeHandled, ex.Outcome())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "invalid_token", body["error"])
		assert.Equal(t, "the access token has expired", body["error_description"])
		header := w.Header().Get("WWW-Authenticate")
		assert.Contains(t, header, `realm="portico"`)
		assert.Contains(t, header, `error="invalid_token"`)
	})

	t.Run("challenges insufficient_scope on 403", func(t *testing.T) {
		ex, w := newExchange(t, dispatch.OpError)
		ex.Transaction().Response().SetError(oidc.ErrorInsufficientScope, "requires the profile scope", "")

		require.NoError(t, NewErrorRenderer().Handle(context.Background(), ex))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), `error="insufficient_scope"`)
	})

	t.Run("plain protocol errors carry no challenge", func(t *testing.T) {
		ex, w := newExchange(t, dispatch.OpError)
		ex.Transaction().Response().SetError(oidc.ErrorInvalidRequest, "missing parameter", "")

		require.NoError(t, NewErrorRenderer().Handle(context.Background(), ex))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("includes response params in the payload", func(t *testing.T) {
		ex, w := newExchange(t, dispatch.OpError)
		resp := ex.Transaction().Response()
		resp.SetError(oidc.ErrorTemporarilyUnavail, "request rate limit exceeded", "")
		resp.SetParam("retry_after", 30)

		require.NoError(t, NewErrorRenderer().Handle(context.Background(), ex))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(30), body["retry_after"])
	})
}

func TestChallengeRenderer(t *testing.T) {
	t.Run("bare challenge is a plain 401", func(t *testing.T) {
		ex, w := newExchange(t, dispatch.OpChallenge)

		require.NoError(t, NewChallengeRenderer(WithChallengeRealm("portico")).Handle(context.Background(), ex))

		assert.Equal(t, dispatch.OutcomeHandled, ex.Outcome())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, `Bearer realm="portico"`, w.Header().Get("WWW-Authenticate"))
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("seeded challenge maps its code", func(t *testing.T) {
		ex, w := newExchange(t, dispatch.OpChallenge)
		ex.Transaction().Response().SetError(oidc.ErrorAccessDenied, "subject may not view this resource", "")

		require.NoError(t, NewChallengeRenderer().Handle(context.Background(), ex))

		assert.Equal(t, http.StatusForbidden, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "access_denied", body["error"])
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), `error="access_denied"`)
	})
}

type stubIssuer struct {
	token string
	err   error

	subject  string
	clientID string
	scope    string
}

func (s *stubIssuer) Issue(subject, clientID, scope string, _ time.Duration) (string, error) {
	s.subject, s.clientID, s.scope = subject, clientID, scope
	return s.token, s.err
}

func TestSignInRenderer(t *testing.T) {
	principal := &txn.Principal{
		Subject: "user-7",
		Claims:  map[string]any{"client_id": "cli", "scope": "openid profile"},
	}

	t.Run("writes the token response", func(t *testing.T) {
		issuer := &stubIssuer{token: "tok-123"}
		r := httptest.NewRequest(http.MethodPost, "/signin", nil)
		tx, r := txn.Acquire(r)
		w := httptest.NewRecorder()
		ex := dispatch.NewSignInExchange(tx, principal, w, r)

		require.NoError(t, NewSignInRenderer(issuer, WithTokenTTL(30*time.Minute)).Handle(context.Background(), ex))

		assert.Equal(t, dispatch.OutcomeHandled, ex.Outcome())
		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "tok-123", body["access_token"])
		assert.Equal(t, "Bearer", body["token_type"])
		assert.Equal(t, float64(1800), body["expires_in"])
		assert.Equal(t, "openid profile", body["scope"])
		assert.Equal(t, "user-7", issuer.subject)
		assert.Equal(t, "cli", issuer.clientID)
	})

	t.Run("issuer failures abort the dispatch", func(t *testing.T) {
		issuer := &stubIssuer{err: errors.New("hsm offline")}
		r := httptest.NewRequest(http.MethodPost, "/signin", nil)
		tx, r := txn.Acquire(r)
		ex := dispatch.NewSignInExchange(tx, principal, httptest.NewRecorder(), r)

		err := NewSignInRenderer(issuer).Handle(context.Background(), ex)

		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
		assert.False(t, ex.Settled())
	})

	t.Run("missing principal is an invariant violation", func(t *testing.T) {
		ex, _ := newExchange(t, dispatch.OpSignIn)

		err := NewSignInRenderer(&stubIssuer{token: "tok"}).Handle(context.Background(), ex)

		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("nil issuer panics at assembly", func(t *testing.T) {
		assert.Panics(t, func() { NewSignInRenderer(nil) })
	})
}

func TestSignOutRenderer(t *testing.T) {
	t.Run("empty response is 204", func(t *testing.T) {
		ex, w := newExchange(t, dispatch.OpSignOut)

		require.NoError(t, NewSignOutRenderer().Handle(context.Background(), ex))

		assert.Equal(t, dispatch.OutcomeHandled, ex.Outcome())
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("response params become a JSON body", func(t *testing.T) {
		ex, w := newExchange(t, dispatch.OpSignOut)
		ex.Transaction().Response().SetParam("post_logout_redirect_uri", "https://rp.example.com/")

		require.NoError(t, NewSignOutRenderer().Handle(context.Background(), ex))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "https://rp.example.com/", body["post_logout_redirect_uri"])
	})
}

func TestPassthrough(t *testing.T) {
	ex, _ := newExchange(t, dispatch.OpRequest)

	require.NoError(t, NewPassthrough().Handle(context.Background(), ex))

	assert.Equal(t, dispatch.OutcomeSkipped, ex.Outcome())
}
