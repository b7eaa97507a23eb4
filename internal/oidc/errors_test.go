package oidc

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"invalid request", ErrorInvalidRequest, http.StatusBadRequest},
		{"invalid token", ErrorInvalidToken, http.StatusUnauthorized},
		{"insufficient scope", ErrorInsufficientScope, http.StatusForbidden},
		{"access denied", ErrorAccessDenied, http.StatusForbidden},
		{"server error", ErrorServerError, http.StatusInternalServerError},
		{"temporarily unavailable", ErrorTemporarilyUnavail, http.StatusServiceUnavailable},
		{"login required", ErrorLoginRequired, http.StatusUnauthorized},
		{"unknown code falls back to 400", "made_up_code", http.StatusBadRequest},
		{"empty code falls back to 400", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
		})
	}
}

func TestChallengeHeader(t *testing.T) {
	t.Run("bare scheme when no parameters", func(t *testing.T) {
		assert.Equal(t, "Bearer", Challenge{}.Header())
	})

	t.Run("realm only", func(t *testing.T) {
		c := Challenge{Realm: "portico"}
		assert.Equal(t, `Bearer realm="portico"`, c.Header())
	})

	t.Run("full challenge", func(t *testing.T) {
		c := Challenge{
			Realm:       "portico",
			Error:       ErrorInvalidToken,
			Description: "the token has expired",
			Scope:       "openid profile",
		}
		want := `Bearer realm="portico", error="invalid_token", error_description="the token has expired", scope="openid profile"`
		assert.Equal(t, want, c.Header())
	})

	t.Run("escapes quotes in values", func(t *testing.T) {
		c := Challenge{Error: ErrorInvalidRequest, Description: `token "abc" rejected`}
		want := `Bearer error="invalid_request", error_description="token \"abc\" rejected"`
		assert.Equal(t, want, c.Header())
	})
}
