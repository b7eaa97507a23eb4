// Package oidc defines the OAuth 2.0 / OpenID Connect protocol vocabulary
// shared by the gateway and its handlers: standard error codes, their HTTP
// status mapping, WWW-Authenticate challenge formatting, and the provider
// discovery document.
package oidc

import (
	"fmt"
	"net/http"
	"strings"
)

// Error codes defined in RFC 6749 Section 5.2, RFC 6750 Section 3.1 and
// OpenID Connect Core Section 3.1.2.6.
const (
	ErrorInvalidRequest       = "invalid_request"
	ErrorInvalidClient        = "invalid_client"
	ErrorInvalidGrant         = "invalid_grant"
	ErrorInvalidScope         = "invalid_scope"
	ErrorInvalidToken         = "invalid_token"
	ErrorInsufficientScope    = "insufficient_scope"
	ErrorUnauthorizedClient   = "unauthorized_client"
	ErrorUnsupportedGrantType = "unsupported_grant_type"
	ErrorAccessDenied         = "access_denied"
	ErrorServerError          = "server_error"
	ErrorTemporarilyUnavail   = "temporarily_unavailable"
	ErrorLoginRequired        = "login_required"
	ErrorConsentRequired      = "consent_required"
	ErrorInteractionRequired  = "interaction_required"
)

// statusByError maps protocol error codes to the HTTP status used when the
// error is rendered directly on the mediated response rather than via a
// redirect back to the client.
var statusByError = map[string]int{
	ErrorInvalidRequest:       http.StatusBadRequest,
	ErrorInvalidClient:        http.StatusUnauthorized,
	ErrorInvalidGrant:         http.StatusBadRequest,
	ErrorInvalidScope:         http.StatusBadRequest,
	ErrorInvalidToken:         http.StatusUnauthorized,
	ErrorInsufficientScope:    http.StatusForbidden,
	ErrorUnauthorizedClient:   http.StatusForbidden,
	ErrorUnsupportedGrantType: http.StatusBadRequest,
	ErrorAccessDenied:         http.StatusForbidden,
	ErrorServerError:          http.StatusInternalServerError,
	ErrorTemporarilyUnavail:   http.StatusServiceUnavailable,
	ErrorLoginRequired:        http.StatusUnauthorized,
	ErrorConsentRequired:      http.StatusForbidden,
	ErrorInteractionRequired:  http.StatusForbidden,
}

// StatusFor returns the HTTP status for a protocol error code.
// Unknown codes map to 400 per RFC 6749's catch-all guidance.
func StatusFor(code string) int {
	if status, ok := statusByError[code]; ok {
		return status
	}
	return http.StatusBadRequest
}

// Challenge describes a WWW-Authenticate challenge per RFC 6750 Section 3.
type Challenge struct {
	Realm       string
	Error       string
	Description string
	Scope       string
}

// Header formats the challenge as a Bearer WWW-Authenticate header value.
// Parameters with empty values are omitted. Quotes and backslashes inside
// values are escaped so the header stays parseable.
func (c Challenge) Header() string {
	params := make([]string, 0, 4)
	appendParam := func(key, value string) {
		if value == "" {
			return
		}
		params = append(params, fmt.Sprintf(`%s="%s"`, key, escapeQuoted(value)))
	}
	appendParam("realm", c.Realm)
	appendParam("error", c.Error)
	appendParam("error_description", c.Description)
	appendParam("scope", c.Scope)

	if len(params) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(params, ", ")
}

func escapeQuoted(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}
