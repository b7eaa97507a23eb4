package oidc

import (
	"context"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"

	"portico/internal/dispatch"
	dErrors "portico/pkg/domain-errors"
	"portico/pkg/platform/httputil"
)

// DiscoveryPath is where OpenID Connect Discovery 1.0 places the provider
// configuration document.
const DiscoveryPath = "/.well-known/openid-configuration"

// ProviderMetadata is the discovery document served at DiscoveryPath.
// Only capabilities the gateway actually implements are advertised;
// everything else is omitted rather than stubbed.
type ProviderMetadata struct {
	Issuer                string   `json:"issuer"`
	UserinfoEndpoint      string   `json:"userinfo_endpoint,omitempty"`
	EndSessionEndpoint    string   `json:"end_session_endpoint,omitempty"`
	ScopesSupported       []string `json:"scopes_supported,omitempty"`
	SubjectTypesSupported []string `json:"subject_types_supported,omitempty"`
	ClaimsSupported       []string `json:"claims_supported,omitempty"`
}

// NewProviderMetadata builds the document for a gateway hosted at issuer.
// The issuer is normalized without a trailing slash so derived endpoint
// URLs stay canonical.
func NewProviderMetadata(issuer string, scopes []string) ProviderMetadata {
	issuer = strings.TrimRight(issuer, "/")
	return ProviderMetadata{
		Issuer:                issuer,
		UserinfoEndpoint:      issuer + "/userinfo",
		EndSessionEndpoint:    issuer + "/connect/logout",
		ScopesSupported:       scopes,
		SubjectTypesSupported: []string{"public"},
		ClaimsSupported:       []string{"sub", "scope", "client_id", "exp"},
	}
}

// Validate checks the document is safe to advertise. The issuer must be an
// absolute https URL; plain http is tolerated for localhost development.
func (m ProviderMetadata) Validate() error {
	if m.Issuer == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer is required")
	}
	if !govalidator.IsRequestURL(m.Issuer) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "issuer %q is not a valid URL", m.Issuer)
	}
	if !strings.HasPrefix(m.Issuer, "https://") && !strings.HasPrefix(m.Issuer, "http://localhost") {
		return dErrors.Newf(dErrors.CodeInvalidInput, "issuer %q must use https", m.Issuer)
	}
	return nil
}

// DiscoveryHandler serves the provider metadata document. It claims GET
// requests for DiscoveryPath and leaves every other request unsettled.
type DiscoveryHandler struct {
	metadata ProviderMetadata
}

// NewDiscoveryHandler validates the document up front. An invalid document
// is an assembly mistake, caught at startup.
func NewDiscoveryHandler(metadata ProviderMetadata) *DiscoveryHandler {
	if err := metadata.Validate(); err != nil {
		panic("oidc: invalid provider metadata: " + err.Error())
	}
	return &DiscoveryHandler{metadata: metadata}
}

// Handle writes the discovery document for matching requests. Discovery is
// public per the OIDC spec, so it runs before any token checks.
func (h *DiscoveryHandler) Handle(_ context.Context, ex *dispatch.Exchange) error {
	r := ex.Request()
	if r.URL.Path != DiscoveryPath {
		return nil
	}
	if r.Method != http.MethodGet {
		ex.Writer().Header().Set("Allow", http.MethodGet)
		ex.Writer().WriteHeader(http.StatusMethodNotAllowed)
		return ex.MarkHandled()
	}
	httputil.WriteJSON(ex.Writer(), http.StatusOK, h.metadata)
	return ex.MarkHandled()
}
