// Package mediation drives the fully assembled gateway stack end to end:
// real pipeline, real stores, real transport router, no mocks. The wiring
// mirrors cmd/server with every backend swapped for its in-memory store.
package mediation

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portico/internal/audit"
	auditmemory "portico/internal/audit/store/memory"
	"portico/internal/bearer"
	"portico/internal/bearer/revocation"
	"portico/internal/dispatch"
	"portico/internal/gateway"
	"portico/internal/oidc"
	"portico/internal/platform/secrets"
	"portico/internal/ratelimit"
	"portico/internal/ratelimit/store/window"
	"portico/internal/render"
	httptransport "portico/internal/transport/http"
	"portico/pkg/testutil"
)

const (
	testIssuer   = "http://localhost:8080"
	testAudience = "portico"
	testRealm    = "portico"
	signingKey   = "integration-signing-key"
	devClientID  = "dev-client"
	devSecret    = "dev-secret-for-integration"
)

type env struct {
	router      http.Handler
	gateway     *gateway.Gateway
	validator   *bearer.Validator
	revocations *revocation.MemoryStore
	audits      *auditmemory.Store
}

type envConfig struct {
	limit  int
	window time.Duration
}

func newEnv(t *testing.T, cfg envConfig) *env {
	t.Helper()

	if cfg.limit == 0 {
		cfg.limit = 100
	}
	if cfg.window == 0 {
		cfg.window = time.Minute
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := bearer.NewValidator(signingKey, testIssuer, testAudience)
	revocations := revocation.NewMemoryStore()
	audits := auditmemory.New()

	publisher := audit.NewPublisher(64, audit.WithLogger(log))
	worker := audit.NewWorker(audits, publisher.Inbox(), log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = worker.Run(ctx) }()

	pipeline := dispatch.NewPipeline()
	pipeline.Register("ratelimit",
		ratelimit.NewHandler(window.NewMemoryStore(), cfg.limit, cfg.window,
			ratelimit.WithLogger(log),
			ratelimit.WithAuditPublisher(publisher),
		),
		dispatch.WithOrder(10), dispatch.ForOps(dispatch.OpRequest))
	pipeline.Register("discovery",
		oidc.NewDiscoveryHandler(oidc.NewProviderMetadata(testIssuer, []string{"openid", "profile"})),
		dispatch.WithOrder(15), dispatch.ForOps(dispatch.OpRequest))
	pipeline.Register("bearer",
		bearer.NewHandler(validator,
			bearer.WithRevocation(revocations),
			bearer.WithLogger(log),
			bearer.WithAuditPublisher(publisher),
		),
		dispatch.WithOrder(20), dispatch.ForOps(dispatch.OpRequest))
	pipeline.Register("sign-out-revoker",
		bearer.NewSignOutRevoker(revocations, log),
		dispatch.WithOrder(50), dispatch.ForOps(dispatch.OpSignOut))
	pipeline.Register("challenge-renderer",
		render.NewChallengeRenderer(render.WithChallengeRealm(testRealm)),
		dispatch.WithOrder(100), dispatch.ForOps(dispatch.OpChallenge))
	pipeline.Register("sign-in-renderer",
		render.NewSignInRenderer(validator),
		dispatch.WithOrder(100), dispatch.ForOps(dispatch.OpSignIn))
	pipeline.Register("sign-out-renderer",
		render.NewSignOutRenderer(),
		dispatch.WithOrder(100), dispatch.ForOps(dispatch.OpSignOut))
	pipeline.Register("error-renderer",
		render.NewErrorRenderer(render.WithRealm(testRealm)),
		dispatch.WithOrder(100), dispatch.ForOps(dispatch.OpError))
	pipeline.Register("passthrough",
		render.NewPassthrough(),
		dispatch.WithOrder(1000), dispatch.ForOps(dispatch.OpRequest))

	gw := gateway.New(pipeline,
		gateway.WithLogger(log),
		gateway.WithAuditPublisher(publisher),
	)

	hash, err := secrets.Hash(devSecret)
	require.NoError(t, err)

	deps := httptransport.Deps{
		Gateway:  gw,
		Logger:   log,
		Health:   httptransport.NewHealthHandler(log),
		Userinfo: httptransport.NewUserinfoHandler(gw, log),
		Logout:   httptransport.NewLogoutHandler(gw, log),
		DevToken: httptransport.NewDevTokenHandler(gw, devClientID, hash, log),
	}

	return &env{
		router:      httptransport.NewRouter(deps),
		gateway:     gw,
		validator:   validator,
		revocations: revocations,
		audits:      audits,
	}
}

// mintToken obtains an access token through the dev sign-in route, so the
// token travels the same sign-in pipeline production tokens would.
func (e *env) mintToken(t *testing.T, subject, scope string) string {
	t.Helper()

	body := map[string]any{
		"client_id":     devClientID,
		"client_secret": devSecret,
		"subject":       subject,
		"scope":         scope,
	}
	rr := testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/dev/token", body))
	testutil.AssertStatusOK(t, rr)

	res := *testutil.UnmarshalResponse[map[string]any](t, rr)
	token, _ := res["access_token"].(string)
	require.NotEmpty(t, token, "sign-in response carries no access token")
	return token
}

func (e *env) get(t *testing.T, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()

	req := testutil.NewRequest(t, http.MethodGet, path)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return testutil.DoRequest(e.router, req)
}

func TestTokenLifecycle(t *testing.T) {
	e := newEnv(t, envConfig{})

	body := map[string]any{
		"client_id":     devClientID,
		"client_secret": devSecret,
		"subject":       "user-42",
		"scope":         "openid profile",
	}
	rr := testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/dev/token", body))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "token_type", "Bearer")
	testutil.AssertJSONContains(t, rr, "scope", "openid profile")
	testutil.AssertJSONHasKey(t, rr, "expires_in")

	res := *testutil.UnmarshalResponse[map[string]any](t, rr)
	token, _ := res["access_token"].(string)
	require.NotEmpty(t, token)

	rr = e.get(t, "/userinfo", "Bearer "+token)
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "sub", "user-42")
	testutil.AssertJSONContains(t, rr, "scope", "openid profile")
	testutil.AssertJSONContains(t, rr, "client_id", devClientID)
	testutil.AssertJSONHasKey(t, rr, "jti")
	testutil.AssertJSONHasKey(t, rr, "exp")

	req := testutil.NewRequest(t, http.MethodPost, "/connect/logout")
	req.Header.Set("Authorization", "Bearer "+token)
	rr = testutil.DoRequest(e.router, req)
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	// The sign-out revoked the token's jti; replaying it must now fail.
	rr = e.get(t, "/userinfo", "Bearer "+token)
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "invalid_token")
	testutil.AssertJSONContains(t, rr, "error_description", "the access token has been revoked")
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestUserinfoAuthErrors(t *testing.T) {
	e := newEnv(t, envConfig{})

	expired, err := e.validator.Issue("user-42", devClientID, "openid", -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name                string
		authorization       string
		expectedDescription string
	}{
		{
			name:                "malformed token - invalid",
			authorization:       "Bearer not-a-jwt",
			expectedDescription: "the access token is invalid",
		},
		{
			name:                "expired token - expired",
			authorization:       "Bearer " + expired,
			expectedDescription: "the access token has expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.get(t, "/userinfo", tt.authorization)

			testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "invalid_token")
			testutil.AssertJSONContains(t, rr, "error_description", tt.expectedDescription)

			challenge := rr.Header().Get("WWW-Authenticate")
			assert.Contains(t, challenge, `realm="`+testRealm+`"`)
			assert.Contains(t, challenge, `error="invalid_token"`)
		})
	}

	t.Run("no credentials - bare challenge", func(t *testing.T) {
		rr := e.get(t, "/userinfo", "")

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		assert.Equal(t, `Bearer realm="`+testRealm+`"`, rr.Header().Get("WWW-Authenticate"))
		assert.Zero(t, rr.Body.Len(), "bare challenges carry no body")
	})
}

func TestDiscoveryDocument(t *testing.T) {
	e := newEnv(t, envConfig{})

	rr := e.get(t, oidc.DiscoveryPath, "")
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "issuer", testIssuer)
	testutil.AssertJSONContains(t, rr, "userinfo_endpoint", testIssuer+"/userinfo")
	testutil.AssertJSONContains(t, rr, "end_session_endpoint", testIssuer+"/connect/logout")

	// Discovery is public: a broken Authorization header must not block it.
	rr = e.get(t, oidc.DiscoveryPath, "Bearer not-a-jwt")
	testutil.AssertStatusOK(t, rr)

	req := testutil.NewRequest(t, http.MethodPost, oidc.DiscoveryPath)
	rr = testutil.DoRequest(e.router, req)
	testutil.AssertStatus(t, rr, http.StatusMethodNotAllowed)
	assert.Equal(t, http.MethodGet, rr.Header().Get("Allow"))
}

func TestRateLimitThrottlesClient(t *testing.T) {
	e := newEnv(t, envConfig{limit: 2, window: time.Minute})

	// httptest requests share one RemoteAddr, so they land in one bucket.
	for i := 0; i < 2; i++ {
		rr := e.get(t, "/healthz", "")
		testutil.AssertStatusOK(t, rr)
	}

	rr := e.get(t, "/healthz", "")
	testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "temporarily_unavailable")
	testutil.AssertJSONContains(t, rr, "error_description", "request rate limit exceeded")
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// A different client address gets its own window.
	req := testutil.NewRequest(t, http.MethodGet, "/healthz")
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	rr = testutil.DoRequest(e.router, req)
	testutil.AssertStatusOK(t, rr)
}

func TestAuditTrailRecordsRejections(t *testing.T) {
	e := newEnv(t, envConfig{limit: 1, window: time.Minute})

	stamp := func(req *http.Request, requestID string) *http.Request {
		req = testutil.WithClientMetadata(req, "203.0.113.9", "integration-test")
		return testutil.WithRequestID(req, requestID)
	}

	// First request exhausts the window and passes through unhandled.
	req := stamp(testutil.NewRequest(t, http.MethodGet, "/anything"), "req-admitted")
	handled, _, err := e.gateway.ProcessRequest(httptest.NewRecorder(), req)
	require.NoError(t, err)
	require.False(t, handled)

	// Second request is rejected and rendered by the error pipeline.
	req = stamp(testutil.NewRequest(t, http.MethodGet, "/anything"), "req-throttled")
	rr := httptest.NewRecorder()
	handled, _, err = e.gateway.ProcessRequest(rr, req)
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	require.Eventually(t, func() bool {
		events, err := e.audits.ListRecent(context.Background(), 16)
		if err != nil {
			return false
		}
		for _, event := range events {
			if event.Action == string(audit.EventRateLimitExceeded) &&
				event.RequestID == "req-throttled" &&
				event.ClientIP == "203.0.113.9" &&
				event.Outcome == dispatch.OutcomeRejected.String() {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond, "rejection never reached the audit store")
}

func TestUnmatchedRequestFallsThrough(t *testing.T) {
	e := newEnv(t, envConfig{})

	testutil.Given(t, "a request no pipeline handler claims", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/no-such-route")

		testutil.When(t, "it is served through the full middleware chain", func(t *testing.T) {
			rr := testutil.DoRequest(e.router, req)

			testutil.Then(t, "the host mux answers and the request is tagged", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusNotFound)
				assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
			})
		})
	})
}
