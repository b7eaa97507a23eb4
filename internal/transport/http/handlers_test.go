package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"portico/internal/platform/secrets"
	"portico/internal/transport/http/mocks"
	"portico/internal/txn"
	dErrors "portico/pkg/domain-errors"
)

//go:generate mockgen -source=mediator.go -destination=mocks/mediator-mocks.go -package=mocks Mediator

func doJSON(t *testing.T, router chi.Router, method, target, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	res := rec.Result()
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) == 0 {
		return res.StatusCode, nil
	}

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return res.StatusCode, parsed
}

type UserinfoHandlerSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestUserinfoHandlerSuite(t *testing.T) {
	suite.Run(t, new(UserinfoHandlerSuite))
}

func (s *UserinfoHandlerSuite) SetupSuite() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *UserinfoHandlerSuite) newRouter(t *testing.T) (*mocks.MockMediator, chi.Router) {
	ctrl := gomock.NewController(t)
	mediator := mocks.NewMockMediator(ctrl)
	r := chi.NewRouter()
	NewUserinfoHandler(mediator, s.logger).Register(r)
	return mediator, r
}

func (s *UserinfoHandlerSuite) TestHandleUserinfo() {
	s.T().Run("serves claims for authenticated principal - 200", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		exp := time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)
		principal := &txn.Principal{
			Subject: "user-7",
			Claims: map[string]any{
				"scope":     "openid profile",
				"client_id": "portico-dev",
				"exp":       exp,
			},
		}
		mediator.EXPECT().Authenticate(gomock.Any()).Return(principal, nil)

		status, body := doJSON(t, router, http.MethodGet, "/userinfo", "")

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "user-7", body["sub"])
		assert.Equal(t, "openid profile", body["scope"])
		assert.Equal(t, "portico-dev", body["client_id"])
		assert.Equal(t, float64(exp.Unix()), body["exp"])
	})

	s.T().Run("challenges when no principal", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().Authenticate(gomock.Any()).Return(nil, nil)
		mediator.EXPECT().Challenge(gomock.Any(), gomock.Any(), gomock.Nil()).DoAndReturn(
			func(w http.ResponseWriter, r *http.Request, props map[string]string) (bool, error) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="portico"`)
				w.WriteHeader(http.StatusUnauthorized)
				return true, nil
			})

		req := httptest.NewRequest(http.MethodGet, "/userinfo", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	s.T().Run("returns 500 when called outside mediation", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().Authenticate(gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvariantViolation, "authenticate invoked outside a mediated request"))

		status, body := doJSON(t, router, http.MethodGet, "/userinfo", "")

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "invariant_violation", body["error"])
	})

	s.T().Run("surfaces challenge faults - 500", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().Authenticate(gomock.Any()).Return(nil, nil)
		mediator.EXPECT().Challenge(gomock.Any(), gomock.Any(), gomock.Nil()).
			Return(false, dErrors.New(dErrors.CodeInternal, "pipeline handler failed"))

		status, body := doJSON(t, router, http.MethodGet, "/userinfo", "")

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "internal_error", body["error"])
	})
}

type DevTokenHandlerSuite struct {
	suite.Suite
	logger     *slog.Logger
	secret     string
	secretHash string
}

func TestDevTokenHandlerSuite(t *testing.T) {
	suite.Run(t, new(DevTokenHandlerSuite))
}

func (s *DevTokenHandlerSuite) SetupSuite() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.secret = "dev-secret-for-tests"
	hash, err := secrets.Hash(s.secret)
	s.Require().NoError(err)
	s.secretHash = hash
}

func (s *DevTokenHandlerSuite) newRouter(t *testing.T) (*mocks.MockMediator, chi.Router) {
	ctrl := gomock.NewController(t)
	mediator := mocks.NewMockMediator(ctrl)
	r := chi.NewRouter()
	NewDevTokenHandler(mediator, "portico-dev", s.secretHash, s.logger).Register(r)
	return mediator, r
}

func (s *DevTokenHandlerSuite) requestBody(clientID, secret, subject, scope string) string {
	return fmt.Sprintf(`{"client_id":%q,"client_secret":%q,"subject":%q,"scope":%q}`,
		clientID, secret, subject, scope)
}

func (s *DevTokenHandlerSuite) TestHandleToken() {
	s.T().Run("signs in with valid credentials - 200", func(t *testing.T) {
		mediator, router := s.newRouter(t)

		var seen *txn.Principal
		mediator.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(w http.ResponseWriter, r *http.Request, principal *txn.Principal) (bool, error) {
				seen = principal
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer"}`))
				return true, nil
			})

		status, body := doJSON(t, router, http.MethodPost, "/dev/token",
			s.requestBody("portico-dev", s.secret, "user-7", "openid"))

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "tok", body["access_token"])
		require.NotNil(t, seen)
		assert.Equal(t, "user-7", seen.Subject)
		assert.Equal(t, "portico-dev", seen.Claims["client_id"])
		assert.Equal(t, "openid", seen.Claims["scope"])
	})

	s.T().Run("refuses wrong secret - 401", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		status, body := doJSON(t, router, http.MethodPost, "/dev/token",
			s.requestBody("portico-dev", "not-the-secret", "user-7", ""))

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "unauthorized", body["error"])
	})

	s.T().Run("refuses unknown client - 401", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		status, body := doJSON(t, router, http.MethodPost, "/dev/token",
			s.requestBody("somebody-else", s.secret, "user-7", ""))

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "unauthorized", body["error"])
	})

	s.T().Run("returns 400 on malformed body", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		status, body := doJSON(t, router, http.MethodPost, "/dev/token", "{bad-json")

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "bad_request", body["error"])
	})

	s.T().Run("returns 400 when subject missing", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		status, body := doJSON(t, router, http.MethodPost, "/dev/token",
			s.requestBody("portico-dev", s.secret, "  ", ""))

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid_input", body["error"])
	})

	s.T().Run("returns 500 when pipeline does not render", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)

		status, body := doJSON(t, router, http.MethodPost, "/dev/token",
			s.requestBody("portico-dev", s.secret, "user-7", ""))

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "internal_error", body["error"])
	})

	s.T().Run("panics without client credentials", func(t *testing.T) {
		assert.Panics(t, func() {
			NewDevTokenHandler(nil, "", "", s.logger)
		})
	})
}

type LogoutHandlerSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestLogoutHandlerSuite(t *testing.T) {
	suite.Run(t, new(LogoutHandlerSuite))
}

func (s *LogoutHandlerSuite) SetupSuite() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *LogoutHandlerSuite) newRouter(t *testing.T) (*mocks.MockMediator, chi.Router) {
	ctrl := gomock.NewController(t)
	mediator := mocks.NewMockMediator(ctrl)
	r := chi.NewRouter()
	NewLogoutHandler(mediator, s.logger).Register(r)
	return mediator, r
}

func (s *LogoutHandlerSuite) TestHandleLogout() {
	s.T().Run("delegates rendering to the pipeline", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().SignOut(gomock.Any(), gomock.Any()).DoAndReturn(
			func(w http.ResponseWriter, r *http.Request) (bool, error) {
				w.WriteHeader(http.StatusNoContent)
				return true, nil
			})

		status, _ := doJSON(t, router, http.MethodPost, "/connect/logout", "")
		assert.Equal(t, http.StatusNoContent, status)
	})

	s.T().Run("acknowledges when the pipeline declines", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().SignOut(gomock.Any(), gomock.Any()).Return(false, nil)

		status, _ := doJSON(t, router, http.MethodGet, "/connect/logout", "")
		assert.Equal(t, http.StatusNoContent, status)
	})

	s.T().Run("maps mediation faults - 500", func(t *testing.T) {
		mediator, router := s.newRouter(t)
		mediator.EXPECT().SignOut(gomock.Any(), gomock.Any()).
			Return(false, dErrors.New(dErrors.CodeInvariantViolation, "sign-out invoked outside a mediated request"))

		status, body := doJSON(t, router, http.MethodPost, "/connect/logout", "")

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "invariant_violation", body["error"])
	})
}

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("ok with no checks", func(t *testing.T) {
		r := chi.NewRouter()
		NewHealthHandler(logger).Register(r)

		status, body := doJSON(t, r, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("ok with passing checks", func(t *testing.T) {
		h := NewHealthHandler(logger)
		h.AddCheck("redis", func(ctx context.Context) error { return nil })
		r := chi.NewRouter()
		h.Register(r)

		status, body := doJSON(t, r, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("degraded when a check fails", func(t *testing.T) {
		h := NewHealthHandler(logger)
		h.AddCheck("redis", func(ctx context.Context) error { return nil })
		h.AddCheck("postgres", func(ctx context.Context) error {
			return fmt.Errorf("connection refused")
		})
		r := chi.NewRouter()
		h.Register(r)

		status, body := doJSON(t, r, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "degraded", body["status"])

		failed, ok := body["failed"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, failed, "postgres")
		assert.NotContains(t, failed, "redis")
	})

	t.Run("nil checks are ignored", func(t *testing.T) {
		h := NewHealthHandler(logger)
		h.AddCheck("redis", nil)
		r := chi.NewRouter()
		h.Register(r)

		status, body := doJSON(t, r, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok", body["status"])
	})
}
