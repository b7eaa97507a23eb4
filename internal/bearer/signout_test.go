package bearer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"portico/internal/bearer/mocks"
	"portico/internal/dispatch"
	"portico/internal/txn"
)

//go:generate mockgen -source=signout.go -destination=mocks/signout-mocks.go -package=mocks TokenRevoker

type SignOutRevokerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	revoker *mocks.MockTokenRevoker
	handler *SignOutRevoker
}

func TestSignOutRevokerSuite(t *testing.T) {
	suite.Run(t, new(SignOutRevokerSuite))
}

func (s *SignOutRevokerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.T().Cleanup(s.ctrl.Finish)
	s.revoker = mocks.NewMockTokenRevoker(s.ctrl)
	s.handler = NewSignOutRevoker(s.revoker, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *SignOutRevokerSuite) exchange(principal *txn.Principal) *dispatch.Exchange {
	r := httptest.NewRequest(http.MethodPost, "/connect/logout", nil)
	t, r := txn.Acquire(r)
	t.SetPrincipal(principal)
	return dispatch.NewExchange(dispatch.OpSignOut, t, httptest.NewRecorder(), r)
}

func (s *SignOutRevokerSuite) TestRevokesTokenWithRemainingLifetime() {
	principal := &txn.Principal{
		Subject: "user-1",
		Claims: map[string]any{
			"jti": "jti-1",
			"exp": time.Now().Add(30 * time.Minute),
		},
	}

	var gotTTL time.Duration
	s.revoker.EXPECT().Revoke(gomock.Any(), "jti-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, ttl time.Duration) error {
			gotTTL = ttl
			return nil
		})

	ex := s.exchange(principal)
	s.Require().NoError(s.handler.Handle(context.Background(), ex))

	s.False(ex.Settled(), "revocation must not settle the sign-out exchange")
	s.InDelta((30 * time.Minute).Seconds(), gotTTL.Seconds(), 5)
}

func (s *SignOutRevokerSuite) TestMissingExpiryUsesDefaultTTL() {
	principal := &txn.Principal{
		Subject: "user-1",
		Claims:  map[string]any{"jti": "jti-1"},
	}
	s.revoker.EXPECT().Revoke(gomock.Any(), "jti-1", defaultRevocationTTL).Return(nil)

	ex := s.exchange(principal)
	s.Require().NoError(s.handler.Handle(context.Background(), ex))
}

func (s *SignOutRevokerSuite) TestNoPrincipalIsNoop() {
	ex := s.exchange(nil)
	s.Require().NoError(s.handler.Handle(context.Background(), ex))
}

func (s *SignOutRevokerSuite) TestMissingJTIIsNoop() {
	principal := &txn.Principal{Subject: "user-1", Claims: map[string]any{}}

	ex := s.exchange(principal)
	s.Require().NoError(s.handler.Handle(context.Background(), ex))
}

func (s *SignOutRevokerSuite) TestAlreadyExpiredTokenIsNotRevoked() {
	principal := &txn.Principal{
		Subject: "user-1",
		Claims: map[string]any{
			"jti": "jti-1",
			"exp": time.Now().Add(-time.Minute),
		},
	}

	ex := s.exchange(principal)
	s.Require().NoError(s.handler.Handle(context.Background(), ex))
}

func (s *SignOutRevokerSuite) TestRevocationFailureDoesNotAbortSignOut() {
	principal := &txn.Principal{
		Subject: "user-1",
		Claims: map[string]any{
			"jti": "jti-1",
			"exp": time.Now().Add(time.Hour),
		},
	}
	s.revoker.EXPECT().Revoke(gomock.Any(), "jti-1", gomock.Any()).Return(errors.New("store down"))

	ex := s.exchange(principal)
	s.Require().NoError(s.handler.Handle(context.Background(), ex))
	s.False(ex.Settled())
}
