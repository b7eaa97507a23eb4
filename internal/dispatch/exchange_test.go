package dispatch

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portico/internal/txn"
	"portico/pkg/requestcontext"
)

func newTestExchange(t *testing.T, op Op) *Exchange {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/connect/authorize", nil)
	r = r.WithContext(requestcontext.WithTime(r.Context(), time.Now()))
	transaction, r := txn.Acquire(r)
	return NewExchange(op, transaction, httptest.NewRecorder(), r)
}

func TestExchange_WriteOnceOutcome(t *testing.T) {
	t.Run("starts pending", func(t *testing.T) {
		ex := newTestExchange(t, OpRequest)
		assert.Equal(t, OutcomePending, ex.Outcome())
		assert.False(t, ex.Settled())
	})

	t.Run("second settlement is refused", func(t *testing.T) {
		ex := newTestExchange(t, OpRequest)
		require.NoError(t, ex.MarkHandled())

		assert.ErrorIs(t, ex.MarkSkipped(), ErrSettled)
		assert.ErrorIs(t, ex.MarkHandled(), ErrSettled)
		assert.ErrorIs(t, ex.Reject(Rejection{Code: "access_denied"}), ErrSettled)
		assert.Equal(t, OutcomeHandled, ex.Outcome(), "first verdict stands")
	})

	t.Run("rejection carries the error triple", func(t *testing.T) {
		ex := newTestExchange(t, OpChallenge)
		require.NoError(t, ex.Reject(Rejection{
			Code:        "access_denied",
			Description: "consent was not granted",
			URI:         "https://errors.example/denied",
		}))

		assert.Equal(t, OutcomeRejected, ex.Outcome())
		rej := ex.Rejection()
		assert.Equal(t, "access_denied", rej.Code)
		assert.Equal(t, "consent was not granted", rej.Description)
		assert.Equal(t, "https://errors.example/denied", rej.URI)
	})

	t.Run("rejection code may be empty", func(t *testing.T) {
		ex := newTestExchange(t, OpRequest)
		require.NoError(t, ex.Reject(Rejection{}))
		assert.Equal(t, OutcomeRejected, ex.Outcome())
		assert.Empty(t, ex.Rejection().Code)
	})
}

func TestExchange_Constructors(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/userinfo", nil)
	transaction, r := txn.Acquire(r)
	w := httptest.NewRecorder()

	t.Run("sign-in carries the principal", func(t *testing.T) {
		p := &txn.Principal{Subject: "alice"}
		ex := NewSignInExchange(transaction, p, w, r)

		assert.Equal(t, OpSignIn, ex.Op())
		assert.Same(t, p, ex.Principal())
		assert.Same(t, transaction, ex.Transaction())
	})

	t.Run("other ops carry no principal", func(t *testing.T) {
		ex := NewExchange(OpSignOut, transaction, w, r)
		assert.Nil(t, ex.Principal())
	})

	t.Run("error exchange is seeded with the rejection", func(t *testing.T) {
		seed := Rejection{Code: "invalid_request", Description: "missing parameter"}
		ex := NewErrorExchange(transaction, seed, w, r)

		assert.Equal(t, OpError, ex.Op())
		assert.Equal(t, seed, ex.Rejection())
		assert.Equal(t, OutcomePending, ex.Outcome(), "seeding is not a verdict")
	})
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "pending", OutcomePending.String())
	assert.Equal(t, "handled", OutcomeHandled.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
}
