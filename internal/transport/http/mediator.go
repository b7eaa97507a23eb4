package httptransport

import (
	"net/http"

	"portico/internal/txn"
)

// Mediator is the consumer-side view of the gateway entry points the
// handlers invoke.
type Mediator interface {
	Authenticate(r *http.Request) (*txn.Principal, error)
	Challenge(w http.ResponseWriter, r *http.Request, props map[string]string) (bool, error)
	SignIn(w http.ResponseWriter, r *http.Request, principal *txn.Principal) (bool, error)
	SignOut(w http.ResponseWriter, r *http.Request) (bool, error)
}
