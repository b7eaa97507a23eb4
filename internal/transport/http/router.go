// Package httptransport assembles the host HTTP surface: the middleware
// chain, the gateway mediation middleware, and the handlers for endpoints
// the pipeline does not serve itself.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portico/internal/gateway"
	"portico/internal/platform/metrics"
	"portico/pkg/platform/middleware/logging"
	"portico/pkg/platform/middleware/metadata"
	"portico/pkg/platform/middleware/recovery"
	"portico/pkg/platform/middleware/requestid"
	"portico/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts. Gateway and Logger are
// required; the rest is optional.
type Deps struct {
	Gateway *gateway.Gateway
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Health   *HealthHandler
	Userinfo *UserinfoHandler
	Logout   *LogoutHandler
	// DevToken is mounted only when non-nil; production assemblies leave
	// it unset.
	DevToken *DevTokenHandler
}

// NewRouter builds the chi router: context middleware first, then the
// gateway mediation middleware, then the host routes. Requests the pipeline
// handles terminate inside the middleware; everything else falls through to
// the routes below, or to 404.
func NewRouter(deps Deps) http.Handler {
	if deps.Gateway == nil {
		panic("httptransport: gateway must not be nil")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(logging.Middleware(deps.Logger))
	r.Use(recovery.Middleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(deps.Gateway.Middleware())

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	if deps.Userinfo != nil {
		deps.Userinfo.Register(r)
	}
	if deps.Logout != nil {
		deps.Logout.Register(r)
	}
	if deps.DevToken != nil {
		deps.DevToken.Register(r)
	}

	return r
}
