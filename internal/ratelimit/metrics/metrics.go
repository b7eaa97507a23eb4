// Package metrics exposes Prometheus instrumentation for the rate limiter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsAllowed  prometheus.Counter
	RequestsRejected prometheus.Counter
	CheckErrors      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RequestsAllowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portico_ratelimit_requests_allowed_total",
			Help: "Total number of requests admitted by the rate limiter",
		}),
		RequestsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portico_ratelimit_requests_rejected_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
		CheckErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portico_ratelimit_check_errors_total",
			Help: "Total number of rate limit checks that failed open on store errors",
		}),
	}
}

func (m *Metrics) IncrementAllowed() {
	if m != nil {
		m.RequestsAllowed.Inc()
	}
}

func (m *Metrics) IncrementRejected() {
	if m != nil {
		m.RequestsRejected.Inc()
	}
}

func (m *Metrics) IncrementCheckErrors() {
	if m != nil {
		m.CheckErrors.Inc()
	}
}
