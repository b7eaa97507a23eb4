package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the gateway module.
type Metrics struct {
	// Dispatch outcomes by operation
	DispatchOutcome *prometheus.CounterVec

	// Escalation results by originating operation
	Escalations *prometheus.CounterVec

	// Pipeline dispatch latency by operation
	DispatchLatency *prometheus.HistogramVec
}

// New creates a new Metrics instance with all gateway metrics registered.
func New() *Metrics {
	return &Metrics{
		DispatchOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portico_gateway_dispatch_outcomes_total",
			Help: "Total pipeline dispatch outcomes by operation and outcome",
		}, []string{"op", "outcome"}),

		Escalations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portico_gateway_escalations_total",
			Help: "Total error escalations by originating operation and result",
		}, []string{"op", "result"}), // result: "resolved", "passed", "unresolved"

		DispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portico_gateway_dispatch_duration_seconds",
			Help:    "Duration of pipeline dispatches by operation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"op"}),
	}
}

// IncrementOutcome records the settled outcome of a dispatched operation.
func (m *Metrics) IncrementOutcome(op, outcome string) {
	if m != nil {
		m.DispatchOutcome.WithLabelValues(op, outcome).Inc()
	}
}

// IncrementEscalation records the result of an error escalation.
func (m *Metrics) IncrementEscalation(op, result string) {
	if m != nil {
		m.Escalations.WithLabelValues(op, result).Inc()
	}
}

// ObserveDispatch records the duration of a pipeline dispatch.
func (m *Metrics) ObserveDispatch(op string, d time.Duration) {
	if m != nil {
		m.DispatchLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}
