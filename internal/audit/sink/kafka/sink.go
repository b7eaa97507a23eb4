// Package kafka publishes audit events to a Kafka topic. A consumer
// materializes the topic into PostgreSQL for querying, so the topic is the
// source of truth when this sink is configured.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"portico/internal/audit"
)

// DefaultTopic is where audit events land unless configured otherwise.
const DefaultTopic = "portico.audit.events"

// Producer is the broker surface the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, topic string, key, value []byte) error
}

// Sink implements audit.Store by publishing each event to a Kafka topic.
// Broker outages trip a cooldown breaker: while it is open events are
// dropped and counted instead of stalling the audit worker on a dead
// cluster.
type Sink struct {
	producer Producer
	topic    string
	breaker  *cooldownBreaker
	metrics  *Metrics
	logger   *slog.Logger
}

// Option configures the Sink.
type Option func(*Sink)

// WithLogger sets a logger for publish failures and breaker drops.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches sink metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Sink) {
		s.metrics = m
	}
}

// WithBreaker overrides the breaker thresholds.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(s *Sink) {
		s.breaker = newCooldownBreaker(threshold, cooldown)
	}
}

// New creates a Kafka sink. A nil producer or empty topic is an assembly
// mistake, caught at startup.
func New(producer Producer, topic string, opts ...Option) *Sink {
	if producer == nil {
		panic("kafka sink: nil producer")
	}
	if topic == "" {
		panic("kafka sink: empty topic")
	}
	s := &Sink{
		producer: producer,
		topic:    topic,
		breaker:  newCooldownBreaker(5, time.Minute),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// payload is the JSON structure published to the topic. Field names mirror
// audit.Event so the consumer deserializes symmetrically.
type payload struct {
	ID            string `json:"ID"`
	Category      string `json:"Category"`
	Timestamp     string `json:"Timestamp"`
	TransactionID string `json:"TransactionID,omitempty"`
	RequestID     string `json:"RequestID,omitempty"`
	Op            string `json:"Op,omitempty"`
	Action        string `json:"Action"`
	Outcome       string `json:"Outcome,omitempty"`
	Reason        string `json:"Reason,omitempty"`
	Subject       string `json:"Subject,omitempty"`
	ClientIP      string `json:"ClientIP,omitempty"`
}

// Append publishes one audit event keyed by a fresh event ID. The key makes
// materialization idempotent under redelivery.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	if !s.breaker.Allow() {
		s.metrics.IncBreakerDropped()
		s.logger.DebugContext(ctx, "audit sink breaker open, event dropped",
			"action", event.Action,
			"request_id", event.RequestID,
		)
		return nil
	}

	eventID := uuid.New()
	category := audit.AuditEvent(event.Action).Category()

	body, err := json.Marshal(payload{
		ID:            eventID.String(),
		Category:      string(category),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		TransactionID: event.TransactionID,
		RequestID:     event.RequestID,
		Op:            event.Op,
		Action:        event.Action,
		Outcome:       event.Outcome,
		Reason:        event.Reason,
		Subject:       event.Subject,
		ClientIP:      event.ClientIP,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	if err := s.producer.ProduceSync(ctx, s.topic, []byte(eventID.String()), body); err != nil {
		s.breaker.RecordFailure()
		s.metrics.IncPublishFailures()
		s.metrics.SetBreakerState(s.breaker.IsOpen())
		return fmt.Errorf("publish audit event: %w", err)
	}

	s.breaker.RecordSuccess()
	s.metrics.SetBreakerState(false)
	s.metrics.IncPublished()
	return nil
}
