package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

const defaultBuffer = 1024

// Publisher queues audit events for background persistence by a Worker.
// Emit never blocks the request path: when the queue is full the event is
// dropped and counted rather than stalling the mediated request.
type Publisher struct {
	inbox   chan Event
	sampler *Sampler
	logger  *slog.Logger
	dropped atomic.Int64
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for drop reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithSampler enables sampling of operations-category events.
// Security events are never sampled.
func WithSampler(sampler *Sampler) Option {
	return func(p *Publisher) {
		p.sampler = sampler
	}
}

// NewPublisher creates a publisher with the given queue capacity.
// A capacity of zero or less uses the default.
func NewPublisher(buffer int, opts ...Option) *Publisher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	p := &Publisher{
		inbox: make(chan Event, buffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enqueues an audit event for persistence. The timestamp is set if the
// caller left it zero. Emit returns nil even when the event is sampled out
// or dropped on a full queue.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	action := AuditEvent(event.Action)
	if p.sampler != nil && action.Category() == CategoryOperations && !p.sampler.ShouldSample(event.Action) {
		return nil
	}

	select {
	case p.inbox <- event:
	default:
		p.dropped.Add(1)
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit queue full, event dropped",
				"action", event.Action,
				"request_id", event.RequestID,
			)
		}
	}
	return nil
}

// Inbox exposes the event queue for the Worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Dropped returns the total number of events dropped on a full queue.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}
