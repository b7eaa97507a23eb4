package dispatch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "portico/internal/dispatch"

// TracingDispatcher decorates a Dispatcher with one span per dispatch,
// recording the operation, the settled outcome, and the transaction ID.
type TracingDispatcher struct {
	next   Dispatcher
	tracer trace.Tracer
}

// NewTracingDispatcher wraps next with tracing.
func NewTracingDispatcher(next Dispatcher) *TracingDispatcher {
	return &TracingDispatcher{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (d *TracingDispatcher) Dispatch(ctx context.Context, ex *Exchange) error {
	ctx, span := d.tracer.Start(ctx, "dispatch."+string(ex.Op()))
	defer span.End()

	err := d.next.Dispatch(ctx, ex)

	span.SetAttributes(
		attribute.String("dispatch.op", string(ex.Op())),
		attribute.String("dispatch.outcome", ex.Outcome().String()),
	)
	if t := ex.Transaction(); t != nil {
		span.SetAttributes(attribute.String("dispatch.transaction_id", t.ID().String()))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
	}
	return err
}
