package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SpanMeta describes one cache store operation for telemetry purposes.
type SpanMeta struct {
	Op        string // store operation: get or set
	Mode      string // session mode of the key, if known
	Operation string // request operation name, if known
}

// SpanName returns the deterministic span name for this operation.
// Format: cache.store.<op>
func (m SpanMeta) SpanName() string {
	return "cache.store." + m.Op
}

// Tracer wraps OpenTelemetry tracing with cache-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan must honor cancellation/deadlines.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a store operation.
	StartSpan(ctx context.Context, meta SpanMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with cache metadata as attributes.
// Store keys are hashed request material and never become attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta SpanMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.op", meta.Op),
	}
	if meta.Mode != "" {
		attrs = append(attrs, attribute.String("cache.mode", meta.Mode))
	}
	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("cache.operation", meta.Operation))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// nopTracer is a tracer that does nothing.
type nopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a tracer that records nothing.
func NopTracer() Tracer {
	return &nopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *nopTracer) StartSpan(ctx context.Context, meta SpanMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *nopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
