package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ComputeMeta describes a cached computation for telemetry purposes.
type ComputeMeta struct {
	Name    string   // Logical computation name (required)
	Key     string   // Cache key being computed (optional)
	Profile string   // Lifetime profile name (optional)
	Tags    []string // Cache tags attached to the entry (optional)
	Trigger string   // What started the computation: sync or background (optional)
}

// SpanName returns the deterministic span name for this computation.
// Format: cache.compute.<name>
func (m ComputeMeta) SpanName() string {
	return "cache.compute." + m.Name
}

// Validate checks that required metadata is present.
func (m ComputeMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingComputeName
	}
	return nil
}

// Tracer wraps OpenTelemetry tracing with computation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan must honor cancellation/deadlines and return ctx.Err() when canceled.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a cached computation.
	StartSpan(ctx context.Context, meta ComputeMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with computation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta ComputeMeta) (context.Context, trace.Span) {
	spanName := meta.SpanName()

	// Build attributes
	attrs := []attribute.KeyValue{
		attribute.String("cache.compute", meta.Name),
		attribute.Bool("cache.error", false), // Will be updated in EndSpan if error
	}

	// Add optional attributes if present
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("cache.key", meta.Key))
	}
	if meta.Profile != "" {
		attrs = append(attrs, attribute.String("cache.profile", meta.Profile))
	}
	if meta.Trigger != "" {
		attrs = append(attrs, attribute.String("cache.trigger", meta.Trigger))
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("cache.tags", meta.Tags))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("cache.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta ComputeMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
