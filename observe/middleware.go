package observe

import (
	"context"
	"time"
)

// Middleware bundles the telemetry components used to observe cached
// computations (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Observe() returns a thread-safe function.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and
//     propagated unchanged.
//   - Ownership: Input/output values are passed through without
//     modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}

// Observe wraps fn with tracing, metrics, and logging under meta. The
// returned function has the same signature, so a computation handed to
// a cache can be wrapped transparently before registration.
func Observe[V any](m *Middleware, meta ComputeMeta, fn func(ctx context.Context) (V, error)) func(ctx context.Context) (V, error) {
	return func(ctx context.Context) (V, error) {
		// Start span
		ctx, span := m.tracer.StartSpan(ctx, meta)

		// Record start time
		start := time.Now()

		// Execute the function
		result, err := fn(ctx)

		// Calculate duration
		duration := time.Since(start)

		// End span (records error status if err != nil)
		m.tracer.EndSpan(span, err)

		// Record metrics
		m.metrics.RecordOperation(ctx, meta, duration, err)

		// Log the execution
		computeLogger := m.logger.WithComponent(meta.Name)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if meta.Key != "" {
			fields = append(fields, Field{Key: "key", Value: meta.Key})
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			computeLogger.Error(ctx, "computation failed", fields...)
		} else {
			computeLogger.Info(ctx, "computation completed", fields...)
		}

		return result, err
	}
}
