package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records execution metrics for cached computations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records one cached-computation call with duration
	// and error status.
	RecordOperation(ctx context.Context, meta ComputeMeta, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"cache.operations",
		metric.WithDescription("Total number of cached-computation calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"cache.operation.errors",
		metric.WithDescription("Total number of cached-computation call errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"cache.operation.duration_ms",
		metric.WithDescription("Cached-computation call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

// RecordOperation records metrics for one cached-computation call.
func (m *metricsImpl) RecordOperation(ctx context.Context, meta ComputeMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.compute", meta.Name),
	}
	if meta.Profile != "" {
		attrs = append(attrs, attribute.String("cache.profile", meta.Profile))
	}

	opt := metric.WithAttributes(attrs...)

	// Always increment total counter
	m.totalCount.Add(ctx, 1, opt)

	// Increment error counter on failure
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	// Record duration in milliseconds
	durationMs := float64(duration.Milliseconds())
	m.durationHist.Record(ctx, durationMs, opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordOperation(ctx context.Context, meta ComputeMeta, duration time.Duration, err error) {
}

// CacheMetrics exposes the engine's telemetry hooks as OpenTelemetry
// instruments. It satisfies the cache package's Instruments interface.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: recording is best-effort and never panics.
type CacheMetrics struct {
	lookups       metric.Int64Counter
	computes      metric.Int64Counter
	computeDur    metric.Float64Histogram
	invalidations metric.Int64Counter
	entries       metric.Int64UpDownCounter
	sweepRemoved  metric.Int64Counter
}

// NewCacheMetrics creates the engine instrument set on the given meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	lookups, err := meter.Int64Counter(
		"cache.lookups",
		metric.WithDescription("Cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	computes, err := meter.Int64Counter(
		"cache.computes",
		metric.WithDescription("Computations by status and trigger"),
		metric.WithUnit("{compute}"),
	)
	if err != nil {
		return nil, err
	}

	computeDur, err := meter.Float64Histogram(
		"cache.compute.duration_ms",
		metric.WithDescription("Computation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		"cache.invalidations",
		metric.WithDescription("Entries affected by tag invalidations, by strategy"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	entries, err := meter.Int64UpDownCounter(
		"cache.entries",
		metric.WithDescription("Entries currently held"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	sweepRemoved, err := meter.Int64Counter(
		"cache.sweep.removed",
		metric.WithDescription("Expired entries removed by sweeps"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &CacheMetrics{
		lookups:       lookups,
		computes:      computes,
		computeDur:    computeDur,
		invalidations: invalidations,
		entries:       entries,
		sweepRemoved:  sweepRemoved,
	}, nil
}

// RecordLookup counts one lookup with its outcome.
func (m *CacheMetrics) RecordLookup(ctx context.Context, outcome string) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCompute counts one computation with its status, trigger and duration.
func (m *CacheMetrics) RecordCompute(ctx context.Context, status, trigger string, elapsed time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("trigger", trigger),
	)
	m.computes.Add(ctx, 1, opt)
	m.computeDur.Record(ctx, float64(elapsed.Milliseconds()), opt)
}

// RecordInvalidation counts the entries affected by one invalidation call.
func (m *CacheMetrics) RecordInvalidation(ctx context.Context, strategy string, affected int) {
	m.invalidations.Add(ctx, int64(affected), metric.WithAttributes(attribute.String("strategy", strategy)))
}

// RecordEntryDelta adjusts the live entry count.
func (m *CacheMetrics) RecordEntryDelta(ctx context.Context, delta int) {
	m.entries.Add(ctx, int64(delta))
}

// RecordSweep counts entries removed by a sweep.
func (m *CacheMetrics) RecordSweep(ctx context.Context, removed int) {
	m.sweepRemoved.Add(ctx, int64(removed))
}
