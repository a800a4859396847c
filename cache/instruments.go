package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/tagcache/observe"
)

// Lookup outcomes reported to Instruments.
const (
	LookupHit     = "hit"
	LookupStale   = "stale"
	LookupMiss    = "miss"
	LookupExpired = "expired"
)

// Compute triggers reported to Instruments.
const (
	TriggerSync       = "sync"
	TriggerBackground = "background"
)

// Invalidation strategies reported to Instruments.
const (
	StrategyUpdate     = "update"
	StrategyRevalidate = "revalidate"
)

// Instruments receives engine telemetry. Implementations must be safe
// for concurrent use. A nil Instruments disables recording.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: recording must be best-effort and must not panic.
type Instruments interface {
	// RecordLookup counts one lookup with its outcome.
	RecordLookup(ctx context.Context, outcome string)

	// RecordCompute counts one computation with its status
	// ("success"/"failure"), trigger and duration.
	RecordCompute(ctx context.Context, status, trigger string, elapsed time.Duration)

	// RecordInvalidation counts one invalidation call and the number
	// of entries it affected.
	RecordInvalidation(ctx context.Context, strategy string, affected int)

	// RecordEntryDelta adjusts the live entry count.
	RecordEntryDelta(ctx context.Context, delta int)

	// RecordSweep counts entries removed by a sweep.
	RecordSweep(ctx context.Context, removed int)
}

// Recording helpers tolerate a nil Instruments so call sites stay
// unconditional.

func (c *Cache[V]) recordLookup(ctx context.Context, outcome string) {
	if c.inst != nil {
		c.inst.RecordLookup(ctx, outcome)
	}
}

func (c *Cache[V]) recordCompute(ctx context.Context, status, trigger string, elapsed time.Duration) {
	if c.inst != nil {
		c.inst.RecordCompute(ctx, status, trigger, elapsed)
	}
}

func (c *Cache[V]) recordInvalidation(ctx context.Context, strategy string, affected int) {
	if c.inst != nil {
		c.inst.RecordInvalidation(ctx, strategy, affected)
	}
}

func (c *Cache[V]) recordEntryDelta(ctx context.Context, delta int) {
	if c.inst != nil && delta != 0 {
		c.inst.RecordEntryDelta(ctx, delta)
	}
}

func (c *Cache[V]) recordSweep(ctx context.Context, removed int) {
	if c.inst != nil && removed > 0 {
		c.inst.RecordSweep(ctx, removed)
	}
}

// The OpenTelemetry instrument set satisfies Instruments directly.
var _ Instruments = (*observe.CacheMetrics)(nil)
