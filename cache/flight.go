package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/tagcache/lifetime"
	"github.com/jonwraymond/tagcache/observe"
	"github.com/jonwraymond/tagcache/scope"
)

// flight is the per-key computation slot. At most one computation holds
// a key's slot at a time; done is closed when the slot is released.
type flight struct {
	done chan struct{}
}

// flightKey names a single-flight group entry. The epoch suffix keeps
// callers that observed different invalidation states from joining a
// computation started against an older state of the key.
func flightKey(key string, epoch uint64) string {
	return key + "@" + strconv.FormatUint(epoch, 10)
}

// computeFlight runs one computation for key and commits the result
// unless an invalidation superseded it. The singleflight group
// collapses concurrent demand for the same key and epoch into one call
// of this method; the slot map serializes calls that arrived through
// different epochs.
func (c *Cache[V]) computeFlight(ctx context.Context, key string, compute ComputeFunc[V], tags []string, profileName string, prof lifetime.Profile, trigger string) (Result[V], error) {
	// The computation must outlive any individual waiter, so it runs
	// on a context detached from the initiating caller's cancellation.
	ctx = context.WithoutCancel(ctx)

	for {
		now := c.now()
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && e.stateAt(now) == StateFresh {
			// A preceding flight committed while this one queued.
			res := Result[V]{Value: e.value, State: StateFresh, Generation: e.generation}
			c.mu.Unlock()
			return res, nil
		}
		if other, busy := c.inflight[key]; busy {
			done := other.done
			c.mu.Unlock()
			<-done
			continue
		}

		var startEpoch uint64
		e, existed := c.entries[key]
		if existed {
			startEpoch = e.epoch
		}
		fl := &flight{done: make(chan struct{})}
		c.inflight[key] = fl
		c.mu.Unlock()

		return c.runFlight(ctx, fl, key, compute, tags, profileName, prof, existed, startEpoch, trigger)
	}
}

// runFlight owns the claimed slot for key: it executes the computation,
// commits on success, and releases the slot on every path.
func (c *Cache[V]) runFlight(ctx context.Context, fl *flight, key string, compute ComputeFunc[V], tags []string, profileName string, prof lifetime.Profile, existed bool, startEpoch uint64, trigger string) (Result[V], error) {
	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		close(fl.done)
	}()

	start := time.Now()
	value, col, err := c.runCompute(ctx, compute)
	elapsed := time.Since(start)

	if err != nil {
		c.recordCompute(ctx, "failure", trigger, elapsed)
		if trigger == TriggerBackground {
			c.logWarn(ctx, "background refresh failed",
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
		return Result[V]{}, &ComputeError{Key: key, Err: err}
	}
	c.recordCompute(ctx, "success", trigger, elapsed)

	colTags, colProf, tightened := col.snapshot()
	allTags := tags
	if len(colTags) > 0 {
		allTags = append(append([]string(nil), tags...), colTags...)
	}
	effective := prof
	if tightened {
		effective = prof.Tighten(colProf)
	}

	now := c.now()
	c.mu.Lock()
	cur, ok := c.entries[key]
	if ok != existed || (ok && cur.epoch != startEpoch) {
		// An invalidation or explicit write landed mid-computation.
		// Its marking wins: the value goes to the waiters but is not
		// retained, so the next read recomputes against current data.
		c.mu.Unlock()
		return Result[V]{Value: value, State: StateFresh}, nil
	}
	ent := c.putLocked(key, value, allTags, effective, profileName, now, false)
	gen := ent.generation
	c.mu.Unlock()

	if !existed {
		c.recordEntryDelta(ctx, 1)
	}
	return Result[V]{Value: value, State: StateFresh, Generation: gen}, nil
}

// runCompute invokes the user computation inside a cache scope with a
// collector attached, converting panics into errors so a failing
// computation can never strand its flight slot.
func (c *Cache[V]) runCompute(ctx context.Context, compute ComputeFunc[V]) (value V, col *collector, err error) {
	if c.tracker != nil {
		var sc *scope.Scope
		ctx, sc = c.tracker.Enter(ctx)
		defer sc.End()
	}
	col = newCollector(c.lifetimes)
	ctx = withCollector(ctx, col)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	value, err = compute(ctx)
	return value, col, err
}
