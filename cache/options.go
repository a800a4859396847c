package cache

import (
	"errors"
	"time"

	"github.com/jonwraymond/tagcache/lifetime"
	"github.com/jonwraymond/tagcache/observe"
	"github.com/jonwraymond/tagcache/scope"
)

// Option configures a Cache at construction.
type Option[V any] func(*Cache[V]) error

// WithLifetimes replaces the registry used to resolve profile names.
// Default: lifetime.NewRegistry() with the built-in profiles.
func WithLifetimes[V any](reg *lifetime.Registry) Option[V] {
	return func(c *Cache[V]) error {
		if reg == nil {
			return errors.New("cache: nil lifetime registry")
		}
		c.lifetimes = reg
		return nil
	}
}

// WithScopeTracker makes the cache bracket every computation in a
// cache scope, so request-bound accesses inside computations are
// rejected by scope.AssertCacheable.
func WithScopeTracker[V any](t *scope.Tracker) Option[V] {
	return func(c *Cache[V]) error {
		c.tracker = t
		return nil
	}
}

// WithLogger sets the logger for background activity (refresh
// failures, sweeps, snapshot loads). Default: no logging.
func WithLogger[V any](log observe.Logger) Option[V] {
	return func(c *Cache[V]) error {
		c.log = log
		return nil
	}
}

// WithInstruments sets the telemetry receiver. Default: no recording.
func WithInstruments[V any](inst Instruments) Option[V] {
	return func(c *Cache[V]) error {
		c.inst = inst
		return nil
	}
}

// WithSweepInterval sets how often the janitor removes expired
// entries. Zero disables the janitor: expired entries are then removed
// only by explicit Sweep calls, though lookups never serve them either
// way.
// Default: 1 minute.
func WithSweepInterval[V any](d time.Duration) Option[V] {
	return func(c *Cache[V]) error {
		if d < 0 {
			return errors.New("cache: negative sweep interval")
		}
		c.sweepEvery = d
		return nil
	}
}

// WithSnapshotPath enables snapshot persistence in a bolt database at
// path. New loads the snapshot if the file exists; Close persists the
// live entries back. The value type must round-trip through
// encoding/json.
func WithSnapshotPath[V any](path string) Option[V] {
	return func(c *Cache[V]) error {
		if path == "" {
			return errors.New("cache: empty snapshot path")
		}
		c.snapshotPath = path
		return nil
	}
}

// WithClock replaces the time source used for windows and sweeping.
// Intended for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) error {
		if now == nil {
			return errors.New("cache: nil clock")
		}
		c.now = now
		return nil
	}
}

type revalidateOptions struct {
	expireAfter time.Duration
	forceExpire bool
}

// RevalidateOption configures a single RevalidateTag call.
type RevalidateOption func(*revalidateOptions)

// WithExpireAfter bounds how long revalidated entries may keep serving
// stale. Zero or negative expires them immediately, so the next read
// of each key blocks on recomputation exactly like after UpdateTag.
func WithExpireAfter(d time.Duration) RevalidateOption {
	return func(o *revalidateOptions) {
		o.expireAfter = d
		o.forceExpire = true
	}
}
