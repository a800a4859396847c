package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/tagcache/lifetime"
	"github.com/jonwraymond/tagcache/observe"
	"github.com/jonwraymond/tagcache/scope"
)

// ComputeFunc produces the value for a key. The engine invokes it with
// a context that carries the cache scope and tag collector and that is
// detached from any single caller, so one waiter's cancellation never
// aborts a computation other waiters share.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Cache is an in-memory, tag-indexed content cache with staged
// invalidation. Entries move between fresh, stale, and invalidated
// states; stale entries keep serving while a single background
// recomputation refreshes them, invalidated entries block the next
// reader until a recomputation succeeds.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use. At most
//     one computation per key runs at any time.
//   - Context: GetOrCompute honors caller cancellation by detaching
//     the waiter; the computation itself continues and commits.
//   - Errors: computation failures reach exactly the callers blocked
//     on that computation, wrapped in *ComputeError. Stale readers
//     are never failed by a background refresh.
type Cache[V any] struct {
	lifetimes    *lifetime.Registry
	tracker      *scope.Tracker
	log          observe.Logger
	inst         Instruments
	now          func() time.Time
	sweepEvery   time.Duration
	snapshotPath string

	group singleflight.Group

	mu       sync.RWMutex
	entries  map[string]*entry[V]
	index    *tagIndex
	inflight map[string]*flight
	epochSeq uint64
	snap     *snapshotStore

	closed      atomic.Bool
	janitorStop chan struct{}
	janitorDone chan struct{}
}

// New creates a cache with the given options. Without options the
// cache uses the built-in lifetime profiles, the wall clock, a one
// minute sweep interval, and no scope tracking, logging, metrics, or
// snapshot persistence.
func New[V any](opts ...Option[V]) (*Cache[V], error) {
	c := &Cache[V]{
		lifetimes:  lifetime.NewRegistry(),
		now:        time.Now,
		sweepEvery: time.Minute,
		entries:    make(map[string]*entry[V]),
		index:      newTagIndex(),
		inflight:   make(map[string]*flight),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.snapshotPath != "" {
		if err := c.openAndRestore(); err != nil {
			return nil, err
		}
	}

	if c.sweepEvery > 0 {
		c.janitorStop = make(chan struct{})
		c.janitorDone = make(chan struct{})
		go c.runJanitor()
	}
	return c, nil
}

// GetOrCompute returns the value for key, computing it when the cache
// holds nothing servable. See GetOrComputeResult for the full
// freshness semantics; this variant drops the state metadata.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute ComputeFunc[V], tags []string, profile string) (V, error) {
	res, err := c.GetOrComputeResult(ctx, key, compute, tags, profile)
	return res.Value, err
}

// GetOrComputeResult looks up key and returns its value together with
// the freshness state it was served at.
//
// A fresh entry returns immediately. A stale entry returns immediately
// too when the resolved profile refreshes in the background, scheduling
// at most one recomputation for the key; with blocking refresh the
// caller waits for the recomputation instead. A missing, invalidated,
// or expired entry blocks the caller on a single shared computation.
//
// tags and profile describe the computed entry; tags added via Tag and
// profiles tightened via Life inside the computation are merged in.
// When ctx is canceled while waiting, the caller detaches with ctx's
// error and the computation continues for the remaining waiters and
// the cache itself.
func (c *Cache[V]) GetOrComputeResult(ctx context.Context, key string, compute ComputeFunc[V], tags []string, profile string) (Result[V], error) {
	var zero Result[V]
	if c.closed.Load() {
		return zero, ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return zero, err
	}
	if compute == nil {
		return zero, ErrNilCompute
	}
	prof, err := c.lifetimes.Resolve(profile)
	if err != nil {
		return zero, err
	}

	now := c.now()
	c.mu.RLock()
	e, ok := c.entries[key]
	var (
		st    State
		epoch uint64
		val   V
		gen   uint64
	)
	if ok {
		st = e.stateAt(now)
		epoch = e.epoch
		val = e.value
		gen = e.generation
	}
	c.mu.RUnlock()

	outcome := LookupMiss
	if ok {
		switch st {
		case StateFresh:
			c.recordLookup(ctx, LookupHit)
			return Result[V]{Value: val, State: StateFresh, Generation: gen}, nil
		case StateStale:
			c.recordLookup(ctx, LookupStale)
			if prof.Refresh == lifetime.RefreshBackground {
				c.scheduleRefresh(ctx, key, epoch, compute, tags, profile, prof)
				return Result[V]{Value: val, State: StateStale, Generation: gen}, nil
			}
			return c.await(ctx, key, epoch, compute, tags, profile, prof, TriggerSync)
		default:
			outcome = LookupExpired
		}
	}
	c.recordLookup(ctx, outcome)

	return c.await(ctx, key, epoch, compute, tags, profile, prof, TriggerSync)
}

// await joins the single-flight computation for key at the observed
// epoch and waits for its result. Cancellation detaches the waiter
// without stopping the computation.
func (c *Cache[V]) await(ctx context.Context, key string, epoch uint64, compute ComputeFunc[V], tags []string, profileName string, prof lifetime.Profile, trigger string) (Result[V], error) {
	ch := c.group.DoChan(flightKey(key, epoch), func() (any, error) {
		res, ferr := c.computeFlight(ctx, key, compute, tags, profileName, prof, trigger)
		if ferr != nil {
			return nil, ferr
		}
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return Result[V]{}, r.Err
		}
		return r.Val.(Result[V]), nil
	case <-ctx.Done():
		return Result[V]{}, ctx.Err()
	}
}

// scheduleRefresh starts a background recomputation for a stale key.
// Demand collapses in the flight group, so any number of stale reads
// schedule at most one computation per key and epoch.
func (c *Cache[V]) scheduleRefresh(ctx context.Context, key string, epoch uint64, compute ComputeFunc[V], tags []string, profileName string, prof lifetime.Profile) {
	c.group.DoChan(flightKey(key, epoch), func() (any, error) {
		res, err := c.computeFlight(ctx, key, compute, tags, profileName, prof, TriggerBackground)
		if err != nil {
			return nil, err
		}
		return res, nil
	})
}

// Get returns the servable value for key without side effects: no
// computation is scheduled and freshness is not altered. The boolean
// is false when the key is absent, invalidated, or expired.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	if c.closed.Load() {
		return zero, false
	}
	now := c.now()
	c.mu.RLock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.RUnlock()
		c.recordLookup(ctx, LookupMiss)
		return zero, false
	}
	st := e.stateAt(now)
	val := e.value
	c.mu.RUnlock()

	switch st {
	case StateFresh:
		c.recordLookup(ctx, LookupHit)
		return val, true
	case StateStale:
		c.recordLookup(ctx, LookupStale)
		return val, true
	default:
		c.recordLookup(ctx, LookupExpired)
		return zero, false
	}
}

// Put stores value under key as a fresh entry, replacing any existing
// entry and re-tagging it. The write fences out any computation in
// flight for the key, so a slow computation started before the Put
// cannot overwrite it.
func (c *Cache[V]) Put(ctx context.Context, key string, value V, tags []string, profile string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	prof, err := c.lifetimes.Resolve(profile)
	if err != nil {
		return err
	}

	now := c.now()
	c.mu.Lock()
	_, existed := c.entries[key]
	c.putLocked(key, value, tags, prof, profile, now, true)
	c.mu.Unlock()

	if !existed {
		c.recordEntryDelta(ctx, 1)
	}
	return nil
}

// Remove deletes key from the cache and the tag index. Idempotent.
func (c *Cache[V]) Remove(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.mu.Lock()
	removed := c.removeLocked(key)
	c.mu.Unlock()

	if removed {
		c.recordEntryDelta(ctx, -1)
	}
	return nil
}

// UpdateTag immediately invalidates every entry carrying any of the
// given tags. Affected entries stop serving at once; the next read of
// each key blocks on a fresh computation. Returns the number of
// distinct entries affected.
func (c *Cache[V]) UpdateTag(ctx context.Context, tags ...string) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	c.mu.Lock()
	affected := make(map[string]struct{})
	for _, tag := range tags {
		for _, key := range c.index.keysFor(tag) {
			affected[key] = struct{}{}
		}
	}
	for key := range affected {
		e := c.entries[key]
		e.marker = StateInvalidated
		c.epochSeq++
		e.epoch = c.epochSeq
	}
	c.mu.Unlock()

	n := len(affected)
	c.recordInvalidation(ctx, StrategyUpdate, n)
	c.logDebug(ctx, "tag update invalidated entries",
		observe.Field{Key: "tags", Value: tags},
		observe.Field{Key: "affected", Value: n},
	)
	return n, nil
}

// RevalidateTag marks every entry carrying tag as stale. Readers keep
// receiving the old value while at most one recomputation per key
// proceeds on demand. WithExpireAfter bounds how long the stale value
// may keep serving; a zero bound expires the entries immediately,
// which behaves like UpdateTag. Returns the number of entries marked.
func (c *Cache[V]) RevalidateTag(ctx context.Context, tag string, opts ...RevalidateOption) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	var o revalidateOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	now := c.now()
	c.mu.Lock()
	keys := c.index.keysFor(tag)
	for _, key := range keys {
		e := c.entries[key]
		if o.forceExpire && o.expireAfter <= 0 {
			e.marker = StateInvalidated
		} else {
			if e.marker != StateInvalidated {
				e.marker = StateStale
			}
			if o.forceExpire {
				deadline := now.Add(o.expireAfter)
				if e.expireAt.IsZero() || deadline.Before(e.expireAt) {
					e.expireAt = deadline
				}
			}
		}
		c.epochSeq++
		e.epoch = c.epochSeq
	}
	c.mu.Unlock()

	n := len(keys)
	c.recordInvalidation(ctx, StrategyRevalidate, n)
	c.logDebug(ctx, "tag revalidation marked entries stale",
		observe.Field{Key: "tag", Value: tag},
		observe.Field{Key: "affected", Value: n},
	)
	return n, nil
}

// Sweep removes entries whose hard expiry passed before now, skipping
// keys with a computation in flight. Lookups never serve expired
// entries regardless of sweeping, so this is purely reclamation.
// Returns the number of entries removed.
func (c *Cache[V]) Sweep(now time.Time) int {
	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if e.expireAt.IsZero() || !e.expireAt.Before(now) {
			continue
		}
		if _, busy := c.inflight[key]; busy {
			continue
		}
		c.removeLocked(key)
		removed++
	}
	c.mu.Unlock()

	if removed > 0 {
		ctx := context.Background()
		c.recordSweep(ctx, removed)
		c.recordEntryDelta(ctx, -removed)
	}
	return removed
}

// Len returns the number of entries currently held, servable or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns all keys currently held, sorted.
func (c *Cache[V]) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// TagKeys returns the keys currently indexed under tag, sorted.
func (c *Cache[V]) TagKeys(tag string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.keysFor(tag)
}

// Tags returns all tags with at least one indexed key, sorted.
func (c *Cache[V]) Tags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.tags()
}

// Info reports metadata for key. A non-servable entry whose
// recomputation is in flight reports StateComputing.
func (c *Cache[V]) Info(key string) (EntryInfo, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.RUnlock()
		return EntryInfo{}, false
	}
	_, busy := c.inflight[key]
	info := EntryInfo{
		Key:        e.key,
		Tags:       append([]string(nil), e.tags...),
		Profile:    e.profile,
		State:      e.stateAt(now),
		Generation: e.generation,
		CreatedAt:  e.createdAt,
		StaleAt:    e.staleAt,
		ExpireAt:   e.expireAt,
	}
	c.mu.RUnlock()

	if busy && info.State == StateInvalidated {
		info.State = StateComputing
	}
	return info, true
}

// Persist writes the current entries to the snapshot database.
// Returns ErrNoSnapshot when the cache was built without
// WithSnapshotPath.
func (c *Cache[V]) Persist() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.snap == nil {
		return ErrNoSnapshot
	}
	return c.persistSnapshot()
}

// Close stops the background sweeper, persists the snapshot when one
// is configured, and rejects all subsequent operations. Computations
// already in flight run to completion but their results are not
// persisted.
func (c *Cache[V]) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if c.janitorStop != nil {
		close(c.janitorStop)
		<-c.janitorDone
	}
	if c.snap == nil {
		return nil
	}
	perr := c.persistSnapshot()
	cerr := c.snap.close()
	if perr != nil {
		return perr
	}
	return cerr
}

// putLocked creates or overwrites an entry and reconciles the tag
// index in the same critical section. Explicit writes bump the epoch
// sequence so a computation started before the write cannot commit
// over it; flight commits pass bumpEpoch=false and inherit the epoch
// they were fenced against.
func (c *Cache[V]) putLocked(key string, value V, tags []string, prof lifetime.Profile, profileName string, now time.Time, bumpEpoch bool) *entry[V] {
	normalized := normalizeTags(tags)
	prev, existed := c.entries[key]

	e := &entry[V]{
		key:        key,
		value:      value,
		tags:       normalized,
		profile:    profileName,
		createdAt:  now,
		staleAt:    prof.StaleAt(now),
		expireAt:   prof.ExpireAt(now),
		generation: 1,
		marker:     StateFresh,
	}
	if existed {
		e.generation = prev.generation + 1
		e.epoch = prev.epoch
		for _, tag := range prev.tags {
			if !hasTag(normalized, tag) {
				c.index.deindex(tag, key)
			}
		}
	}
	if bumpEpoch {
		c.epochSeq++
		e.epoch = c.epochSeq
	}
	for _, tag := range normalized {
		c.index.index(tag, key)
	}
	c.entries[key] = e
	return e
}

// removeLocked deletes key and its index entries. Reports whether the
// key existed.
func (c *Cache[V]) removeLocked(key string) bool {
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	for _, tag := range e.tags {
		c.index.deindex(tag, key)
	}
	delete(c.entries, key)
	return true
}

// runJanitor sweeps expired entries on the configured interval until
// Close stops it.
func (c *Cache[V]) runJanitor() {
	defer close(c.janitorDone)
	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-c.janitorStop:
			return
		case now := <-ticker.C:
			if removed := c.Sweep(now); removed > 0 {
				c.logDebug(context.Background(), "sweep reclaimed expired entries",
					observe.Field{Key: "removed", Value: removed},
				)
			}
		}
	}
}

func (c *Cache[V]) logDebug(ctx context.Context, msg string, fields ...observe.Field) {
	if c.log != nil {
		c.log.Debug(ctx, msg, fields...)
	}
}

func (c *Cache[V]) logWarn(ctx context.Context, msg string, fields ...observe.Field) {
	if c.log != nil {
		c.log.Warn(ctx, msg, fields...)
	}
}

// normalizeTags sorts, deduplicates, and drops empty tags.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func hasTag(sorted []string, tag string) bool {
	i := sort.SearchStrings(sorted, tag)
	return i < len(sorted) && sorted[i] == tag
}
