package cache

import (
	"context"
	"sync"

	"github.com/jonwraymond/tagcache/lifetime"
)

// Context keys for cache-related values.
type contextKey int

const (
	collectorKey contextKey = iota
)

// collector gathers tag and lifetime declarations a computation makes
// about itself while it runs. One collector exists per computation;
// the engine merges it into the entry at commit.
type collector struct {
	lifetimes *lifetime.Registry

	mu        sync.Mutex
	tags      []string
	profile   lifetime.Profile
	tightened bool
}

func newCollector(lifetimes *lifetime.Registry) *collector {
	return &collector{lifetimes: lifetimes}
}

func withCollector(ctx context.Context, col *collector) context.Context {
	return context.WithValue(ctx, collectorKey, col)
}

func collectorFromContext(ctx context.Context) *collector {
	col, _ := ctx.Value(collectorKey).(*collector)
	return col
}

func (c *collector) addTags(tags []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = append(c.tags, tags...)
}

func (c *collector) tighten(p lifetime.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tightened {
		c.profile = c.profile.Tighten(p)
	} else {
		c.profile = p
		c.tightened = true
	}
}

// snapshot returns the declared tags and, if any Life call was made,
// the tightened profile.
func (c *collector) snapshot() ([]string, lifetime.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tags := make([]string, len(c.tags))
	copy(tags, c.tags)
	return tags, c.profile, c.tightened
}

// Tag attaches additional tags to the entry being computed. The tags
// merge with the ones passed to GetOrCompute. Tag only has effect when
// called from inside a computation; anywhere else it is a no-op, so
// shared helpers may call it unconditionally.
func Tag(ctx context.Context, tags ...string) {
	col := collectorFromContext(ctx)
	if col == nil || len(tags) == 0 {
		return
	}
	col.addTags(tags)
}

// Life tightens the lifetime of the entry being computed to the named
// profile. When several profiles apply, the shortest of each window
// wins, so a computation can only shorten how long its result lives.
// Unrecognized names fail with lifetime.ErrUnknownProfile. Outside a
// computation Life is a no-op.
func Life(ctx context.Context, profile string) error {
	col := collectorFromContext(ctx)
	if col == nil {
		return nil
	}
	p, err := col.lifetimes.Resolve(profile)
	if err != nil {
		return err
	}
	col.tighten(p)
	return nil
}
