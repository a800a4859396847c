package cache

import "context"

// WrapConfig configures Wrap.
type WrapConfig[I any] struct {
	// Keyer derives cache keys from inputs. Nil uses NewDefaultKeyer().
	Keyer Keyer

	// Profile names the lifetime profile for computed entries.
	// Empty resolves to the registry default.
	Profile string

	// Tags are attached to every entry the wrapped function computes.
	Tags []string

	// TagsFor derives additional tags from the input, for per-entity
	// tags such as "post:42". Nil attaches only Tags.
	TagsFor func(input I) []string

	// Skip bypasses the cache entirely for matching inputs. The
	// function runs directly and nothing is stored.
	Skip func(input I) bool
}

// Wrap turns fn into a cached function: calls with equal inputs share
// one entry under a key derived from id and the input, and recompute
// through the cache's single-flight path when the entry is missing,
// invalidated, or due for refresh.
//
// Inputs must be representable by the configured Keyer. When key
// derivation fails the call runs uncached rather than failing.
func Wrap[V, I any](c *Cache[V], id string, fn func(ctx context.Context, input I) (V, error), cfg WrapConfig[I]) func(ctx context.Context, input I) (V, error) {
	keyer := cfg.Keyer
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}

	return func(ctx context.Context, input I) (V, error) {
		if cfg.Skip != nil && cfg.Skip(input) {
			return fn(ctx, input)
		}

		key, err := keyer.Key(id, input)
		if err != nil {
			return fn(ctx, input)
		}

		tags := cfg.Tags
		if cfg.TagsFor != nil {
			tags = append(append([]string(nil), tags...), cfg.TagsFor(input)...)
		}

		return c.GetOrCompute(ctx, key, func(ctx context.Context) (V, error) {
			return fn(ctx, input)
		}, tags, cfg.Profile)
	}
}
