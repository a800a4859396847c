// Package lifetime defines named freshness profiles for cached entries.
//
// A profile separates two windows measured from an entry's creation:
// the staleness window, after which background refresh is permitted,
// and the expiry window, after which the value is unusable and the
// next read must block on recomputation. Built-in profiles range from
// "seconds" to "max"; custom profiles can be registered directly or
// loaded from YAML configuration.
//
//	reg := lifetime.NewRegistry()
//	reg.Register("product", lifetime.Profile{
//	    Stale:  5 * time.Minute,
//	    Expire: time.Hour,
//	})
//	p, err := reg.Resolve("product")
package lifetime
