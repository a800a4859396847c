package lifetime

import (
	"fmt"
	"time"
)

// RefreshPolicy selects how a stale entry is brought back to fresh.
type RefreshPolicy int

const (
	// RefreshBackground serves the stale value immediately and schedules
	// a single background recomputation.
	RefreshBackground RefreshPolicy = iota
	// RefreshBlocking makes stale readers wait for recomputation instead
	// of accepting the old value.
	RefreshBlocking
)

// String returns the string representation of the policy.
func (p RefreshPolicy) String() string {
	switch p {
	case RefreshBackground:
		return "background"
	case RefreshBlocking:
		return "blocking"
	default:
		return "unknown"
	}
}

// Profile describes the freshness windows of a cached entry.
type Profile struct {
	// Stale is how long after creation the entry is served without any
	// refresh activity. Once elapsed the entry is stale: still servable,
	// but eligible for recomputation per Refresh.
	// Zero means the entry never goes stale on its own.
	Stale time.Duration

	// Expire is how long after creation the entry may be served at all.
	// Once elapsed the value is unusable and the next read blocks on
	// recomputation. Zero means the entry never expires on its own.
	Expire time.Duration

	// Refresh selects stale-read behavior. Default: RefreshBackground.
	Refresh RefreshPolicy
}

// Validate reports whether the profile's windows are consistent.
// An entry must not go stale after it expires.
func (p Profile) Validate() error {
	if p.Stale < 0 {
		return fmt.Errorf("%w: negative stale window %v", ErrInvalidProfile, p.Stale)
	}
	if p.Expire < 0 {
		return fmt.Errorf("%w: negative expire window %v", ErrInvalidProfile, p.Expire)
	}
	if p.Stale > 0 && p.Expire > 0 && p.Stale > p.Expire {
		return fmt.Errorf("%w: stale window %v exceeds expire window %v", ErrInvalidProfile, p.Stale, p.Expire)
	}
	return nil
}

// StaleAt returns the instant the entry goes stale, or the zero time if
// the profile has no staleness window.
func (p Profile) StaleAt(created time.Time) time.Time {
	if p.Stale <= 0 {
		return time.Time{}
	}
	return created.Add(p.Stale)
}

// ExpireAt returns the instant the entry expires, or the zero time if
// the profile never expires.
func (p Profile) ExpireAt(created time.Time) time.Time {
	if p.Expire <= 0 {
		return time.Time{}
	}
	return created.Add(p.Expire)
}

// Tighten combines two profiles, keeping the shorter of each window.
// A zero window means the window never elapses, so any finite window
// wins over it. The result blocks on stale reads if either profile
// does.
func (p Profile) Tighten(o Profile) Profile {
	out := Profile{
		Stale:  shorterWindow(p.Stale, o.Stale),
		Expire: shorterWindow(p.Expire, o.Expire),
	}
	if p.Refresh == RefreshBlocking || o.Refresh == RefreshBlocking {
		out.Refresh = RefreshBlocking
	}
	if out.Stale > out.Expire && out.Expire > 0 {
		out.Stale = out.Expire
	}
	return out
}

func shorterWindow(x, y time.Duration) time.Duration {
	if x <= 0 {
		return y
	}
	if y <= 0 {
		return x
	}
	if x < y {
		return x
	}
	return y
}

// DefaultName is the profile resolved when a caller does not name one.
const DefaultName = "default"

// builtins returns the built-in profile table. Windows increase strictly
// from "seconds" through "weeks"; "max" never goes stale or expires on
// its own and is cleared only by explicit tag invalidation.
func builtins() map[string]Profile {
	return map[string]Profile{
		DefaultName: {Stale: 15 * time.Minute, Expire: 0},
		"seconds":   {Stale: time.Second, Expire: time.Minute},
		"minutes":   {Stale: time.Minute, Expire: time.Hour},
		"hours":     {Stale: time.Hour, Expire: 24 * time.Hour},
		"days":      {Stale: 24 * time.Hour, Expire: 7 * 24 * time.Hour},
		"weeks":     {Stale: 7 * 24 * time.Hour, Expire: 30 * 24 * time.Hour},
		"max":       {Stale: 0, Expire: 0},
	}
}
