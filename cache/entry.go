package cache

import "time"

// State represents the lifecycle state of a cache entry.
type State int

const (
	// StateFresh means the entry is within its staleness window and
	// served without any refresh activity.
	StateFresh State = iota
	// StateStale means the entry is still servable but eligible for
	// recomputation.
	StateStale
	// StateInvalidated means the value is unusable; the next read
	// blocks on recomputation.
	StateInvalidated
	// StateComputing means no servable value exists and a computation
	// is in flight.
	StateComputing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateInvalidated:
		return "invalidated"
	case StateComputing:
		return "computing"
	default:
		return "unknown"
	}
}

// entry is the stored record for one key. The marker holds explicit
// transitions only (tag invalidation); elapsed windows are applied
// lazily by stateAt, so an entry never needs a timer to change state.
type entry[V any] struct {
	key        string
	value      V
	tags       []string
	profile    string
	createdAt  time.Time
	staleAt    time.Time //  zero = never goes stale on its own
	expireAt   time.Time //  zero = never expires on its own
	generation uint64
	epoch      uint64
	marker     State // StateFresh, StateStale or StateInvalidated
}

// stateAt derives the effective state at time now from the marker and
// the entry's windows. A lookup must never serve an entry whose
// effective state is StateInvalidated, even before a sweep removes it.
func (e *entry[V]) stateAt(now time.Time) State {
	if e.marker == StateInvalidated {
		return StateInvalidated
	}
	if !e.expireAt.IsZero() && !now.Before(e.expireAt) {
		return StateInvalidated
	}
	if e.marker == StateStale {
		return StateStale
	}
	if !e.staleAt.IsZero() && !now.Before(e.staleAt) {
		return StateStale
	}
	return StateFresh
}

// servable reports whether the entry may be returned to readers at now.
func (e *entry[V]) servable(now time.Time) bool {
	st := e.stateAt(now)
	return st == StateFresh || st == StateStale
}

// EntryInfo is a read-only snapshot of one entry's metadata.
type EntryInfo struct {
	Key        string
	Tags       []string
	Profile    string
	State      State
	Generation uint64
	CreatedAt  time.Time
	StaleAt    time.Time
	ExpireAt   time.Time
}

// Result carries a value together with its provenance.
type Result[V any] struct {
	// Value is the cached or freshly computed value.
	Value V

	// State is the state the value was served from: StateFresh for a
	// fresh hit or a completed computation, StateStale for a
	// stale-while-revalidate serve.
	State State

	// Generation counts successful computations committed for the key.
	// It is zero when a freshly computed value was not retained because
	// an invalidation superseded it mid-computation.
	Generation uint64
}
