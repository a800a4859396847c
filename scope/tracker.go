package scope

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Tracker creates cache scopes with a fixed base set of request-bound
// operations. It is immutable after construction and safe for
// concurrent use.
type Tracker struct {
	requestBound map[string]struct{}
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithRequestBound declares operations that must not execute inside a
// cache scope. May be given multiple times; the sets accumulate.
func WithRequestBound(ops ...string) TrackerOption {
	return func(t *Tracker) {
		for _, op := range ops {
			t.requestBound[op] = struct{}{}
		}
	}
}

// NewTracker creates a tracker. With no options, scopes it creates
// restrict nothing until EnterWith adds per-scope operations.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{requestBound: make(map[string]struct{})}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Scope marks a cacheable computation in progress. It is created by
// Tracker.Enter, travels in the context, and is discarded with End.
type Scope struct {
	id         string
	depth      int
	enteredAt  time.Time
	parent     *Scope
	restricted map[string]struct{}
	ended      atomic.Bool
}

// Enter begins a cache scope and returns a context carrying it. If the
// context already carries a scope, the new scope nests inside it and
// inherits all of its restrictions.
func (t *Tracker) Enter(ctx context.Context) (context.Context, *Scope) {
	return t.EnterWith(ctx)
}

// EnterWith begins a cache scope that restricts the tracker's
// request-bound operations plus the given extras. An inner scope can
// only tighten the guard: the outer scope's restrictions always carry
// over.
func (t *Tracker) EnterWith(ctx context.Context, extra ...string) (context.Context, *Scope) {
	parent := FromContext(ctx)

	restricted := make(map[string]struct{}, len(t.requestBound)+len(extra))
	for op := range t.requestBound {
		restricted[op] = struct{}{}
	}
	if parent != nil {
		for op := range parent.restricted {
			restricted[op] = struct{}{}
		}
	}
	for _, op := range extra {
		restricted[op] = struct{}{}
	}

	s := &Scope{
		id:         uuid.NewString(),
		enteredAt:  time.Now(),
		parent:     parent,
		restricted: restricted,
	}
	if parent != nil {
		s.depth = parent.depth + 1
	}
	return withScope(ctx, s), s
}

// End closes the scope. Idempotent. Contexts derived from the scope
// stop restricting once it has ended, falling back to the nearest
// still-active enclosing scope.
func (s *Scope) End() {
	s.ended.Store(true)
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() string { return s.id }

// Depth returns the nesting depth, zero for an outermost scope.
func (s *Scope) Depth() int { return s.depth }

// EnteredAt returns when the scope was entered.
func (s *Scope) EnteredAt() time.Time { return s.enteredAt }

// active returns the receiver if it has not ended, else the nearest
// still-active ancestor.
func (s *Scope) active() *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		if !cur.ended.Load() {
			return cur
		}
	}
	return nil
}

// AssertCacheable fails with a NonCacheableAccessError if the context
// is inside an active cache scope whose restrictions include op.
// Outside any scope it is a no-op, so callers may consult it
// unconditionally.
func AssertCacheable(ctx context.Context, op string) error {
	s := activeFromContext(ctx)
	if s == nil {
		return nil
	}
	if _, bound := s.restricted[op]; bound {
		return &NonCacheableAccessError{Operation: op, ScopeID: s.id}
	}
	return nil
}

// Active reports whether the context is inside an active cache scope.
func Active(ctx context.Context) bool {
	return activeFromContext(ctx) != nil
}

func activeFromContext(ctx context.Context) *Scope {
	s := FromContext(ctx)
	if s == nil {
		return nil
	}
	return s.active()
}
