package scope

import (
	"context"
)

// Context keys for scope-related values.
type contextKey int

const (
	scopeKey contextKey = iota
)

func withScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// FromContext retrieves the innermost scope from the context, ended or
// not. Returns nil if no scope is present.
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey).(*Scope)
	return s
}
