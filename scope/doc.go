// Package scope enforces the boundary between cacheable computations
// and request-bound data.
//
// A cacheable computation must not capture ambient per-request state
// (identity, cookies, request time) because its result is shared across
// callers. The Tracker brackets a computation in a scope carried by the
// context; code paths that expose request-bound data consult
// AssertCacheable before handing it out, and fail inside a scope.
//
//	tracker := scope.NewTracker(
//	    scope.WithRequestBound("request.identity", "request.cookies"),
//	)
//
//	ctx, sc := tracker.Enter(ctx)
//	defer sc.End()
//
//	if err := scope.AssertCacheable(ctx, "request.identity"); err != nil {
//	    // rejected: identity must be passed in as a parameter instead
//	}
//
// Scopes nest: an inner scope inherits every restriction of its outer
// scope and may only add to them, never remove.
package scope
