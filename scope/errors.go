package scope

import (
	"errors"
	"fmt"
)

// Sentinel errors for scope enforcement.
var (
	// ErrNonCacheable is returned when a request-bound operation is
	// attempted inside an active cache scope.
	ErrNonCacheable = errors.New("scope: non-cacheable access inside cache scope")
)

// NonCacheableAccessError reports a request-bound operation attempted
// inside a cache scope. It matches ErrNonCacheable via errors.Is.
type NonCacheableAccessError struct {
	// Operation is the request-bound operation that was attempted.
	Operation string

	// ScopeID identifies the scope that rejected the access.
	ScopeID string
}

// Error returns the error message.
func (e *NonCacheableAccessError) Error() string {
	return fmt.Sprintf("scope: operation %q is request-bound and cannot run inside cache scope %s", e.Operation, e.ScopeID)
}

// Is reports whether this error matches the target.
func (e *NonCacheableAccessError) Is(target error) bool {
	return target == ErrNonCacheable
}
