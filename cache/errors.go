package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache operations.
var (
	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache: cache is closed")

	// ErrInvalidKey is returned for empty keys or keys with control characters.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrKeyTooLong is returned when a key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrNilCompute is returned when GetOrCompute is given a nil function.
	ErrNilCompute = errors.New("cache: compute function is nil")

	// ErrComputeFailed is returned when a computation fails. The concrete
	// error is a *ComputeError wrapping the cause.
	ErrComputeFailed = errors.New("cache: computation failed")

	// ErrNoSnapshot is returned by Persist when the cache was built
	// without WithSnapshotPath.
	ErrNoSnapshot = errors.New("cache: snapshot persistence not configured")
)

// ComputeError reports a failed computation for a key. Every caller
// waiting synchronously on the same computation receives the same
// ComputeError; the entry's previous value, if any, stays servable.
// It matches ErrComputeFailed via errors.Is.
type ComputeError struct {
	// Key is the cache key whose computation failed.
	Key string

	// Err is the error returned by the compute function.
	Err error
}

// Error returns the error message.
func (e *ComputeError) Error() string {
	return fmt.Sprintf("cache: compute for key %q failed: %v", e.Key, e.Err)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *ComputeError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target.
func (e *ComputeError) Is(target error) bool {
	return target == ErrComputeFailed
}
