package lifetime

import "errors"

// Sentinel errors for profile resolution and registration.
var (
	// ErrUnknownProfile is returned when a profile name is not registered.
	ErrUnknownProfile = errors.New("lifetime: unknown profile")

	// ErrInvalidProfile is returned when a profile's windows are inconsistent.
	ErrInvalidProfile = errors.New("lifetime: invalid profile")
)
