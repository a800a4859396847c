package lifetime

import (
	"fmt"
	"sort"
	"sync"
)

// Registry resolves profile names to profiles. It is safe for
// concurrent use. The zero value is not usable; construct with
// NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewRegistry returns a registry seeded with the built-in profiles.
func NewRegistry() *Registry {
	return &Registry{profiles: builtins()}
}

// Resolve returns the profile registered under name. The empty name
// resolves to DefaultName. Unrecognized names fail with
// ErrUnknownProfile and no side effects.
func (r *Registry) Resolve(name string) (Profile, error) {
	if name == "" {
		name = DefaultName
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// Register installs or replaces a profile under name. Built-in names
// may be overridden. The profile is validated first; an invalid
// profile leaves the registry unchanged.
func (r *Registry) Register(name string, p Profile) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidProfile)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[name] = p
	return nil
}

// Names returns the registered profile names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
