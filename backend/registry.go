package backend

import (
	"sync"
)

// DeviceFactory creates a new device instance.
type DeviceFactory func() Device

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]DeviceFactory)
	// Priority order for backend selection (first available wins).
	// A real GL context beats the software emulation.
	backendPriority = []string{BackendGL, BackendSoftware}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory DeviceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns a list of registered backend names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a device instance by name.
// Returns nil if the backend is not registered.
func Get(name string) Device {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best available device based on priority.
// Priority order: gl > software
// Returns nil if no backends are registered.
func Default() Device {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			d := factory()
			if d != nil {
				return d
			}
		}
	}

	// Fallback: return first available
	for _, factory := range backends {
		if d := factory(); d != nil {
			return d
		}
	}

	return nil
}

// MustDefault returns the default device or panics.
func MustDefault() Device {
	d := Default()
	if d == nil {
		panic("backend: no backend available")
	}
	return d
}

// Open returns an initialized device. An empty name selects by priority,
// skipping devices whose Init fails.
func Open(name string) (Device, error) {
	if name != "" {
		d := Get(name)
		if d == nil {
			return nil, ErrBackendNotAvailable
		}
		if err := d.Init(); err != nil {
			return nil, err
		}
		return d, nil
	}

	var lastErr error = ErrBackendNotAvailable
	for _, n := range priorityNames() {
		d := Get(n)
		if d == nil {
			continue
		}
		if err := d.Init(); err != nil {
			lastErr = err
			continue
		}
		return d, nil
	}
	return nil, lastErr
}

// priorityNames returns registered names, prioritized ones first.
func priorityNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	seen := make(map[string]bool, len(backends))
	for _, n := range backendPriority {
		if _, ok := backends[n]; ok {
			names = append(names, n)
			seen[n] = true
		}
	}
	for n := range backends {
		if !seen[n] {
			names = append(names, n)
		}
	}
	return names
}
