package backend

import (
	"errors"

	"github.com/gogpu/multidraw/glcore"
)

// ErrBackendNotAvailable is returned when a requested backend is not available.
var ErrBackendNotAvailable = errors.New("backend: not available")

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU emulation of the GL subset.
	BackendSoftware = "software"
	// BackendGL is the name of the OpenGL 4.3 core backend.
	BackendGL = "gl"
)

// Device is a glcore.Backend with a lifecycle.
//
// Devices must be registered via Register() and are selected via
// Get() or Default().
type Device interface {
	glcore.Backend

	// Name returns the backend identifier (e.g., "software", "gl").
	Name() string

	// Init acquires the graphics context. It must be called before any
	// glcore.Backend method, from the goroutine that will issue them.
	Init() error

	// Close releases the graphics context.
	// The device should not be used after Close is called.
	Close()
}
