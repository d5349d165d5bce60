//go:build !nogl

package gl43

import "github.com/gogpu/multidraw/backend"

// init registers the gl backend on package import.
func init() {
	backend.Register(backend.BackendGL, func() backend.Device {
		return New()
	})
}
