//go:build nogl

package gl43

import "github.com/gogpu/multidraw/backend"

// init registers a nil-returning factory when built with nogl.
// backend.Get(backend.BackendGL) then returns nil and backend.Default
// moves on to the next backend.
func init() {
	backend.Register(backend.BackendGL, func() backend.Device {
		return nil
	})
}
