// Package backend provides a registry of graphics devices the multidraw
// emulation can draw through.
//
// # Backend Registration
//
// Backends register a factory from an init() function and are selected at
// runtime. Import the implementations you want available:
//
//	import (
//		_ "github.com/gogpu/multidraw/backend/gl43"
//		_ "github.com/gogpu/multidraw/backend/software"
//	)
//
// # Backend Selection
//
// Use Open("") to get the best device whose Init succeeds, or Open with a
// name to request a specific backend:
//
//	dev, err := backend.Open(backend.BackendSoftware)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	e := multidraw.New(dev)
//
// # Available Backends
//
//   - software: CPU emulation of the GL subset, records every draw
//   - gl: OpenGL 4.3 core through go-gl, on a hidden GLFW window
package backend
