// Package gl43 is a glcore.Backend on an OpenGL 4.3 core profile context,
// using go-gl for the function table and GLFW for a hidden window that
// owns the context.
//
// Import the package to register the "gl" backend:
//
//	import _ "github.com/gogpu/multidraw/backend/gl43"
//
// Every method must be called from the goroutine that called Init; Init
// locks that goroutine to its OS thread. Build with -tags nogl to compile
// without cgo; the backend then registers a factory that returns nil.
//
// OpenGL core profiles reject client-memory index arrays, so
// DrawElementsClient streams the indices through a scratch element buffer.
package gl43
