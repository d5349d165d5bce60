// Package glcore defines the GL-flavoured backend abstraction used by the
// multidraw emulation layer.
//
// The [Backend] interface mirrors the subset of OpenGL ES 3.1 / OpenGL 4.3
// entry points the emulation needs: buffer objects and their bindings,
// buffer mapping, compute programs and dispatch, memory barriers and the
// indexed draw family. Enumerations carry their GL values so that a backend
// built on a real GL function table can pass them straight through.
//
// # Architecture
//
//	               +-----------------+
//	               |    multidraw    |
//	               |  (strategies)   |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|    software     |          |      gl43       |
//	| (CPU emulation) |          |  (go-gl/gl 4.3) |
//	+-----------------+          +-----------------+
//
// # Capabilities
//
// Device capability detection is not part of this package. A backend reports
// what it found through [Capabilities] and the emulation treats those values
// as facts.
//
// # Resource Management
//
// Buffers and programs are addressed by opaque IDs ([BufferID], [ProgramID]).
// The zero ID is never a valid object; binding it unbinds the target, exactly
// like binding name 0 in GL.
//
// # Errors
//
// Like GL, most operations report failures through a sticky error queue read
// with [Backend.GetError]. Only operations that hand memory or compiled
// objects back to Go return an error value.
package glcore
