package glcore

import "fmt"

// Resource IDs
//
// These opaque IDs name backend objects. They are uint32 to match GL object
// names one to one.

// BufferID is an opaque handle to a buffer object.
type BufferID uint32

// ProgramID is an opaque handle to a linked program object.
type ProgramID uint32

// NoBuffer is the zero buffer name. Binding it unbinds the target.
const NoBuffer BufferID = 0

// NoProgram is the zero program name.
const NoProgram ProgramID = 0

// Primitive is a primitive topology (the "mode" argument of GL draw calls).
type Primitive uint32

// Primitive topologies, with their GL enum values.
const (
	Points                 Primitive = 0x0000
	Lines                  Primitive = 0x0001
	LineLoop               Primitive = 0x0002
	LineStrip              Primitive = 0x0003
	Triangles              Primitive = 0x0004
	TriangleStrip          Primitive = 0x0005
	TriangleFan            Primitive = 0x0006
	LinesAdjacency         Primitive = 0x000A
	LineStripAdjacency     Primitive = 0x000B
	TrianglesAdjacency     Primitive = 0x000C
	TriangleStripAdjacency Primitive = 0x000D
	Patches                Primitive = 0x000E
)

// String returns the GL name of the topology.
func (p Primitive) String() string {
	switch p {
	case Points:
		return "GL_POINTS"
	case Lines:
		return "GL_LINES"
	case LineLoop:
		return "GL_LINE_LOOP"
	case LineStrip:
		return "GL_LINE_STRIP"
	case Triangles:
		return "GL_TRIANGLES"
	case TriangleStrip:
		return "GL_TRIANGLE_STRIP"
	case TriangleFan:
		return "GL_TRIANGLE_FAN"
	case LinesAdjacency:
		return "GL_LINES_ADJACENCY"
	case LineStripAdjacency:
		return "GL_LINE_STRIP_ADJACENCY"
	case TrianglesAdjacency:
		return "GL_TRIANGLES_ADJACENCY"
	case TriangleStripAdjacency:
		return "GL_TRIANGLE_STRIP_ADJACENCY"
	case Patches:
		return "GL_PATCHES"
	default:
		return fmt.Sprintf("Primitive(0x%04X)", uint32(p))
	}
}

// StripLike reports whether vertices of one draw share adjacency with their
// neighbours. Concatenating index ranges of such draws would stitch
// primitives across draw boundaries.
func (p Primitive) StripLike() bool {
	switch p {
	case LineStrip, LineLoop, TriangleStrip, TriangleFan,
		LineStripAdjacency, TriangleStripAdjacency:
		return true
	default:
		return false
	}
}

// IndexType is the element type of an index buffer.
type IndexType uint32

// Index element types, with their GL enum values.
const (
	UnsignedByte  IndexType = 0x1401
	UnsignedShort IndexType = 0x1403
	UnsignedInt   IndexType = 0x1405
)

// String returns the GL name of the index type.
func (t IndexType) String() string {
	switch t {
	case UnsignedByte:
		return "GL_UNSIGNED_BYTE"
	case UnsignedShort:
		return "GL_UNSIGNED_SHORT"
	case UnsignedInt:
		return "GL_UNSIGNED_INT"
	default:
		return fmt.Sprintf("IndexType(0x%04X)", uint32(t))
	}
}

// Valid reports whether t is one of the three unsigned index widths.
func (t IndexType) Valid() bool {
	return t == UnsignedByte || t == UnsignedShort || t == UnsignedInt
}

// Size returns the element size in bytes. Unrecognized types report 4,
// the width GL implementations assume for unknown enums in offset math.
func (t IndexType) Size() int {
	switch t {
	case UnsignedByte:
		return 1
	case UnsignedShort:
		return 2
	default:
		return 4
	}
}

// MaxValue returns the largest index value representable by t.
func (t IndexType) MaxValue() uint32 {
	switch t {
	case UnsignedByte:
		return 0xFF
	case UnsignedShort:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}

// BufferTarget is a buffer binding point.
type BufferTarget uint32

// Buffer targets, with their GL enum values.
const (
	ArrayBuffer         BufferTarget = 0x8892
	ElementArrayBuffer  BufferTarget = 0x8893
	DrawIndirectBuffer  BufferTarget = 0x8F3F
	ShaderStorageBuffer BufferTarget = 0x90D2
)

// String returns the GL name of the target.
func (t BufferTarget) String() string {
	switch t {
	case ArrayBuffer:
		return "GL_ARRAY_BUFFER"
	case ElementArrayBuffer:
		return "GL_ELEMENT_ARRAY_BUFFER"
	case DrawIndirectBuffer:
		return "GL_DRAW_INDIRECT_BUFFER"
	case ShaderStorageBuffer:
		return "GL_SHADER_STORAGE_BUFFER"
	default:
		return fmt.Sprintf("BufferTarget(0x%04X)", uint32(t))
	}
}

// MapAccess is a bitmask of buffer mapping flags.
type MapAccess uint32

// Map access flags, with their GL values.
const (
	MapRead             MapAccess = 0x0001
	MapWrite            MapAccess = 0x0002
	MapInvalidateRange  MapAccess = 0x0004
	MapInvalidateBuffer MapAccess = 0x0008
)

// Barrier is a bitmask of memory barrier bits.
type Barrier uint32

// Memory barrier bits, with their GL values.
const (
	BarrierElementArray Barrier = 0x00000002
	BarrierCommand      Barrier = 0x00000040
	BarrierShaderStore  Barrier = 0x00002000
)

// ErrorCode is a value of the GL error queue.
type ErrorCode uint32

// Error codes, with their GL values.
const (
	NoError          ErrorCode = 0
	InvalidEnum      ErrorCode = 0x0500
	InvalidValue     ErrorCode = 0x0501
	InvalidOperation ErrorCode = 0x0502
	OutOfMemory      ErrorCode = 0x0505
)

// String returns the GL name of the error code.
func (e ErrorCode) String() string {
	switch e {
	case NoError:
		return "GL_NO_ERROR"
	case InvalidEnum:
		return "GL_INVALID_ENUM"
	case InvalidValue:
		return "GL_INVALID_VALUE"
	case InvalidOperation:
		return "GL_INVALID_OPERATION"
	case OutOfMemory:
		return "GL_OUT_OF_MEMORY"
	default:
		return fmt.Sprintf("ErrorCode(0x%04X)", uint32(e))
	}
}
