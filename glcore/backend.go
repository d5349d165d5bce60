package glcore

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Backend abstracts the graphics entry points the multidraw emulation calls.
//
// Methods map one to one onto GL entry points of the same name unless noted.
// Implementations are driven from a single goroutine that owns the graphics
// context; they need not be safe for concurrent use.
//
// Binding semantics follow GL: operations on a [BufferTarget] act on the
// buffer currently bound to that target, and binding [NoBuffer] unbinds it.
type Backend interface {
	// === Capabilities ===

	// Capabilities reports the device facts the emulation selects on.
	// The result must not change over the lifetime of the backend.
	Capabilities() Capabilities

	// === Buffer Objects ===

	// CreateBuffer returns a new buffer name (glGenBuffers).
	CreateBuffer() BufferID

	// DeleteBuffer deletes a buffer name. Bindings of the buffer revert
	// to NoBuffer.
	DeleteBuffer(id BufferID)

	// BindBuffer binds a buffer to a target.
	BindBuffer(target BufferTarget, id BufferID)

	// BindBufferBase binds a buffer to an indexed binding point of target
	// and to the generic binding of target (glBindBufferBase).
	BindBufferBase(target BufferTarget, index uint32, id BufferID)

	// BufferData (re)specifies the storage of the buffer bound to target.
	// When data is nil, size zeroed bytes are allocated; otherwise size must
	// equal len(data). Usage declares what the buffer will be used for and
	// lets backends pick a storage hint.
	BufferData(target BufferTarget, size int, data []byte, usage gputypes.BufferUsage)

	// MapBufferRange maps [offset, offset+length) of the buffer bound to
	// target. The returned slice aliases the mapping and is valid until
	// UnmapBuffer. A nil slice and a non-nil error report failure.
	MapBufferRange(target BufferTarget, offset, length int, access MapAccess) ([]byte, error)

	// UnmapBuffer ends the mapping of the buffer bound to target.
	// It returns false if the contents became undefined while mapped.
	UnmapBuffer(target BufferTarget) bool

	// BufferSize returns the byte size of the buffer bound to target
	// (glGetBufferParameteriv with GL_BUFFER_SIZE).
	BufferSize(target BufferTarget) int

	// BoundBuffer returns the buffer bound to target (GL_*_BINDING queries).
	BoundBuffer(target BufferTarget) BufferID

	// BoundBufferBase returns the buffer bound to an indexed binding point
	// (glGetIntegeri_v).
	BoundBufferBase(target BufferTarget, index uint32) BufferID

	// === Programs ===

	// CreateComputeProgram compiles and links a compute program.
	// The returned error carries the compile or link log.
	CreateComputeProgram(desc *ComputeProgramDesc) (ProgramID, error)

	// DeleteProgram deletes a program.
	DeleteProgram(id ProgramID)

	// UseProgram makes a program current.
	UseProgram(id ProgramID)

	// CurrentProgram returns the current program (GL_CURRENT_PROGRAM).
	CurrentProgram() ProgramID

	// === Compute ===

	// DispatchCompute launches x*y*z work groups of the current program.
	DispatchCompute(x, y, z uint32)

	// MemoryBarrier orders shader writes before the listed kinds of access.
	MemoryBarrier(barriers Barrier)

	// === Draws ===

	// DrawElements draws count indices starting at byte offset of the bound
	// element buffer.
	DrawElements(mode Primitive, count int32, typ IndexType, offset uintptr)

	// DrawElementsClient draws count indices read from client memory
	// (glDrawElements with no element buffer bound).
	DrawElementsClient(mode Primitive, count int32, typ IndexType, indices []byte)

	// DrawElementsBaseVertex is DrawElements with baseVertex added to every
	// index before vertex fetch.
	DrawElementsBaseVertex(mode Primitive, count int32, typ IndexType, offset uintptr, baseVertex int32)

	// DrawElementsIndirect draws one record read at byte offset of the bound
	// draw indirect buffer.
	DrawElementsIndirect(mode Primitive, typ IndexType, offset uintptr)

	// MultiDrawElementsIndirect draws drawCount records starting at byte
	// offset of the bound draw indirect buffer. A stride of 0 means tightly
	// packed records.
	MultiDrawElementsIndirect(mode Primitive, typ IndexType, offset uintptr, drawCount, stride int32)

	// === Errors ===

	// GetError pops the oldest recorded error, or NoError.
	GetError() ErrorCode
}

// Capabilities describes what a device can do.
type Capabilities struct {
	// BaseVertex indicates glDrawElementsBaseVertex support.
	BaseVertex bool

	// Indirect indicates glDrawElementsIndirect support.
	Indirect bool

	// MultiDrawIndirect indicates glMultiDrawElementsIndirect support
	// (core or through EXT_multi_draw_indirect).
	MultiDrawIndirect bool

	// Compute indicates compute shader and shader storage buffer support.
	Compute bool

	// MaxComputeWorkGroupCountX is the largest X work group count accepted
	// by DispatchCompute.
	MaxComputeWorkGroupCountX uint32

	// MaxShaderStorageBindings is the number of indexed shader storage
	// binding points.
	MaxShaderStorageBindings uint32

	// ShaderVersion is the shading language version compute programs must
	// be written for.
	ShaderVersion ShaderVersion
}

// ShaderVersion is a shading language version.
type ShaderVersion struct {
	Major uint8
	Minor uint8
	ES    bool
}

// String returns the version as a #version directive value, e.g. "310 es".
func (v ShaderVersion) String() string {
	if v.ES {
		return fmt.Sprintf("%d%02d es", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d%02d core", v.Major, v.Minor)
}

// SupportsCompute reports whether the version has compute shaders and
// shader storage blocks (GLSL ES 3.10 or GLSL 4.30).
func (v ShaderVersion) SupportsCompute() bool {
	if v.ES {
		return v.Major > 3 || (v.Major == 3 && v.Minor >= 10)
	}
	return v.Major > 4 || (v.Major == 4 && v.Minor >= 30)
}

// Kernel is the CPU form of a compute program. Backends that cannot compile
// shading language source run it once per invocation. bindings[i] is the
// byte contents of the buffer bound at shader storage binding point i, or
// nil when nothing is bound there; writes land in the buffer.
type Kernel func(globalID uint32, bindings [][]byte)

// ComputeProgramDesc describes a compute program.
type ComputeProgramDesc struct {
	// Label is an optional debug label.
	Label string

	// Source is the shading language source of the compute shader.
	Source string

	// WorkgroupSize is the local size in X declared by Source.
	WorkgroupSize uint32

	// Kernel is the CPU equivalent of Source. Optional for backends that
	// compile Source.
	Kernel Kernel
}
