//go:build !nogl

package gl43

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/multidraw/backend"
	"github.com/gogpu/multidraw/glcore"
)

// Option configures a Device.
type Option func(*Device)

// WithCurrentContext makes Init use the context already current on the
// calling thread instead of creating a hidden window. The caller keeps
// ownership of that context.
func WithCurrentContext() Option {
	return func(d *Device) {
		d.external = true
	}
}

// Device is an OpenGL 4.3 core glcore.Backend.
type Device struct {
	external bool
	ready    bool
	ctx      *Context
	caps     glcore.Capabilities
	logger   atomic.Pointer[slog.Logger]

	// vao is an empty vertex array; core profiles reject draws without one.
	vao uint32

	// scratch streams client-memory indices.
	scratch     uint32
	scratchSize int
}

var _ backend.Device = (*Device)(nil)

// New returns an uninitialized Device.
func New(opts ...Option) *Device {
	d := &Device{}
	d.logger.Store(slog.New(discardHandler{}))
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns "gl".
func (d *Device) Name() string { return backend.BackendGL }

// Init creates the context, unless WithCurrentContext was given, and reads
// the device capabilities. It locks the calling goroutine to its OS thread.
func (d *Device) Init() error {
	if d.ready {
		return nil
	}
	runtime.LockOSThread()

	if d.external {
		if err := gl.Init(); err != nil {
			return fmt.Errorf("%w: load functions: %w", ErrContextCreation, err)
		}
	} else {
		ctx, err := NewContext()
		if err != nil {
			return err
		}
		d.ctx = ctx
	}

	caps, err := queryCapabilities()
	if err != nil {
		d.Close()
		return err
	}
	d.caps = caps
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	d.ready = true
	d.log().Info("gl43: context ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
		"maxGroupsX", caps.MaxComputeWorkGroupCountX,
		"ssboBindings", caps.MaxShaderStorageBindings)
	return nil
}

// Close deletes the scratch buffer and destroys the context if Init
// created it.
func (d *Device) Close() {
	if d.scratch != 0 {
		gl.DeleteBuffers(1, &d.scratch)
		d.scratch, d.scratchSize = 0, 0
	}
	if d.vao != 0 {
		gl.DeleteVertexArrays(1, &d.vao)
		d.vao = 0
	}
	if d.ctx != nil {
		d.ctx.Close()
		d.ctx = nil
	}
	d.ready = false
}

// SetLogger sets the logger for context and compile diagnostics.
// Pass nil to disable logging.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discardHandler{})
	}
	d.logger.Store(l)
}

func (d *Device) log() *slog.Logger { return d.logger.Load() }

// queryCapabilities reads version and limits from the current context.
func queryCapabilities() (glcore.Capabilities, error) {
	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	if !atLeast(major, minor, 4, 3) {
		return glcore.Capabilities{}, fmt.Errorf("%w: have %d.%d", ErrVersion, major, minor)
	}

	var groupsX, bindings int32
	gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_COUNT, 0, &groupsX)
	gl.GetIntegerv(gl.MAX_SHADER_STORAGE_BUFFER_BINDINGS, &bindings)

	return glcore.Capabilities{
		BaseVertex:                atLeast(major, minor, 3, 2),
		Indirect:                  atLeast(major, minor, 4, 0),
		MultiDrawIndirect:         atLeast(major, minor, 4, 3) || hasExtension("GL_ARB_multi_draw_indirect"),
		Compute:                   atLeast(major, minor, 4, 3),
		MaxComputeWorkGroupCountX: uint32(groupsX),
		MaxShaderStorageBindings:  uint32(bindings),
		ShaderVersion:             glcore.ShaderVersion{Major: 4, Minor: 30},
	}, nil
}

func atLeast(major, minor, wantMajor, wantMinor int32) bool {
	return major > wantMajor || (major == wantMajor && minor >= wantMinor)
}

func hasExtension(name string) bool {
	var n int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	for i := range uint32(n) {
		if gl.GoStr(gl.GetStringi(gl.EXTENSIONS, i)) == name {
			return true
		}
	}
	return false
}

// Capabilities returns what Init found.
func (d *Device) Capabilities() glcore.Capabilities { return d.caps }

// GetError pops one error from the GL error queue.
func (d *Device) GetError() glcore.ErrorCode { return glcore.ErrorCode(gl.GetError()) }

// === Buffer Objects ===

// bindingQuery maps buffer targets to their binding queries.
var bindingQuery = map[glcore.BufferTarget]uint32{
	glcore.ArrayBuffer:         gl.ARRAY_BUFFER_BINDING,
	glcore.ElementArrayBuffer:  gl.ELEMENT_ARRAY_BUFFER_BINDING,
	glcore.DrawIndirectBuffer:  gl.DRAW_INDIRECT_BUFFER_BINDING,
	glcore.ShaderStorageBuffer: gl.SHADER_STORAGE_BUFFER_BINDING,
}

// CreateBuffer generates a buffer name.
func (d *Device) CreateBuffer() glcore.BufferID {
	var id uint32
	gl.GenBuffers(1, &id)
	return glcore.BufferID(id)
}

// DeleteBuffer deletes the buffer id.
func (d *Device) DeleteBuffer(id glcore.BufferID) {
	n := uint32(id)
	gl.DeleteBuffers(1, &n)
}

// BindBuffer binds id to target.
func (d *Device) BindBuffer(target glcore.BufferTarget, id glcore.BufferID) {
	gl.BindBuffer(uint32(target), uint32(id))
}

// BindBufferBase binds id to an indexed binding point of target.
func (d *Device) BindBufferBase(target glcore.BufferTarget, index uint32, id glcore.BufferID) {
	gl.BindBufferBase(uint32(target), index, uint32(id))
}

// BufferData allocates the buffer bound to target, with a usage hint
// derived from usage.
func (d *Device) BufferData(target glcore.BufferTarget, size int, data []byte, usage gputypes.BufferUsage) {
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.BufferData(uint32(target), size, ptr, usageHint(usage))
}

// MapBufferRange maps length bytes at offset of the buffer bound to target.
func (d *Device) MapBufferRange(target glcore.BufferTarget, offset, length int, access glcore.MapAccess) ([]byte, error) {
	if length == 0 {
		return nil, fmt.Errorf("gl43: map %v: empty range", target)
	}
	p := gl.MapBufferRange(uint32(target), offset, length, uint32(access))
	if p == nil {
		return nil, fmt.Errorf("gl43: map %v [%d, +%d): %v", target, offset, length, glcore.ErrorCode(gl.GetError()))
	}
	return unsafe.Slice((*byte)(p), length), nil
}

// UnmapBuffer unmaps the buffer bound to target. It returns false when
// the contents were lost while mapped.
func (d *Device) UnmapBuffer(target glcore.BufferTarget) bool {
	return gl.UnmapBuffer(uint32(target))
}

// BufferSize returns the byte size of the buffer bound to target.
func (d *Device) BufferSize(target glcore.BufferTarget) int {
	var size int32
	gl.GetBufferParameteriv(uint32(target), gl.BUFFER_SIZE, &size)
	return int(size)
}

// BoundBuffer returns the buffer bound to target.
func (d *Device) BoundBuffer(target glcore.BufferTarget) glcore.BufferID {
	q, ok := bindingQuery[target]
	if !ok {
		return glcore.NoBuffer
	}
	var id int32
	gl.GetIntegerv(q, &id)
	return glcore.BufferID(id)
}

// BoundBufferBase returns the buffer bound at index of target.
func (d *Device) BoundBufferBase(target glcore.BufferTarget, index uint32) glcore.BufferID {
	q, ok := bindingQuery[target]
	if !ok {
		return glcore.NoBuffer
	}
	var id int32
	gl.GetIntegeri_v(q, index, &id)
	return glcore.BufferID(id)
}

// === Programs ===

// CreateComputeProgram compiles desc.Source as a compute shader and links
// it. Compile and link failures return a *CompileError with the info log.
func (d *Device) CreateComputeProgram(desc *glcore.ComputeProgramDesc) (glcore.ProgramID, error) {
	sh := gl.CreateShader(gl.COMPUTE_SHADER)
	defer gl.DeleteShader(sh)

	src, free := gl.Strs(desc.Source + "\x00")
	gl.ShaderSource(sh, 1, src, nil)
	free()
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		err := &CompileError{Label: desc.Label, Stage: "compile", Log: shaderLog(sh)}
		d.log().Error("gl43: compute shader compile failed", "label", desc.Label, "log", err.Log)
		return glcore.NoProgram, err
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, sh)
	gl.LinkProgram(prog)
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		err := &CompileError{Label: desc.Label, Stage: "link", Log: programLog(prog)}
		gl.DeleteProgram(prog)
		d.log().Error("gl43: compute program link failed", "label", desc.Label, "log", err.Log)
		return glcore.NoProgram, err
	}
	gl.DetachShader(prog, sh)
	return glcore.ProgramID(prog), nil
}

func shaderLog(sh uint32) string {
	var n int32
	gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &n)
	if n <= 1 {
		return ""
	}
	buf := strings.Repeat("\x00", int(n))
	gl.GetShaderInfoLog(sh, n, nil, gl.Str(buf))
	return strings.TrimRight(buf, "\x00\n")
}

func programLog(prog uint32) string {
	var n int32
	gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &n)
	if n <= 1 {
		return ""
	}
	buf := strings.Repeat("\x00", int(n))
	gl.GetProgramInfoLog(prog, n, nil, gl.Str(buf))
	return strings.TrimRight(buf, "\x00\n")
}

// DeleteProgram deletes the program id.
func (d *Device) DeleteProgram(id glcore.ProgramID) { gl.DeleteProgram(uint32(id)) }

// UseProgram makes id the current program.
func (d *Device) UseProgram(id glcore.ProgramID) { gl.UseProgram(uint32(id)) }

// CurrentProgram returns the current program.
func (d *Device) CurrentProgram() glcore.ProgramID {
	var id int32
	gl.GetIntegerv(gl.CURRENT_PROGRAM, &id)
	return glcore.ProgramID(id)
}

// === Compute ===

// DispatchCompute launches x*y*z work groups of the current program.
func (d *Device) DispatchCompute(x, y, z uint32) { gl.DispatchCompute(x, y, z) }

// MemoryBarrier orders shader writes before the accesses in barriers.
func (d *Device) MemoryBarrier(barriers glcore.Barrier) { gl.MemoryBarrier(uint32(barriers)) }

// === Draws ===

// DrawElements draws count indices at offset of the bound element buffer.
func (d *Device) DrawElements(mode glcore.Primitive, count int32, typ glcore.IndexType, offset uintptr) {
	gl.DrawElements(uint32(mode), count, uint32(typ), gl.PtrOffset(int(offset)))
}

// DrawElementsClient uploads indices to the scratch element buffer, draws
// from it and rebinds the previous element buffer.
func (d *Device) DrawElementsClient(mode glcore.Primitive, count int32, typ glcore.IndexType, indices []byte) {
	if count <= 0 || len(indices) == 0 {
		return
	}
	prev := d.BoundBuffer(glcore.ElementArrayBuffer)
	if d.scratch == 0 {
		gl.GenBuffers(1, &d.scratch)
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, d.scratch)
	if len(indices) > d.scratchSize {
		d.scratchSize = len(indices)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, d.scratchSize, nil, gl.STREAM_DRAW)
	}
	gl.BufferSubData(gl.ELEMENT_ARRAY_BUFFER, 0, len(indices), gl.Ptr(indices))
	gl.DrawElements(uint32(mode), count, uint32(typ), nil)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(prev))
}

// DrawElementsBaseVertex draws like DrawElements, adding baseVertex to
// each index.
func (d *Device) DrawElementsBaseVertex(mode glcore.Primitive, count int32, typ glcore.IndexType, offset uintptr, baseVertex int32) {
	gl.DrawElementsBaseVertex(uint32(mode), count, uint32(typ), gl.PtrOffset(int(offset)), baseVertex)
}

// DrawElementsIndirect draws one record at offset of the bound indirect
// buffer.
func (d *Device) DrawElementsIndirect(mode glcore.Primitive, typ glcore.IndexType, offset uintptr) {
	gl.DrawElementsIndirect(uint32(mode), uint32(typ), gl.PtrOffset(int(offset)))
}

// MultiDrawElementsIndirect draws drawCount records starting at offset of
// the bound indirect buffer.
func (d *Device) MultiDrawElementsIndirect(mode glcore.Primitive, typ glcore.IndexType, offset uintptr, drawCount, stride int32) {
	gl.MultiDrawElementsIndirect(uint32(mode), uint32(typ), gl.PtrOffset(int(offset)), drawCount, stride)
}

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
