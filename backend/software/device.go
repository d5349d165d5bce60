// Package software is a CPU emulation of the GL subset in glcore.Backend.
//
// Buffers live in Go memory. Draws do not rasterize: each one is recorded
// as the sequence of vertex indices it would fetch, after base vertex, so
// callers can compare what different draw paths submit. Compute programs
// run their [glcore.Kernel] once per invocation. GL errors are queued and
// returned by GetError.
//
// Faults can be injected to exercise failure paths: program build errors,
// mapping failures and buffer allocation failures.
package software

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/multidraw/backend"
	"github.com/gogpu/multidraw/glcore"
	"github.com/gogpu/multidraw/internal/parallel"
)

func init() {
	backend.Register(backend.BackendSoftware, func() backend.Device {
		return New()
	})
}

// DefaultCapabilities are the capabilities of a Device created without
// WithCapabilities: everything supported, GLSL ES 3.10.
func DefaultCapabilities() glcore.Capabilities {
	return glcore.Capabilities{
		BaseVertex:                true,
		Indirect:                  true,
		MultiDrawIndirect:         true,
		Compute:                   true,
		MaxComputeWorkGroupCountX: 65535,
		MaxShaderStorageBindings:  8,
		ShaderVersion:             glcore.ShaderVersion{Major: 3, Minor: 10, ES: true},
	}
}

// Option configures a Device.
type Option func(*Device)

// WithCapabilities sets the capabilities the device reports.
func WithCapabilities(c glcore.Capabilities) Option {
	return func(d *Device) {
		d.caps = c
	}
}

// WithStrictUsage makes the device check declared buffer usage: element
// reads need Index, indirect reads need Indirect, shader storage access
// needs Storage, and mappings need MapRead or MapWrite. Violations raise
// GL_INVALID_OPERATION.
func WithStrictUsage() Option {
	return func(d *Device) {
		d.strict = true
	}
}

// WithWorkers runs compute work groups on n goroutines (GOMAXPROCS when n
// is 0 or less). Kernels must then write only memory owned by their
// invocation, as GPU kernels do. Close stops the workers.
func WithWorkers(n int) Option {
	return func(d *Device) {
		d.pool = parallel.NewWorkerPool(n)
	}
}

type bindingPoint struct {
	target glcore.BufferTarget
	index  uint32
}

// Device is a software glcore.Backend. It is not safe for concurrent use.
type Device struct {
	caps   glcore.Capabilities
	strict bool
	logger atomic.Pointer[slog.Logger]
	pool   *parallel.WorkerPool

	buffers    map[glcore.BufferID]*buffer
	nextBuffer glcore.BufferID
	bound      map[glcore.BufferTarget]glcore.BufferID
	bases      map[bindingPoint]glcore.BufferID

	programs    map[glcore.ProgramID]*glcore.ComputeProgramDesc
	nextProgram glcore.ProgramID
	current     glcore.ProgramID

	errors      []glcore.ErrorCode
	draws       []DrawCall
	submissions int
	dispatches  int
	faults      Faults
}

var _ backend.Device = (*Device)(nil)

// New creates a device with DefaultCapabilities.
func New(opts ...Option) *Device {
	d := &Device{
		caps:     DefaultCapabilities(),
		buffers:  make(map[glcore.BufferID]*buffer),
		bound:    make(map[glcore.BufferTarget]glcore.BufferID),
		bases:    make(map[bindingPoint]glcore.BufferID),
		programs: make(map[glcore.ProgramID]*glcore.ComputeProgramDesc),
	}
	d.logger.Store(slog.New(discardHandler{}))
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns "software".
func (d *Device) Name() string { return backend.BackendSoftware }

// Init is a no-op; the device needs no graphics context.
func (d *Device) Init() error { return nil }

// Close deletes every object and stops compute workers.
func (d *Device) Close() {
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	d.buffers = make(map[glcore.BufferID]*buffer)
	d.bound = make(map[glcore.BufferTarget]glcore.BufferID)
	d.bases = make(map[bindingPoint]glcore.BufferID)
	d.programs = make(map[glcore.ProgramID]*glcore.ComputeProgramDesc)
	d.current = glcore.NoProgram
}

// SetLogger sets the logger used for GL error diagnostics.
// Pass nil to disable logging.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discardHandler{})
	}
	d.logger.Store(l)
}

func (d *Device) log() *slog.Logger { return d.logger.Load() }

// Capabilities returns the configured capabilities.
func (d *Device) Capabilities() glcore.Capabilities { return d.caps }

// GetError pops the oldest queued error.
func (d *Device) GetError() glcore.ErrorCode {
	if len(d.errors) == 0 {
		return glcore.NoError
	}
	code := d.errors[0]
	d.errors = d.errors[1:]
	return code
}

// Errors returns and clears every queued error.
func (d *Device) Errors() []glcore.ErrorCode {
	errs := d.errors
	d.errors = nil
	return errs
}

// raise queues a GL error.
func (d *Device) raise(code glcore.ErrorCode, op string, args ...any) {
	d.errors = append(d.errors, code)
	d.log().Debug("software: "+op, append([]any{"error", code}, args...)...)
}

// === Programs ===

// CreateComputeProgram "links" desc. The CPU kernel is what runs; a
// missing kernel or source fails like a compile error.
func (d *Device) CreateComputeProgram(desc *glcore.ComputeProgramDesc) (glcore.ProgramID, error) {
	if d.faults.CompileErrors {
		return glcore.NoProgram, &CompileError{Label: desc.Label, Log: "0:1(1): error: injected compile failure"}
	}
	if desc.Source == "" || desc.Kernel == nil {
		return glcore.NoProgram, &CompileError{Label: desc.Label, Log: "no source or kernel"}
	}
	d.nextProgram++
	cp := *desc
	d.programs[d.nextProgram] = &cp
	return d.nextProgram, nil
}

// DeleteProgram deletes a program. Deleting the current program leaves it
// current, as GL does, until another is used.
func (d *Device) DeleteProgram(id glcore.ProgramID) {
	if id == glcore.NoProgram {
		return
	}
	if _, ok := d.programs[id]; !ok {
		d.raise(glcore.InvalidValue, "DeleteProgram", "program", id)
		return
	}
	delete(d.programs, id)
}

// UseProgram makes id current.
func (d *Device) UseProgram(id glcore.ProgramID) {
	if id != glcore.NoProgram {
		if _, ok := d.programs[id]; !ok {
			d.raise(glcore.InvalidOperation, "UseProgram", "program", id)
			return
		}
	}
	d.current = id
}

// CurrentProgram returns the current program.
func (d *Device) CurrentProgram() glcore.ProgramID { return d.current }

// CompileError is returned by CreateComputeProgram.
type CompileError struct {
	Label string
	Log   string
}

func (e *CompileError) Error() string {
	return "software: compile " + e.Label + ": " + e.Log
}

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

// usageAllows reports whether a buffer may be used as want under strict
// usage checks.
func (d *Device) usageAllows(b *buffer, want gputypes.BufferUsage) bool {
	return !d.strict || b.usage.Contains(want)
}
