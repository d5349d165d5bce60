package multidraw

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/multidraw/glcore"
)

// Emulator emulates glMultiDrawElements and glMultiDrawElementsBaseVertex
// on one backend.
//
// Each entry point binds to a strategy the first time it is called and
// keeps it for the Emulator's lifetime. An Emulator owns the command buffer,
// the flattening programs and the flattening buffers it creates; call
// Release to delete them.
//
// An Emulator is driven from the goroutine that owns the backend's graphics
// context. Only the strategy binding is safe for concurrent first use.
type Emulator struct {
	backend glcore.Backend
	caps    glcore.Capabilities
	source  func() Strategy

	baseOnce       sync.Once
	baseFn         strategyFunc
	baseStrategy   Strategy
	vertexOnce     sync.Once
	vertexFn       strategyFunc
	vertexStrategy Strategy

	commands commandBuffer
	flat     flattener
	stats    counters
}

// Option configures an Emulator during creation.
//
// Example:
//
//	e := multidraw.New(backend, multidraw.WithStrategy(multidraw.StrategyCompute))
type Option func(*options)

type options struct {
	source func() Strategy
}

func defaultOptions() options {
	return options{
		source: func() Strategy { return StrategyDrawElements },
	}
}

// WithStrategy sets a fixed strategy.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.source = func() Strategy { return s }
	}
}

// WithStrategySource sets a function consulted once per entry point, on
// its first call. Later changes to what fn returns have no effect on a
// bound entry point.
func WithStrategySource(fn func() Strategy) Option {
	return func(o *options) {
		if fn != nil {
			o.source = fn
		}
	}
}

// New creates an Emulator drawing through b. Capabilities are read once.
func New(b glcore.Backend, opts ...Option) *Emulator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Emulator{
		backend: b,
		caps:    b.Capabilities(),
		source:  o.source,
	}
}

// Backend returns the backend the Emulator draws through.
func (e *Emulator) Backend() glcore.Backend { return e.backend }

// MultiDrawElements draws every entry of b as glMultiDrawElements would.
// Draw.BaseVertex is ignored. Failures are logged and handled by falling
// back to simpler strategies; nothing is returned.
func (e *Emulator) MultiDrawElements(b *Batch) {
	if b == nil {
		e.malformed("MultiDrawElements", fmt.Errorf("%w: nil batch", ErrMalformedBatch))
		return
	}
	e.baseOnce.Do(func() {
		e.baseFn, e.baseStrategy = e.bind("MultiDrawElements")
	})
	e.baseFn(e, call{Batch: b})
	e.checkErrors("MultiDrawElements", e.baseStrategy)
}

// MultiDrawElementsBaseVertex draws every entry of b as
// glMultiDrawElementsBaseVertex would.
func (e *Emulator) MultiDrawElementsBaseVertex(b *Batch) {
	if b == nil {
		e.malformed("MultiDrawElementsBaseVertex", fmt.Errorf("%w: nil batch", ErrMalformedBatch))
		return
	}
	e.vertexOnce.Do(func() {
		e.vertexFn, e.vertexStrategy = e.bind("MultiDrawElementsBaseVertex")
	})
	e.vertexFn(e, call{Batch: b, withBaseVertex: true})
	e.checkErrors("MultiDrawElementsBaseVertex", e.vertexStrategy)
}

// bind resolves the configured strategy for an entry point.
func (e *Emulator) bind(entry string) (strategyFunc, Strategy) {
	want := e.source()
	fn, got := lookupStrategy(want)
	if got != want {
		Logger().Debug("multidraw: unrecognized strategy, using DrawElements", "entry", entry, "configured", int(want))
	}
	Logger().Debug("multidraw: entry point bound", "entry", entry, "strategy", got)
	return fn, got
}

// Binding reports the strategies the entry points are bound to.
// StrategyAuto means the entry point has not been called yet.
type Binding struct {
	MultiDrawElements           Strategy
	MultiDrawElementsBaseVertex Strategy
}

// Bound returns the current entry point bindings.
func (e *Emulator) Bound() Binding {
	return Binding{
		MultiDrawElements:           e.baseStrategy,
		MultiDrawElementsBaseVertex: e.vertexStrategy,
	}
}

// counters are the mutable statistics of an Emulator.
type counters struct {
	Calls        [StrategyCompute + 1]uint64
	Fallbacks    uint64
	SkippedDraws uint64
}

// Stats is a snapshot of Emulator activity.
type Stats struct {
	// Calls counts completed calls per strategy, fallbacks included under
	// StrategyDrawElements.
	Calls map[Strategy]uint64

	// Fallbacks counts calls replayed with DrawElements.
	Fallbacks uint64

	// SkippedDraws counts entries dropped because their indices could not
	// be read or rewritten.
	SkippedDraws uint64

	// CommandCapacity is the command buffer capacity in records, 0 before
	// first use.
	CommandCapacity int

	// ComputeDisabled reports that the flattening program failed to build.
	ComputeDisabled bool
}

// Stats returns a snapshot of the Emulator's counters.
func (e *Emulator) Stats() Stats {
	s := Stats{
		Calls:           make(map[Strategy]uint64, len(Strategies)),
		Fallbacks:       e.stats.Fallbacks,
		SkippedDraws:    e.stats.SkippedDraws,
		CommandCapacity: e.commands.capacity,
		ComputeDisabled: e.flat.disabled,
	}
	for _, st := range Strategies {
		if n := e.stats.Calls[st]; n > 0 {
			s.Calls[st] = n
		}
	}
	return s
}

// Release deletes the command buffer, the flattening programs and the
// flattening buffers. Entry point bindings are kept; resources are created
// again on next use.
func (e *Emulator) Release() {
	e.commands.release(e.backend)
	e.flat.release(e.backend)
}

// malformed logs rejected input.
func (e *Emulator) malformed(entry string, err error) {
	Logger().Error("multidraw: rejected call", "entry", entry, "err", err)
	programmingError(err)
}

// checkErrors drains the backend error queue in debug builds and panics
// when the call left errors behind.
func (e *Emulator) checkErrors(entry string, s Strategy) {
	if !debugChecks {
		return
	}
	var codes []glcore.ErrorCode
	for code := e.backend.GetError(); code != glcore.NoError; code = e.backend.GetError() {
		codes = append(codes, code)
		if len(codes) == maxDrainedErrors {
			break
		}
	}
	if len(codes) > 0 {
		panic(fmt.Sprintf("multidraw: %s (%s) raised backend errors %v", entry, s, codes))
	}
}

// maxDrainedErrors bounds error queue draining for backends that report
// the same error forever.
const maxDrainedErrors = 16

// defaultEmulator is the handle used by the package-level entry points.
var defaultEmulator atomic.Pointer[Emulator]

// Init installs e as the default Emulator used by the package-level
// MultiDrawElements and MultiDrawElementsBaseVertex. Call it once, before
// the first draw. Passing nil uninstalls the default.
func Init(e *Emulator) {
	defaultEmulator.Store(e)
	if e != nil {
		propagateLogger(e.backend, Logger())
	}
}

// Default returns the default Emulator, or nil before Init.
func Default() *Emulator {
	return defaultEmulator.Load()
}

// MultiDrawElements is the GL-shaped form of [Emulator.MultiDrawElements]
// on the default Emulator. offsets are byte offsets into the bound element
// buffer. Malformed input is logged and dropped.
func MultiDrawElements(mode glcore.Primitive, counts []int32, typ glcore.IndexType, offsets []uintptr) {
	e := Default()
	if e == nil {
		Logger().Error("multidraw: MultiDrawElements called before Init")
		return
	}
	b, err := NewBatch(mode, counts, typ, offsets, nil)
	if err != nil {
		e.malformed("MultiDrawElements", err)
		return
	}
	e.MultiDrawElements(b)
}

// MultiDrawElementsBaseVertex is the GL-shaped form of
// [Emulator.MultiDrawElementsBaseVertex] on the default Emulator.
// A nil baseVertex draws with zero base vertices.
func MultiDrawElementsBaseVertex(mode glcore.Primitive, counts []int32, typ glcore.IndexType, offsets []uintptr, baseVertex []int32) {
	e := Default()
	if e == nil {
		Logger().Error("multidraw: MultiDrawElementsBaseVertex called before Init")
		return
	}
	b, err := NewBatch(mode, counts, typ, offsets, baseVertex)
	if err != nil {
		e.malformed("MultiDrawElementsBaseVertex", err)
		return
	}
	e.MultiDrawElementsBaseVertex(b)
}
