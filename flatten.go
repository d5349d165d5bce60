package multidraw

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/multidraw/glcore"
	"github.com/gogpu/multidraw/shader"
)

// Auxiliary flattening buffers, in shader binding order after the source.
const (
	auxFirstIndex = iota
	auxBaseVertex
	auxPrefixSum
	auxOutput
	numAux
)

const (
	auxUsage    = gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	outputUsage = gputypes.BufferUsageStorage | gputypes.BufferUsageIndex
)

// flattenTypes are the index types with a flattening program variant.
var flattenTypes = [...]glcore.IndexType{glcore.UnsignedByte, glcore.UnsignedShort, glcore.UnsignedInt}

// flattener owns the compute programs and auxiliary buffers of the Compute
// strategy. Everything is created on first use.
type flattener struct {
	programs [len(flattenTypes)]glcore.ProgramID
	aux      [numAux]glcore.BufferID
	built    bool
	disabled bool
}

// program returns the variant for typ.
func (f *flattener) program(typ glcore.IndexType) glcore.ProgramID {
	for i, t := range flattenTypes {
		if t == typ {
			return f.programs[i]
		}
	}
	return glcore.NoProgram
}

// build compiles the program variants and creates the auxiliary buffers.
// Any failure disables flattening for good.
func (f *flattener) build(be glcore.Backend, version glcore.ShaderVersion) error {
	if f.disabled {
		return ErrComputeDisabled
	}
	if f.built {
		return nil
	}
	Logger().Debug("multidraw: initializing compute flattening", "glsl", version.String())

	for i, typ := range flattenTypes {
		desc, err := shader.FlattenProgram(version, typ)
		if err == nil {
			f.programs[i], err = be.CreateComputeProgram(desc)
		}
		if err != nil {
			f.release(be)
			f.disabled = true
			err = fmt.Errorf("%w: build %v variant: %v", ErrComputeDisabled, typ, err)
			Logger().Error("multidraw: compute program init failed", "err", err)
			programmingError(err)
			return err
		}
	}
	for i := range f.aux {
		f.aux[i] = be.CreateBuffer()
		if f.aux[i] == glcore.NoBuffer {
			f.release(be)
			return fmt.Errorf("%w: flattening buffers", ErrAllocFailed)
		}
	}
	f.built = true
	return nil
}

// release deletes programs and buffers. A disabled flattener stays disabled.
func (f *flattener) release(be glcore.Backend) {
	for i, p := range f.programs {
		if p != glcore.NoProgram {
			be.DeleteProgram(p)
		}
		f.programs[i] = glcore.NoProgram
	}
	for i, b := range f.aux {
		if b != glcore.NoBuffer {
			be.DeleteBuffer(b)
		}
		f.aux[i] = glcore.NoBuffer
	}
	f.built = false
}

// flattenPlan is the validated input of one flattening pass.
type flattenPlan struct {
	firstIndex []byte
	baseVertex []byte
	prefixSum  []byte
	total      uint32
}

// planFlatten validates c against the bound element buffer and computes
// the auxiliary arrays. Negative counts are clamped to zero.
func planFlatten(c call, bufferSize int) (*flattenPlan, error) {
	size := uint64(elementSize(c.Type))
	if bufferSize <= 0 || (size < 4 && bufferSize%4 != 0) {
		return nil, fmt.Errorf("%w: %d bytes for %v", ErrElementBufferSize, bufferSize, c.Type)
	}
	limit := uint64(bufferSize)

	n := c.Len()
	p := &flattenPlan{
		firstIndex: make([]byte, 4*n),
		baseVertex: make([]byte, 4*n),
		prefixSum:  make([]byte, 4*n),
	}
	var running uint64
	for i, d := range c.Draws {
		count := d.Count
		if count < 0 {
			Logger().Error("multidraw: negative count", "entry", c.entry(), "draw", i, "count", count)
			count = 0
		}
		running += uint64(count)
		if running > math.MaxUint32 {
			return nil, fmt.Errorf("%w: cumulative count %d at draw %d", ErrCountOverflow, running, i)
		}
		binary.LittleEndian.PutUint32(p.prefixSum[4*i:], uint32(running))

		if count > 0 {
			offset := uint64(d.Offset)
			if offset%size != 0 {
				Logger().Error("multidraw: misaligned index offset", "entry", c.entry(), "draw", i, "offset", offset)
			}
			if offset > limit {
				return nil, fmt.Errorf("%w: draw %d offset %d, buffer %d bytes", ErrOffsetOutOfRange, i, offset, limit)
			}
			if end := offset + uint64(count)*size; end > limit {
				return nil, fmt.Errorf("%w: draw %d ends at %d, buffer %d bytes", ErrRangeOutOfBounds, i, end, limit)
			}
			first := offset / size
			if first > math.MaxUint32 {
				return nil, fmt.Errorf("%w: draw %d element offset %d", ErrCountOverflow, i, first)
			}
			binary.LittleEndian.PutUint32(p.firstIndex[4*i:], uint32(first))
		}
		binary.LittleEndian.PutUint32(p.baseVertex[4*i:], uint32(c.baseVertex(i)))
	}
	p.total = uint32(running)
	return p, nil
}

// drawFlattened merges all entries into one 32-bit index buffer with the
// flattening kernel and draws it with a single DrawElements.
//
// Every binding touched is restored before returning: the current program,
// the array buffer, the five shader storage binding points, the generic
// shader storage binding and the element buffer.
func (e *Emulator) drawFlattened(c call) {
	if c.Len() == 0 {
		return
	}
	if c.Mode.StripLike() {
		e.fallback(c, StrategyCompute, fmt.Errorf("%w: %v", ErrStripTopology, c.Mode))
		return
	}
	if !c.Type.Valid() {
		e.fallback(c, StrategyCompute, fmt.Errorf("%w: %v", ErrUnsupportedIndexType, c.Type))
		return
	}
	if !e.caps.Compute {
		e.fallback(c, StrategyCompute, fmt.Errorf("%w: compute shaders", ErrCapability))
		return
	}
	if c.IsClient() {
		e.fallback(c, StrategyCompute, ErrNoElementBuffer)
		return
	}
	if err := e.flat.build(e.backend, e.caps.ShaderVersion); err != nil {
		e.fallback(c, StrategyCompute, err)
		return
	}

	be := e.backend
	ibo := be.BoundBuffer(glcore.ElementArrayBuffer)
	if ibo == glcore.NoBuffer {
		e.fallback(c, StrategyCompute, ErrNoElementBuffer)
		return
	}
	plan, err := planFlatten(c, be.BufferSize(glcore.ElementArrayBuffer))
	if err != nil {
		e.fallback(c, StrategyCompute, err)
		return
	}
	if plan.total == 0 {
		return
	}
	if plan.total > math.MaxInt32 {
		e.fallback(c, StrategyCompute, fmt.Errorf("%w: %d indices in one draw", ErrCountOverflow, plan.total))
		return
	}
	groups := (plan.total + shader.WorkgroupSize - 1) / shader.WorkgroupSize
	if limit := e.caps.MaxComputeWorkGroupCountX; limit > 0 && groups > limit {
		e.fallback(c, StrategyCompute, fmt.Errorf("%w: %d groups, limit %d", ErrDispatchTooLarge, groups, limit))
		return
	}

	e.stats.Calls[StrategyCompute]++

	g := newStateGuard(be)
	defer g.restore()
	g.buffer(glcore.ElementArrayBuffer)
	g.buffer(glcore.ShaderStorageBuffer)

	aux := e.flat.aux
	upload := func(id glcore.BufferID, data []byte, size int, usage gputypes.BufferUsage) {
		be.BindBuffer(glcore.ShaderStorageBuffer, id)
		be.BufferData(glcore.ShaderStorageBuffer, size, data, usage)
	}
	upload(aux[auxFirstIndex], plan.firstIndex, len(plan.firstIndex), auxUsage)
	upload(aux[auxBaseVertex], plan.baseVertex, len(plan.baseVertex), auxUsage)
	upload(aux[auxPrefixSum], plan.prefixSum, len(plan.prefixSum), auxUsage)
	upload(aux[auxOutput], nil, 4*int(plan.total), outputUsage)
	be.BindBuffer(glcore.ShaderStorageBuffer, glcore.NoBuffer)

	bindings := [shader.NumBindings]glcore.BufferID{
		shader.BindingSource:     ibo,
		shader.BindingFirstIndex: aux[auxFirstIndex],
		shader.BindingBaseVertex: aux[auxBaseVertex],
		shader.BindingPrefixSum:  aux[auxPrefixSum],
		shader.BindingOutput:     aux[auxOutput],
	}
	for i, id := range bindings {
		g.bufferBase(glcore.ShaderStorageBuffer, uint32(i))
		be.BindBufferBase(glcore.ShaderStorageBuffer, uint32(i), id)
	}

	dispatch := newStateGuard(be)
	dispatch.program()
	dispatch.buffer(glcore.ArrayBuffer)
	be.UseProgram(e.flat.program(c.Type))
	be.DispatchCompute(groups, 1, 1)
	be.MemoryBarrier(glcore.BarrierShaderStore | glcore.BarrierElementArray)
	dispatch.restore()

	be.BindBuffer(glcore.ElementArrayBuffer, aux[auxOutput])
	be.DrawElements(c.Mode, int32(plan.total), glcore.UnsignedInt, 0)
}
