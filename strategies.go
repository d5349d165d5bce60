package multidraw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/multidraw/glcore"
)

// call is one invocation of an entry point.
type call struct {
	*Batch

	// withBaseVertex is set for MultiDrawElementsBaseVertex. The base entry
	// point ignores Draw.BaseVertex.
	withBaseVertex bool
}

// baseVertex returns the base vertex of entry i as seen by this call.
func (c call) baseVertex(i int) int32 {
	if !c.withBaseVertex {
		return 0
	}
	return c.Draws[i].BaseVertex
}

func (c call) entry() string {
	if c.withBaseVertex {
		return "MultiDrawElementsBaseVertex"
	}
	return "MultiDrawElements"
}

// strategyFunc executes a whole call. Every strategy has this signature so
// entry points can bind to any of them.
type strategyFunc func(e *Emulator, c call)

// strategyTable maps each concrete strategy to its implementation.
var strategyTable = map[Strategy]strategyFunc{
	StrategyPreferIndirect:          (*Emulator).drawIndirect,
	StrategyPreferBaseVertex:        (*Emulator).drawBaseVertex,
	StrategyPreferMultiDrawIndirect: (*Emulator).drawMultiIndirect,
	StrategyDrawElements:            (*Emulator).drawElements,
	StrategyCompute:                 (*Emulator).drawFlattened,
}

// lookupStrategy returns the implementation of s. Unrecognized values,
// StrategyAuto included, resolve to StrategyDrawElements.
func lookupStrategy(s Strategy) (strategyFunc, Strategy) {
	if fn, ok := strategyTable[s]; ok {
		return fn, s
	}
	return strategyTable[StrategyDrawElements], StrategyDrawElements
}

// fallback logs why strategy from could not serve the call and replays it
// with DrawElements.
func (e *Emulator) fallback(c call, from Strategy, err error) {
	e.stats.Fallbacks++
	level := slog.LevelError
	switch {
	case errors.Is(err, ErrStripTopology):
		level = slog.LevelDebug
	case errors.Is(err, ErrCapability), errors.Is(err, ErrNoElementBuffer), errors.Is(err, ErrComputeDisabled):
		level = slog.LevelWarn
	}
	Logger().Log(context.Background(), level, "multidraw: falling back to DrawElements",
		"entry", c.entry(), "strategy", from, "draws", c.Len(), "err", err)
	e.drawElements(c)
}

// drawElements issues one indexed draw per non-empty entry, in order.
//
// Entries with a non-zero base vertex use the native base-vertex draw when
// the device has one and the indices live in a buffer. Otherwise the entry
// is rewritten into a temporary element buffer with the base vertex folded
// into every index.
func (e *Emulator) drawElements(c call) {
	e.stats.Calls[StrategyDrawElements]++
	be := e.backend

	var (
		g          *stateGuard
		prevBuffer glcore.BufferID
	)
	defer func() {
		if g != nil {
			g.restore()
		}
	}()

	for i, d := range c.Draws {
		if d.Count <= 0 {
			continue
		}
		bv := c.baseVertex(i)
		switch {
		case bv == 0:
			e.drawDirect(c, i)
		case e.caps.BaseVertex && !c.IsClient():
			be.DrawElementsBaseVertex(c.Mode, d.Count, c.Type, d.Offset, bv)
		default:
			if g == nil {
				g = newStateGuard(be)
				prevBuffer = g.buffer(glcore.ElementArrayBuffer)
			}
			if err := e.drawRebased(c, i, prevBuffer); err != nil {
				e.stats.SkippedDraws++
				Logger().Error("multidraw: skipping draw", "entry", c.entry(), "draw", i, "err", err)
			}
		}
	}
}

// drawDirect issues entry i without base vertex.
func (e *Emulator) drawDirect(c call, i int) {
	d := c.Draws[i]
	if !c.IsClient() {
		e.backend.DrawElements(c.Mode, d.Count, c.Type, d.Offset)
		return
	}
	src, err := clientRange(c, i)
	if err != nil {
		e.stats.SkippedDraws++
		Logger().Error("multidraw: skipping draw", "entry", c.entry(), "draw", i, "err", err)
		return
	}
	e.backend.DrawElementsClient(c.Mode, d.Count, c.Type, src)
}

// clientRange returns the client memory of entry i.
func clientRange(c call, i int) ([]byte, error) {
	d := c.Draws[i]
	start := uint64(d.Offset)
	end := start + uint64(d.Count)*uint64(elementSize(c.Type))
	if start > uint64(len(c.Client)) {
		return nil, fmt.Errorf("%w: offset %d, client size %d", ErrOffsetOutOfRange, start, len(c.Client))
	}
	if end > uint64(len(c.Client)) {
		return nil, fmt.Errorf("%w: end %d, client size %d", ErrRangeOutOfBounds, end, len(c.Client))
	}
	return c.Client[start:end], nil
}

// drawBaseVertex issues one native base-vertex draw per non-empty entry.
// The base entry point has no base vertices and issues plain draws.
func (e *Emulator) drawBaseVertex(c call) {
	if !c.withBaseVertex {
		e.stats.Calls[StrategyPreferBaseVertex]++
		for i, d := range c.Draws {
			if d.Count > 0 {
				e.drawDirect(c, i)
			}
		}
		return
	}
	if !e.caps.BaseVertex {
		e.fallback(c, StrategyPreferBaseVertex, fmt.Errorf("%w: base vertex draws", ErrCapability))
		return
	}
	if c.IsClient() {
		e.fallback(c, StrategyPreferBaseVertex, ErrNoElementBuffer)
		return
	}

	e.stats.Calls[StrategyPreferBaseVertex]++
	for _, d := range c.Draws {
		if d.Count > 0 {
			e.backend.DrawElementsBaseVertex(c.Mode, d.Count, c.Type, d.Offset, d.BaseVertex)
		}
	}
}

// checkIndirect verifies that c can be drawn from indirect records.
func (e *Emulator) checkIndirect(c call, capable bool) error {
	if !capable {
		return fmt.Errorf("%w: indirect draws", ErrCapability)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %v", ErrUnsupportedIndexType, c.Type)
	}
	if c.IsClient() {
		return ErrNoElementBuffer
	}
	return c.checkIndirectRange()
}

// drawIndirect builds the command buffer and issues one indirect draw per
// record.
func (e *Emulator) drawIndirect(c call) {
	if err := e.checkIndirect(c, e.caps.Indirect); err != nil {
		e.fallback(c, StrategyPreferIndirect, err)
		return
	}
	if c.Len() == 0 {
		return
	}

	g := newStateGuard(e.backend)
	g.buffer(glcore.DrawIndirectBuffer)
	if err := e.commands.prepare(e.backend, c); err != nil {
		g.restore()
		e.fallback(c, StrategyPreferIndirect, err)
		return
	}
	defer g.restore()

	e.stats.Calls[StrategyPreferIndirect]++
	for i := range c.Draws {
		e.backend.DrawElementsIndirect(c.Mode, c.Type, uintptr(i*RecordSize))
	}
}

// drawMultiIndirect builds the command buffer and issues a single
// multi-draw-indirect call over all records.
func (e *Emulator) drawMultiIndirect(c call) {
	if err := e.checkIndirect(c, e.caps.MultiDrawIndirect); err != nil {
		e.fallback(c, StrategyPreferMultiDrawIndirect, err)
		return
	}
	if c.Len() == 0 {
		return
	}

	g := newStateGuard(e.backend)
	g.buffer(glcore.DrawIndirectBuffer)
	if err := e.commands.prepare(e.backend, c); err != nil {
		g.restore()
		e.fallback(c, StrategyPreferMultiDrawIndirect, err)
		return
	}
	defer g.restore()

	e.stats.Calls[StrategyPreferMultiDrawIndirect]++
	e.backend.MultiDrawElementsIndirect(c.Mode, c.Type, 0, int32(c.Len()), 0)
}
