// Package multidraw emulates glMultiDrawElements and
// glMultiDrawElementsBaseVertex on graphics runtimes that do not expose them.
//
// # Overview
//
// A multi-draw call is a batch of independent indexed draws that share a
// topology and an index type. Each entry has its own index range, count and
// optional base vertex. The Emulator replays the batch with whatever the
// device does support, and the vertex indices reaching the rasterizer are
// the same whichever strategy is used.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/multidraw"
//		"github.com/gogpu/multidraw/backend/software"
//		"github.com/gogpu/multidraw/glcore"
//	)
//
//	dev := software.New()
//	e := multidraw.New(dev, multidraw.WithStrategy(multidraw.StrategyPreferMultiDrawIndirect))
//	defer e.Release()
//
//	batch, err := multidraw.NewBatch(glcore.Triangles,
//		[]int32{3, 6}, glcore.UnsignedShort, []uintptr{0, 6}, []int32{0, 100})
//	if err != nil {
//		log.Fatal(err)
//	}
//	e.MultiDrawElementsBaseVertex(batch)
//
// # Strategies
//
//   - PreferIndirect: indirect draw records in a command buffer, one
//     DrawElementsIndirect per entry
//   - PreferBaseVertex: one DrawElementsBaseVertex per entry
//   - PreferMultiDrawIndirect: indirect draw records, one
//     MultiDrawElementsIndirect for the batch
//   - DrawElements: one DrawElements per entry; base vertices are applied
//     natively or by rewriting the entry's indices into a temporary buffer
//   - Compute: a compute pass concatenates every entry into one 32-bit
//     index buffer, then a single DrawElements draws it
//
// Each entry point binds to a strategy on its first call and never
// re-reads the configuration. A strategy that cannot serve a call (missing
// capability, client-memory indices, strip topology, out-of-range offsets,
// 32-bit overflow) logs the reason and replays the call with DrawElements.
// Nothing is returned to the caller.
//
// # State
//
// Strategies restore every binding they change: the draw indirect buffer,
// the element buffer, the current program, the array buffer and the shader
// storage bindings.
//
// # Debug Builds
//
// Building with -tags multidrawdebug drains the backend error queue after
// every call and panics on errors, malformed batches and compute program
// build failures.
package multidraw
