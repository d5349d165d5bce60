package multidraw

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/multidraw/backend/software"
	"github.com/gogpu/multidraw/glcore"
)

func words(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return out
}

func TestPlanFlatten(t *testing.T) {
	c := call{
		Batch: &Batch{
			Mode: glcore.Triangles,
			Type: glcore.UnsignedShort,
			Draws: []Draw{
				{Count: 3, Offset: 4, BaseVertex: 10},
				{Count: -1, Offset: 100, BaseVertex: 20},
				{Count: 2, Offset: 0, BaseVertex: -3},
			},
		},
		withBaseVertex: true,
	}
	p, err := planFlatten(c, 16)
	if err != nil {
		t.Fatalf("planFlatten() error = %v", err)
	}
	if p.total != 5 {
		t.Errorf("total = %d, want 5", p.total)
	}
	check := func(name string, got, want []uint32) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("%s = %v, want %v", name, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s = %v, want %v", name, got, want)
				return
			}
		}
	}
	check("firstIndex", words(p.firstIndex), []uint32{2, 0, 0})
	check("prefixSum", words(p.prefixSum), []uint32{3, 3, 5})
	check("baseVertex", words(p.baseVertex), []uint32{10, 20, uint32(0xFFFFFFFD)})

	c.withBaseVertex = false
	p, err = planFlatten(c, 16)
	if err != nil {
		t.Fatal(err)
	}
	check("baseVertex without base vertex entry", words(p.baseVertex), []uint32{0, 0, 0})
}

func TestPlanFlattenErrors(t *testing.T) {
	batch := func(typ glcore.IndexType, draws ...Draw) call {
		return call{Batch: &Batch{Mode: glcore.Triangles, Type: typ, Draws: draws}}
	}
	tests := []struct {
		name string
		c    call
		size int
		want error
	}{
		{"empty buffer", batch(glcore.UnsignedInt, Draw{Count: 1}), 0, ErrElementBufferSize},
		{"unpadded narrow buffer", batch(glcore.UnsignedByte, Draw{Count: 1}), 6, ErrElementBufferSize},
		{"offset past end", batch(glcore.UnsignedShort, Draw{Count: 1, Offset: 20}), 16, ErrOffsetOutOfRange},
		{"range past end", batch(glcore.UnsignedShort, Draw{Count: 8, Offset: 2}), 16, ErrRangeOutOfBounds},
		{"cumulative overflow", batch(glcore.UnsignedByte,
			Draw{Count: math.MaxInt32}, Draw{Count: math.MaxInt32}, Draw{Count: 2}), math.MaxInt &^ 3, ErrCountOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := planFlatten(tt.c, tt.size); !errors.Is(err, tt.want) {
				t.Errorf("planFlatten() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPlanFlattenSkipsRangeOfEmptyDraws(t *testing.T) {
	c := call{Batch: &Batch{Type: glcore.UnsignedInt, Draws: []Draw{{Count: 0, Offset: 1 << 20}, {Count: -5, Offset: 1 << 20}}}}
	p, err := planFlatten(c, 8)
	if err != nil || p.total != 0 {
		t.Errorf("planFlatten() = %+v, %v, want empty plan", p, err)
	}
}

func TestComputeFallbacks(t *testing.T) {
	values := testValues(200)
	big := &Batch{Mode: glcore.Lines, Type: glcore.UnsignedInt, Draws: []Draw{{Count: 130, Offset: 8, BaseVertex: 3}}}

	limited := software.DefaultCapabilities()
	limited.MaxComputeWorkGroupCountX = 1

	tests := []struct {
		name  string
		caps  glcore.Capabilities
		batch *Batch
	}{
		{"strip topology", software.DefaultCapabilities(), sampleBatch(glcore.TriangleStrip, glcore.UnsignedInt)},
		{"line loop", software.DefaultCapabilities(), sampleBatch(glcore.LineLoop, glcore.UnsignedInt)},
		{"dispatch too large", limited, big},
		{"no compute", glcore.Capabilities{MaxShaderStorageBindings: 8}, big},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, glcore.UnsignedInt, values, software.WithCapabilities(tt.caps))
			e := New(f.dev, WithStrategy(StrategyCompute))
			e.MultiDrawElementsBaseVertex(tt.batch)

			assertStream(t, f.dev.Stream(), reference(f.data, tt.batch, true))
			st := e.Stats()
			if st.Fallbacks != 1 || st.Calls[StrategyDrawElements] != 1 || st.Calls[StrategyCompute] != 0 {
				t.Errorf("Stats() = %+v, want a single DrawElements fallback", st)
			}
			if got := f.dev.Dispatches(); got != 0 {
				t.Errorf("Dispatches() = %d, want 0", got)
			}
			if errs := f.dev.Errors(); len(errs) > 0 {
				t.Errorf("backend errors: %v", errs)
			}
		})
	}
}

func TestComputeOutOfRangeFallsBack(t *testing.T) {
	skipInDebug(t)

	f := newFixture(t, glcore.UnsignedShort, testValues(8))
	e := New(f.dev, WithStrategy(StrategyCompute))
	e.MultiDrawElements(&Batch{
		Mode:  glcore.Points,
		Type:  glcore.UnsignedShort,
		Draws: []Draw{{Count: 2, Offset: 0}, {Count: 4, Offset: 14}},
	})
	skipIfComputeDisabled(t, e)

	if got := e.Stats().Fallbacks; got != 1 {
		t.Errorf("Fallbacks = %d, want 1", got)
	}
	v := testValues(8)
	assertStream(t, f.dev.Stream(), []uint32{v[0], v[1]})
}

func TestComputeSingleDraw(t *testing.T) {
	f := newFixture(t, glcore.UnsignedByte, testValues(60))
	e := New(f.dev, WithStrategy(StrategyCompute))
	batch := sampleBatch(glcore.Triangles, glcore.UnsignedByte)
	e.MultiDrawElementsBaseVertex(batch)
	skipIfComputeDisabled(t, e)

	draws := f.dev.Draws()
	if len(draws) != 1 {
		t.Fatalf("recorded %d draws, want 1", len(draws))
	}
	if draws[0].Entry != "DrawElements" || draws[0].Mode != glcore.Triangles {
		t.Errorf("draw = %s %v, want DrawElements GL_TRIANGLES", draws[0].Entry, draws[0].Mode)
	}
	assertStream(t, draws[0].Vertices, reference(f.data, batch, true))

	// Auxiliary buffers are reused across calls.
	buffers := f.dev.BufferCount()
	e.MultiDrawElementsBaseVertex(batch)
	if got := f.dev.BufferCount(); got != buffers {
		t.Errorf("BufferCount() = %d after second call, want %d", got, buffers)
	}
}

func TestComputeWithWorkers(t *testing.T) {
	f := newFixture(t, glcore.UnsignedShort, testValues(600), software.WithWorkers(4))
	defer f.dev.Close()
	e := New(f.dev, WithStrategy(StrategyCompute))
	batch := &Batch{
		Mode: glcore.Points,
		Type: glcore.UnsignedShort,
		Draws: []Draw{
			{Count: 150, Offset: 0, BaseVertex: 3},
			{Count: 200, Offset: 2 * 200, BaseVertex: -1},
			{Count: 90, Offset: 2 * 500, BaseVertex: 1000},
		},
	}
	e.MultiDrawElementsBaseVertex(batch)
	skipIfComputeDisabled(t, e)

	draws := f.dev.Draws()
	if len(draws) != 1 {
		t.Fatalf("recorded %d draws, want 1", len(draws))
	}
	assertStream(t, draws[0].Vertices, reference(f.data, batch, true))
}

func TestCommandBufferLostMapping(t *testing.T) {
	f := newFixture(t, glcore.UnsignedShort, testValues(60))
	e := New(f.dev, WithStrategy(StrategyPreferIndirect))
	batch := sampleBatch(glcore.Triangles, glcore.UnsignedShort)

	f.dev.InjectFaults(software.Faults{LoseMappings: true})
	e.MultiDrawElementsBaseVertex(batch)

	assertStream(t, f.dev.Stream(), reference(f.data, batch, true))
	st := e.Stats()
	if st.Fallbacks != 1 || st.CommandCapacity != 0 {
		t.Errorf("Stats() = %+v, want one fallback and no command buffer", st)
	}
}

func TestIndirectOverflowFallsBack(t *testing.T) {
	skipInDebug(t)

	f := newFixture(t, glcore.UnsignedByte, testValues(8))
	for _, s := range []Strategy{StrategyPreferIndirect, StrategyPreferMultiDrawIndirect} {
		t.Run(s.String(), func(t *testing.T) {
			e := New(f.dev, WithStrategy(s))
			e.MultiDrawElements(&Batch{
				Mode:  glcore.Points,
				Type:  glcore.UnsignedByte,
				Draws: []Draw{{Count: math.MaxInt32}, {Count: math.MaxInt32}, {Count: 2}},
			})
			if got := e.Stats().Fallbacks; got != 1 {
				t.Errorf("Fallbacks = %d, want 1", got)
			}
			if got := e.Stats().CommandCapacity; got != 0 {
				t.Errorf("CommandCapacity = %d, want 0", got)
			}
			f.dev.Errors()
		})
	}
}
