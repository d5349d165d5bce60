package main

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/multidraw"
	"github.com/gogpu/multidraw/backend"
	"github.com/gogpu/multidraw/backend/software"
	"github.com/gogpu/multidraw/glcore"
)

// elementUsage lets every strategy read the element buffer: as indices,
// as shader storage, and through a read mapping.
const elementUsage = gputypes.BufferUsageIndex | gputypes.BufferUsageStorage | gputypes.BufferUsageMapRead

// maxIndex bounds generated index values so rebased values stay small.
const maxIndex = 1024

// Report summarizes a verification run.
type Report struct {
	Batches    int
	Mismatches int
	Errors     int
	Fallbacks  uint64
}

// OK reports whether every strategy agreed and no GL error was raised.
func (r Report) OK() bool { return r.Mismatches == 0 && r.Errors == 0 }

type verifier struct {
	dev   backend.Device
	log   *slog.Logger
	typ   glcore.IndexType
	mode  glcore.Primitive
	draws int
	seed  uint64
}

func (v *verifier) run(batches int) Report {
	rng := rand.New(rand.NewPCG(v.seed, v.seed^0x9E3779B97F4A7C15))
	var r Report
	for i := range batches {
		data, b := randomBatch(rng, v.typ, v.mode, v.draws)
		v.check(i, data, b, &r)
		r.Batches++
	}
	return r
}

// check draws b with every strategy and compares against DrawElements.
func (v *verifier) check(n int, data []byte, b *multidraw.Batch, r *Report) {
	ibo := v.dev.CreateBuffer()
	v.dev.BindBuffer(glcore.ElementArrayBuffer, ibo)
	v.dev.BufferData(glcore.ElementArrayBuffer, len(data), data, elementUsage)
	defer v.dev.DeleteBuffer(ibo)

	sw, capture := v.dev.(*software.Device)
	streams := make(map[multidraw.Strategy][]uint32, len(multidraw.Strategies))
	for _, s := range multidraw.Strategies {
		if capture {
			sw.ResetDraws()
		}
		e := multidraw.New(v.dev, multidraw.WithStrategy(s))
		v.dev.BindBuffer(glcore.ElementArrayBuffer, ibo)
		e.MultiDrawElementsBaseVertex(b)

		for code := v.dev.GetError(); code != glcore.NoError; code = v.dev.GetError() {
			r.Errors++
			v.log.Error("GL error", "batch", n, "strategy", s, "code", code)
		}
		st := e.Stats()
		r.Fallbacks += st.Fallbacks
		if st.Fallbacks > 0 {
			v.log.Debug("strategy fell back", "batch", n, "strategy", s)
		}
		if capture {
			streams[s] = sw.Stream()
		}
		e.Release()
	}
	if !capture {
		return
	}

	want := streams[multidraw.StrategyDrawElements]
	for _, s := range multidraw.Strategies {
		if got := streams[s]; !slices.Equal(got, want) {
			r.Mismatches++
			v.log.Error("stream mismatch", "batch", n, "strategy", s,
				"len", len(got), "want", len(want), "first", firstDiff(got, want))
		}
	}
}

func firstDiff(a, b []uint32) int {
	for i := range min(len(a), len(b)) {
		if a[i] != b[i] {
			return i
		}
	}
	return min(len(a), len(b))
}

// randomBatch returns an element buffer and a batch of n entries over it.
// Some entries are empty or have negative counts; base vertices are
// non-negative so every fetched vertex index is valid on real drivers.
func randomBatch(rng *rand.Rand, typ glcore.IndexType, mode glcore.Primitive, n int) ([]byte, *multidraw.Batch) {
	size := typ.Size()
	elements := 16 + rng.IntN(16*n+1)
	limit := min(uint32(maxIndex), typ.MaxValue())

	data := make([]byte, (elements*size+3)&^3)
	for i := range elements {
		val := rng.Uint32N(limit + 1)
		switch size {
		case 1:
			data[i] = byte(val)
		case 2:
			binary.LittleEndian.PutUint16(data[2*i:], uint16(val))
		default:
			binary.LittleEndian.PutUint32(data[4*i:], val)
		}
	}

	b := &multidraw.Batch{Mode: mode, Type: typ, Draws: make([]multidraw.Draw, n)}
	for i := range b.Draws {
		first := rng.IntN(elements)
		count := int32(rng.IntN(elements - first + 1))
		switch rng.IntN(10) {
		case 0:
			count = 0
		case 1:
			count = -count
		}
		b.Draws[i] = multidraw.Draw{
			Count:      count,
			Offset:     uintptr(first * size),
			BaseVertex: int32(rng.IntN(300)),
		}
	}
	return data, b
}

func parseIndexType(s string) (glcore.IndexType, error) {
	switch strings.ToLower(s) {
	case "u8", "ubyte":
		return glcore.UnsignedByte, nil
	case "u16", "ushort":
		return glcore.UnsignedShort, nil
	case "u32", "uint":
		return glcore.UnsignedInt, nil
	}
	return 0, fmt.Errorf("unknown index type %q", s)
}

func parseMode(s string) (glcore.Primitive, error) {
	modes := map[string]glcore.Primitive{
		"points":         glcore.Points,
		"lines":          glcore.Lines,
		"line_loop":      glcore.LineLoop,
		"line_strip":     glcore.LineStrip,
		"triangles":      glcore.Triangles,
		"triangle_strip": glcore.TriangleStrip,
		"triangle_fan":   glcore.TriangleFan,
	}
	if m, ok := modes[strings.ToLower(s)]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("unknown primitive %q", s)
}
