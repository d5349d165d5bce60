package multidraw

import (
	"encoding/binary"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/multidraw/backend/software"
	"github.com/gogpu/multidraw/glcore"
)

// indexUsage is the usage of element buffers created by tests. Storage and
// MapRead cover the Compute and rebase paths under strict usage checks.
const indexUsage = gputypes.BufferUsageIndex | gputypes.BufferUsageStorage | gputypes.BufferUsageMapRead

// encodeIndices packs values in the width of typ, padded to a multiple of
// 4 bytes.
func encodeIndices(typ glcore.IndexType, values []uint32) []byte {
	size := typ.Size()
	n := len(values) * size
	n = (n + 3) &^ 3
	out := make([]byte, n)
	for i, v := range values {
		switch size {
		case 1:
			out[i] = byte(v)
		case 2:
			binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
		default:
			binary.LittleEndian.PutUint32(out[4*i:], v)
		}
	}
	return out
}

// fixture is a software device with one element buffer bound.
type fixture struct {
	dev  *software.Device
	ibo  glcore.BufferID
	data []byte
}

func newFixture(t *testing.T, typ glcore.IndexType, values []uint32, opts ...software.Option) *fixture {
	t.Helper()
	dev := software.New(append([]software.Option{software.WithStrictUsage()}, opts...)...)
	data := encodeIndices(typ, values)
	ibo := dev.Upload(glcore.ElementArrayBuffer, data, indexUsage)
	if errs := dev.Errors(); len(errs) > 0 {
		t.Fatalf("fixture setup raised %v", errs)
	}
	return &fixture{dev: dev, ibo: ibo, data: data}
}

// testValues returns n index values that fit every index width.
func testValues(n int) []uint32 {
	v := make([]uint32, n)
	for i := range v {
		v[i] = uint32((i*37 + 11) % 200)
	}
	return v
}

// reference computes the vertex stream of drawing b entry by entry.
func reference(data []byte, b *Batch, withBaseVertex bool) []uint32 {
	size := b.Type.Size()
	var out []uint32
	for _, d := range b.Draws {
		if d.Count <= 0 {
			continue
		}
		var bv int32
		if withBaseVertex {
			bv = d.BaseVertex
		}
		for j := 0; j < int(d.Count); j++ {
			off := int(d.Offset) + j*size
			var v uint32
			switch size {
			case 1:
				v = uint32(data[off])
			case 2:
				v = uint32(binary.LittleEndian.Uint16(data[off:]))
			default:
				v = binary.LittleEndian.Uint32(data[off:])
			}
			out = append(out, uint32(int32(v)+bv))
		}
	}
	return out
}

// sampleBatch returns a batch over the first 60 elements of a buffer of
// typ, with an empty entry, a negative count, and base vertices that push
// 8-bit values past 255.
func sampleBatch(mode glcore.Primitive, typ glcore.IndexType) *Batch {
	s := uintptr(typ.Size())
	return &Batch{
		Mode: mode,
		Type: typ,
		Draws: []Draw{
			{Count: 3, Offset: 0, BaseVertex: 0},
			{Count: 0, Offset: 3 * s, BaseVertex: 7},
			{Count: 6, Offset: 3 * s, BaseVertex: 100},
			{Count: -2, Offset: 9 * s, BaseVertex: 1},
			{Count: 9, Offset: 12 * s, BaseVertex: 300},
			{Count: 3, Offset: 30 * s, BaseVertex: -5},
			{Count: 12, Offset: 45 * s, BaseVertex: 0},
		},
	}
}

// skipInDebug skips tests whose inputs are programming errors, which abort
// in multidrawdebug builds.
func skipInDebug(t *testing.T) {
	t.Helper()
	if debugChecks {
		t.Skip("input panics in multidrawdebug builds")
	}
}

// skipIfComputeDisabled skips when the flattening program could not be
// translated on this toolchain.
func skipIfComputeDisabled(t *testing.T, e *Emulator) {
	t.Helper()
	if e.Stats().ComputeDisabled {
		t.Skip("Skipping: flattening kernel translation not supported by naga")
	}
}

func assertStream(t *testing.T, got, want []uint32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("stream length = %d, want %d\ngot  %v\nwant %v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stream[%d] = %d, want %d\ngot  %v\nwant %v", i, got[i], want[i], got, want)
		}
	}
}
