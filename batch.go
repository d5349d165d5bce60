package multidraw

import (
	"fmt"
	"math"

	"github.com/gogpu/multidraw/glcore"
)

// Draw is one entry of a batch.
type Draw struct {
	// Count is the number of indices. Entries with Count <= 0 are skipped.
	Count int32

	// Offset is the byte offset of the first index, into the bound element
	// buffer or into Batch.Client.
	Offset uintptr

	// BaseVertex is added to every index of the entry before vertex fetch.
	BaseVertex int32
}

// Batch is a set of independent indexed draws sharing a topology and an
// index type. The emulation only reads it.
type Batch struct {
	Mode  glcore.Primitive
	Type  glcore.IndexType
	Draws []Draw

	// Client holds the index data when no element buffer is bound. Offsets
	// then address this slice. Nil means offsets address the element buffer
	// bound when the batch is drawn.
	Client []byte
}

// NewBatch builds a batch from GL-shaped parallel arrays. baseVertex may be
// nil; counts and offsets must have equal length.
func NewBatch(mode glcore.Primitive, counts []int32, typ glcore.IndexType, offsets []uintptr, baseVertex []int32) (*Batch, error) {
	if len(counts) != len(offsets) {
		return nil, fmt.Errorf("%w: %d counts, %d offsets", ErrMalformedBatch, len(counts), len(offsets))
	}
	if baseVertex != nil && len(baseVertex) != len(counts) {
		return nil, fmt.Errorf("%w: %d counts, %d base vertices", ErrMalformedBatch, len(counts), len(baseVertex))
	}
	b := &Batch{
		Mode:  mode,
		Type:  typ,
		Draws: make([]Draw, len(counts)),
	}
	for i := range counts {
		b.Draws[i] = Draw{Count: counts[i], Offset: offsets[i]}
		if baseVertex != nil {
			b.Draws[i].BaseVertex = baseVertex[i]
		}
	}
	return b, nil
}

// Len returns the number of entries (primcount).
func (b *Batch) Len() int { return len(b.Draws) }

// IsClient reports whether indices are read from client memory.
func (b *Batch) IsClient() bool { return b.Client != nil }

// TotalCount returns the sum of all positive counts. Negative counts
// contribute zero.
func (b *Batch) TotalCount() uint64 {
	var total uint64
	for _, d := range b.Draws {
		if d.Count > 0 {
			total += uint64(d.Count)
		}
	}
	return total
}

// checkIndirectRange verifies the batch can be expressed as 32-bit indirect
// records: the total count and every first index fit in uint32.
func (b *Batch) checkIndirectRange() error {
	if total := b.TotalCount(); total > math.MaxUint32 {
		return fmt.Errorf("%w: total %d", ErrCountOverflow, total)
	}
	size := uint64(elementSize(b.Type))
	for i, d := range b.Draws {
		if uint64(d.Offset)/size > math.MaxUint32 {
			return fmt.Errorf("%w: first index of draw %d", ErrCountOverflow, i)
		}
	}
	return nil
}

// elementSize returns the index width in bytes, 4 for unrecognized types.
func elementSize(t glcore.IndexType) int {
	return t.Size()
}
