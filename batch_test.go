package multidraw

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/multidraw/glcore"
)

func TestNewBatch(t *testing.T) {
	b, err := NewBatch(glcore.Lines, []int32{2, 4}, glcore.UnsignedShort, []uintptr{0, 8}, []int32{3, -1})
	if err != nil {
		t.Fatalf("NewBatch() error = %v", err)
	}
	want := []Draw{{Count: 2, Offset: 0, BaseVertex: 3}, {Count: 4, Offset: 8, BaseVertex: -1}}
	if b.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", b.Len(), len(want))
	}
	for i, d := range want {
		if b.Draws[i] != d {
			t.Errorf("Draws[%d] = %+v, want %+v", i, b.Draws[i], d)
		}
	}
	if b.IsClient() {
		t.Error("IsClient() = true for a buffer batch")
	}

	b, err = NewBatch(glcore.Lines, []int32{2}, glcore.UnsignedShort, []uintptr{4}, nil)
	if err != nil || b.Draws[0].BaseVertex != 0 {
		t.Errorf("NewBatch(nil baseVertex) = %+v, %v", b, err)
	}
}

func TestNewBatchMismatchedLengths(t *testing.T) {
	if _, err := NewBatch(glcore.Lines, []int32{1, 2}, glcore.UnsignedByte, []uintptr{0}, nil); !errors.Is(err, ErrMalformedBatch) {
		t.Errorf("counts/offsets mismatch error = %v, want ErrMalformedBatch", err)
	}
	if _, err := NewBatch(glcore.Lines, []int32{1}, glcore.UnsignedByte, []uintptr{0}, []int32{1, 2}); !errors.Is(err, ErrMalformedBatch) {
		t.Errorf("base vertex mismatch error = %v, want ErrMalformedBatch", err)
	}
}

func TestTotalCount(t *testing.T) {
	b := &Batch{Draws: []Draw{{Count: 3}, {Count: -7}, {Count: 0}, {Count: math.MaxInt32}}}
	if got, want := b.TotalCount(), uint64(3+math.MaxInt32); got != want {
		t.Errorf("TotalCount() = %d, want %d", got, want)
	}
}

func TestCheckIndirectRange(t *testing.T) {
	ok := &Batch{Type: glcore.UnsignedInt, Draws: []Draw{{Count: math.MaxInt32}, {Count: math.MaxInt32}}}
	if err := ok.checkIndirectRange(); err != nil {
		t.Errorf("checkIndirectRange() = %v for a total below 2^32", err)
	}

	over := &Batch{Type: glcore.UnsignedInt, Draws: []Draw{{Count: math.MaxInt32}, {Count: math.MaxInt32}, {Count: 2}}}
	if err := over.checkIndirectRange(); !errors.Is(err, ErrCountOverflow) {
		t.Errorf("checkIndirectRange() = %v, want ErrCountOverflow", err)
	}

	if math.MaxUint == math.MaxUint64 {
		off := uint64(math.MaxUint32) + 1
		far := &Batch{Type: glcore.UnsignedByte, Draws: []Draw{{Count: 1, Offset: uintptr(off)}}}
		if err := far.checkIndirectRange(); !errors.Is(err, ErrCountOverflow) {
			t.Errorf("checkIndirectRange() = %v for a first index past 2^32, want ErrCountOverflow", err)
		}
	}
}
