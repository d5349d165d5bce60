package multidraw

import (
	"bytes"
	"testing"

	"github.com/gogpu/multidraw/backend/software"
	"github.com/gogpu/multidraw/glcore"
)

func TestRebaseIndices(t *testing.T) {
	tests := []struct {
		name     string
		typ      glcore.IndexType
		values   []uint32
		bv       int32
		wantType glcore.IndexType
		want     []uint32
	}{
		{"u16 fits", glcore.UnsignedShort, []uint32{0xFFFE, 1}, 1, glcore.UnsignedShort, []uint32{0xFFFF, 2}},
		{"u16 widens", glcore.UnsignedShort, []uint32{0xFFFE, 1}, 2, glcore.UnsignedInt, []uint32{0x10000, 3}},
		{"u8 fits", glcore.UnsignedByte, []uint32{1, 2, 3}, 10, glcore.UnsignedByte, []uint32{11, 12, 13}},
		{"u8 negative wraps", glcore.UnsignedByte, []uint32{5, 20}, -10, glcore.UnsignedInt, []uint32{0xFFFFFFFB, 10}},
		{"u32 wraps", glcore.UnsignedInt, []uint32{0xFFFFFFFF, 7}, 2, glcore.UnsignedInt, []uint32{1, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := encodeIndices(tt.typ, tt.values)
			got, typ := rebaseIndices(src, tt.typ, len(tt.values), tt.bv)
			if typ != tt.wantType {
				t.Fatalf("type = %v, want %v", typ, tt.wantType)
			}
			want := encodeIndices(tt.wantType, tt.want)[:len(tt.want)*tt.wantType.Size()]
			if !bytes.Equal(got, want) {
				t.Errorf("rebaseIndices() = % x, want % x", got, want)
			}
		})
	}
}

func TestClientRangeErrors(t *testing.T) {
	dev := software.New()
	e := New(dev, WithStrategy(StrategyDrawElements))
	batch := &Batch{
		Mode:   glcore.Points,
		Type:   glcore.UnsignedShort,
		Client: encodeIndices(glcore.UnsignedShort, []uint32{1, 2, 3, 4}),
		Draws: []Draw{
			{Count: 1, Offset: 16},
			{Count: 4, Offset: 4},
			{Count: 2, Offset: 2, BaseVertex: 9},
			{Count: 2, Offset: 2},
		},
	}
	e.MultiDrawElementsBaseVertex(batch)

	assertStream(t, dev.Stream(), []uint32{11, 12, 2, 3})
	if got := e.Stats().SkippedDraws; got != 2 {
		t.Errorf("SkippedDraws = %d, want 2", got)
	}
	if errs := dev.Errors(); len(errs) > 0 {
		t.Errorf("backend errors: %v", errs)
	}
}
