package multidraw

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/multidraw/glcore"
)

// tempUsage is the declared usage of the per-draw temporary element buffer.
const tempUsage = gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst

// drawRebased draws entry i from a temporary element buffer holding its
// indices with the base vertex already added. src is the element buffer
// bound when the call started and is bound again on return.
func (e *Emulator) drawRebased(c call, i int, src glcore.BufferID) error {
	be := e.backend
	d := c.Draws[i]
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %v", ErrUnsupportedIndexType, c.Type)
	}
	length := int(d.Count) * elementSize(c.Type)

	var indices []byte
	if c.IsClient() {
		r, err := clientRange(c, i)
		if err != nil {
			return err
		}
		indices = r
	} else {
		be.BindBuffer(glcore.ElementArrayBuffer, src)
		mapped, err := be.MapBufferRange(glcore.ElementArrayBuffer, int(d.Offset), length, glcore.MapRead)
		if err != nil {
			return fmt.Errorf("%w: element buffer %d [%d, +%d): %v", ErrMapFailed, src, d.Offset, length, err)
		}
		if len(mapped) < length {
			be.UnmapBuffer(glcore.ElementArrayBuffer)
			return fmt.Errorf("%w: element buffer %d [%d, +%d): mapped %d bytes", ErrMapFailed, src, d.Offset, length, len(mapped))
		}
		indices = mapped
	}

	data, typ := rebaseIndices(indices, c.Type, int(d.Count), d.BaseVertex)

	if !c.IsClient() {
		be.UnmapBuffer(glcore.ElementArrayBuffer)
	}

	tmp := be.CreateBuffer()
	if tmp == glcore.NoBuffer {
		return fmt.Errorf("%w: temporary element buffer (%d bytes)", ErrAllocFailed, len(data))
	}
	be.BindBuffer(glcore.ElementArrayBuffer, tmp)
	be.BufferData(glcore.ElementArrayBuffer, len(data), data, tempUsage)
	if typ != c.Type {
		Logger().Debug("multidraw: widened rebased indices", "draw", i, "from", c.Type, "to", typ)
	}
	be.DrawElements(c.Mode, d.Count, typ, 0)
	be.DeleteBuffer(tmp)
	be.BindBuffer(glcore.ElementArrayBuffer, src)
	return nil
}

// rebaseIndices returns count indices of type typ read from src, each with
// baseVertex added using 32-bit wrapping arithmetic. The result keeps the
// source width when every rebased value fits it and is widened to
// UnsignedInt otherwise, so the indices reaching vertex fetch never wrap at
// 8 or 16 bits.
func rebaseIndices(src []byte, typ glcore.IndexType, count int, baseVertex int32) ([]byte, glcore.IndexType) {
	size := elementSize(typ)
	values := make([]uint32, count)
	fits := true
	for j := range values {
		var v uint32
		switch size {
		case 1:
			v = uint32(src[j])
		case 2:
			v = uint32(binary.LittleEndian.Uint16(src[2*j:]))
		default:
			v = binary.LittleEndian.Uint32(src[4*j:])
		}
		values[j] = uint32(int32(v) + baseVertex)
		if values[j] > typ.MaxValue() {
			fits = false
		}
	}

	if !fits {
		typ, size = glcore.UnsignedInt, 4
	}
	out := make([]byte, count*size)
	for j, v := range values {
		switch size {
		case 1:
			out[j] = byte(v)
		case 2:
			binary.LittleEndian.PutUint16(out[2*j:], uint16(v))
		default:
			binary.LittleEndian.PutUint32(out[4*j:], v)
		}
	}
	return out, typ
}
