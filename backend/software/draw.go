package software

import (
	"encoding/binary"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/multidraw/glcore"
)

// recordSize is the size of a DrawElementsIndirectCommand.
const recordSize = 20

// DrawCall is one recorded draw.
type DrawCall struct {
	// Entry is the backend method that issued the draw.
	Entry string

	Mode glcore.Primitive

	// Vertices are the vertex indices fetched, base vertex applied, in
	// order. Instanced draws repeat them once per instance.
	Vertices []uint32
}

// Draws returns the recorded draws.
func (d *Device) Draws() []DrawCall { return d.draws }

// Stream returns the vertices of every recorded draw, concatenated.
func (d *Device) Stream() []uint32 {
	var out []uint32
	for _, dc := range d.draws {
		out = append(out, dc.Vertices...)
	}
	return out
}

// Submissions returns the number of draw calls issued, counting a
// multi-draw as one.
func (d *Device) Submissions() int { return d.submissions }

// Dispatches returns the number of compute dispatches.
func (d *Device) Dispatches() int { return d.dispatches }

// ResetDraws forgets recorded draws, submissions and dispatches.
func (d *Device) ResetDraws() {
	d.draws = nil
	d.submissions = 0
	d.dispatches = 0
}

// decode reads count indices of typ from src with baseVertex applied.
func decode(src []byte, typ glcore.IndexType, count int, baseVertex int32) []uint32 {
	out := make([]uint32, count)
	for i := range out {
		var v uint32
		switch typ {
		case glcore.UnsignedByte:
			v = uint32(src[i])
		case glcore.UnsignedShort:
			v = uint32(binary.LittleEndian.Uint16(src[2*i:]))
		default:
			v = binary.LittleEndian.Uint32(src[4*i:])
		}
		out[i] = uint32(int32(v) + baseVertex)
	}
	return out
}

// validDraw checks the arguments shared by every draw.
func (d *Device) validDraw(op string, count int32, typ glcore.IndexType) bool {
	if !typ.Valid() {
		d.raise(glcore.InvalidEnum, op, "type", typ)
		return false
	}
	if count < 0 {
		d.raise(glcore.InvalidValue, op, "count", count)
		return false
	}
	return true
}

// elements reads a draw's indices from the bound element buffer.
func (d *Device) elements(op string, count int32, typ glcore.IndexType, offset uint64, baseVertex int32) ([]uint32, bool) {
	b := d.boundBuffer(op, glcore.ElementArrayBuffer)
	if b == nil {
		return nil, false
	}
	if !d.usageAllows(b, gputypes.BufferUsageIndex) {
		d.raise(glcore.InvalidOperation, op, "reason", "element buffer usage", "usage", uint64(b.usage))
		return nil, false
	}
	if b.mapped {
		d.raise(glcore.InvalidOperation, op, "reason", "element buffer mapped")
		return nil, false
	}
	end := offset + uint64(count)*uint64(typ.Size())
	if end > uint64(len(b.data)) {
		d.raise(glcore.InvalidOperation, op, "reason", "index range out of bounds", "end", end, "size", len(b.data))
		return nil, false
	}
	return decode(b.data[offset:end], typ, int(count), baseVertex), true
}

func (d *Device) record(entry string, mode glcore.Primitive, vertices []uint32) {
	if len(vertices) == 0 {
		return
	}
	d.draws = append(d.draws, DrawCall{Entry: entry, Mode: mode, Vertices: vertices})
}

// DrawElements records count indices read at offset of the element buffer.
func (d *Device) DrawElements(mode glcore.Primitive, count int32, typ glcore.IndexType, offset uintptr) {
	d.drawElements("DrawElements", mode, count, typ, offset, 0)
}

// DrawElementsBaseVertex records a base-vertex draw.
func (d *Device) DrawElementsBaseVertex(mode glcore.Primitive, count int32, typ glcore.IndexType, offset uintptr, baseVertex int32) {
	if !d.caps.BaseVertex {
		d.raise(glcore.InvalidOperation, "DrawElementsBaseVertex", "reason", "unsupported")
		return
	}
	d.drawElements("DrawElementsBaseVertex", mode, count, typ, offset, baseVertex)
}

func (d *Device) drawElements(op string, mode glcore.Primitive, count int32, typ glcore.IndexType, offset uintptr, baseVertex int32) {
	if !d.validDraw(op, count, typ) {
		return
	}
	d.submissions++
	v, ok := d.elements(op, count, typ, uint64(offset), baseVertex)
	if ok {
		d.record(op, mode, v)
	}
}

// DrawElementsClient records count indices read from client memory.
func (d *Device) DrawElementsClient(mode glcore.Primitive, count int32, typ glcore.IndexType, indices []byte) {
	const op = "DrawElementsClient"
	if !d.validDraw(op, count, typ) {
		return
	}
	if d.bound[glcore.ElementArrayBuffer] != glcore.NoBuffer {
		d.raise(glcore.InvalidOperation, op, "reason", "element buffer bound")
		return
	}
	if uint64(count)*uint64(typ.Size()) > uint64(len(indices)) {
		d.raise(glcore.InvalidValue, op, "reason", "short client array", "len", len(indices))
		return
	}
	d.submissions++
	d.record(op, mode, decode(indices, typ, int(count), 0))
}

// indirectRecord reads the record at offset of the draw indirect buffer.
func (d *Device) indirectRecord(op string, offset uint64) (count, instances, first uint32, baseVertex int32, ok bool) {
	b := d.boundBuffer(op, glcore.DrawIndirectBuffer)
	if b == nil {
		return 0, 0, 0, 0, false
	}
	if !d.usageAllows(b, gputypes.BufferUsageIndirect) {
		d.raise(glcore.InvalidOperation, op, "reason", "indirect buffer usage", "usage", uint64(b.usage))
		return 0, 0, 0, 0, false
	}
	if b.mapped || offset%4 != 0 || offset+recordSize > uint64(len(b.data)) {
		d.raise(glcore.InvalidOperation, op, "offset", offset, "size", len(b.data))
		return 0, 0, 0, 0, false
	}
	r := b.data[offset:]
	return binary.LittleEndian.Uint32(r[0:]),
		binary.LittleEndian.Uint32(r[4:]),
		binary.LittleEndian.Uint32(r[8:]),
		int32(binary.LittleEndian.Uint32(r[12:])),
		true
}

// drawIndirect records one draw described by the record at offset.
func (d *Device) drawIndirect(op string, mode glcore.Primitive, typ glcore.IndexType, offset uint64) bool {
	count, instances, first, bv, ok := d.indirectRecord(op, offset)
	if !ok {
		return false
	}
	v, ok := d.elements(op, int32(count), typ, uint64(first)*uint64(typ.Size()), bv)
	if !ok {
		return false
	}
	for range instances {
		d.record(op, mode, v)
	}
	return true
}

// DrawElementsIndirect records the draw described by one indirect record.
func (d *Device) DrawElementsIndirect(mode glcore.Primitive, typ glcore.IndexType, offset uintptr) {
	const op = "DrawElementsIndirect"
	if !d.caps.Indirect {
		d.raise(glcore.InvalidOperation, op, "reason", "unsupported")
		return
	}
	if !d.validDraw(op, 0, typ) {
		return
	}
	d.submissions++
	d.drawIndirect(op, mode, typ, uint64(offset))
}

// MultiDrawElementsIndirect records drawCount indirect draws.
func (d *Device) MultiDrawElementsIndirect(mode glcore.Primitive, typ glcore.IndexType, offset uintptr, drawCount, stride int32) {
	const op = "MultiDrawElementsIndirect"
	if !d.caps.MultiDrawIndirect {
		d.raise(glcore.InvalidOperation, op, "reason", "unsupported")
		return
	}
	if !d.validDraw(op, 0, typ) {
		return
	}
	if drawCount < 0 || stride < 0 || (stride != 0 && stride%4 != 0) {
		d.raise(glcore.InvalidValue, op, "drawCount", drawCount, "stride", stride)
		return
	}
	if stride == 0 {
		stride = recordSize
	}
	d.submissions++
	for i := int32(0); i < drawCount; i++ {
		if !d.drawIndirect(op, mode, typ, uint64(offset)+uint64(i)*uint64(stride)) {
			return
		}
	}
}
