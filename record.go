package multidraw

import "encoding/binary"

// RecordSize is the byte size of one encoded IndirectDrawRecord.
const RecordSize = 20

// IndirectDrawRecord is the parameter block of one indirect indexed draw.
//
// Binary layout (little-endian, tightly packed, must match the
// DrawElementsIndirectCommand consumed by the driver):
//
//	offset 0   count          uint32
//	offset 4   instanceCount  uint32
//	offset 8   firstIndex     uint32
//	offset 12  baseVertex     int32
//	offset 16  reserved       uint32 (must be 0)
type IndirectDrawRecord struct {
	Count         uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	Reserved      uint32
}

// PutRecord encodes r into dst[:RecordSize]. It panics if dst is shorter.
func PutRecord(dst []byte, r IndirectDrawRecord) {
	_ = dst[RecordSize-1]
	binary.LittleEndian.PutUint32(dst[0:], r.Count)
	binary.LittleEndian.PutUint32(dst[4:], r.InstanceCount)
	binary.LittleEndian.PutUint32(dst[8:], r.FirstIndex)
	binary.LittleEndian.PutUint32(dst[12:], uint32(r.BaseVertex))
	binary.LittleEndian.PutUint32(dst[16:], r.Reserved)
}

// ReadRecord decodes the record at src[:RecordSize]. It panics if src is
// shorter.
func ReadRecord(src []byte) IndirectDrawRecord {
	_ = src[RecordSize-1]
	return IndirectDrawRecord{
		Count:         binary.LittleEndian.Uint32(src[0:]),
		InstanceCount: binary.LittleEndian.Uint32(src[4:]),
		FirstIndex:    binary.LittleEndian.Uint32(src[8:]),
		BaseVertex:    int32(binary.LittleEndian.Uint32(src[12:])),
		Reserved:      binary.LittleEndian.Uint32(src[16:]),
	}
}

// recordFor returns the record describing d. Negative counts become 0.
func recordFor(d Draw, elemSize int) IndirectDrawRecord {
	count := d.Count
	if count < 0 {
		count = 0
	}
	return IndirectDrawRecord{
		Count:         uint32(count),
		InstanceCount: 1,
		FirstIndex:    uint32(uint64(d.Offset) / uint64(elemSize)),
		BaseVertex:    d.BaseVertex,
	}
}
