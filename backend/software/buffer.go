package software

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/multidraw/glcore"
)

type buffer struct {
	data   []byte
	usage  gputypes.BufferUsage
	mapped bool
}

// Faults selects injected failures.
type Faults struct {
	// CompileErrors makes every CreateComputeProgram fail.
	CompileErrors bool

	// MapFailures makes the next N MapBufferRange calls fail.
	MapFailures int

	// AllocFailures makes the next N CreateBuffer calls return NoBuffer.
	AllocFailures int

	// LoseMappings makes UnmapBuffer report lost contents.
	LoseMappings bool

	// ShortMaps makes the next N successful MapBufferRange calls return a
	// slice one byte shorter than requested. The buffer is still mapped.
	ShortMaps int
}

// InjectFaults replaces the injected failures.
func (d *Device) InjectFaults(f Faults) { d.faults = f }

// CreateBuffer returns a new buffer name with empty storage.
func (d *Device) CreateBuffer() glcore.BufferID {
	if d.faults.AllocFailures > 0 {
		d.faults.AllocFailures--
		return glcore.NoBuffer
	}
	d.nextBuffer++
	d.buffers[d.nextBuffer] = &buffer{}
	return d.nextBuffer
}

// DeleteBuffer deletes a buffer and clears every binding of it.
func (d *Device) DeleteBuffer(id glcore.BufferID) {
	if id == glcore.NoBuffer {
		return
	}
	if _, ok := d.buffers[id]; !ok {
		return
	}
	delete(d.buffers, id)
	for t, b := range d.bound {
		if b == id {
			d.bound[t] = glcore.NoBuffer
		}
	}
	for p, b := range d.bases {
		if b == id {
			d.bases[p] = glcore.NoBuffer
		}
	}
}

// BindBuffer binds id to target.
func (d *Device) BindBuffer(target glcore.BufferTarget, id glcore.BufferID) {
	if id != glcore.NoBuffer {
		if _, ok := d.buffers[id]; !ok {
			d.raise(glcore.InvalidOperation, "BindBuffer", "target", target, "buffer", id)
			return
		}
	}
	d.bound[target] = id
}

// BindBufferBase binds id to an indexed binding point and to target.
func (d *Device) BindBufferBase(target glcore.BufferTarget, index uint32, id glcore.BufferID) {
	if target == glcore.ShaderStorageBuffer && index >= d.caps.MaxShaderStorageBindings {
		d.raise(glcore.InvalidValue, "BindBufferBase", "index", index)
		return
	}
	if id != glcore.NoBuffer {
		if _, ok := d.buffers[id]; !ok {
			d.raise(glcore.InvalidOperation, "BindBufferBase", "buffer", id)
			return
		}
	}
	d.bases[bindingPoint{target, index}] = id
	d.bound[target] = id
}

// BoundBuffer returns the buffer bound to target.
func (d *Device) BoundBuffer(target glcore.BufferTarget) glcore.BufferID {
	return d.bound[target]
}

// BoundBufferBase returns the buffer bound to an indexed binding point.
func (d *Device) BoundBufferBase(target glcore.BufferTarget, index uint32) glcore.BufferID {
	return d.bases[bindingPoint{target, index}]
}

// boundBuffer returns the buffer object bound to target, raising
// GL_INVALID_OPERATION when none is.
func (d *Device) boundBuffer(op string, target glcore.BufferTarget) *buffer {
	b := d.buffers[d.bound[target]]
	if b == nil {
		d.raise(glcore.InvalidOperation, op, "target", target, "reason", "no buffer bound")
	}
	return b
}

// BufferData replaces the storage of the buffer bound to target.
func (d *Device) BufferData(target glcore.BufferTarget, size int, data []byte, usage gputypes.BufferUsage) {
	if size < 0 || (data != nil && len(data) != size) || usage.ContainsUnknownBits() {
		d.raise(glcore.InvalidValue, "BufferData", "size", size, "usage", uint64(usage))
		return
	}
	b := d.boundBuffer("BufferData", target)
	if b == nil {
		return
	}
	if b.mapped {
		b.mapped = false
	}
	b.data = make([]byte, size)
	copy(b.data, data)
	b.usage = usage
}

// MapBufferRange returns a slice aliasing [offset, offset+length) of the
// buffer bound to target.
func (d *Device) MapBufferRange(target glcore.BufferTarget, offset, length int, access glcore.MapAccess) ([]byte, error) {
	if d.faults.MapFailures > 0 {
		d.faults.MapFailures--
		return nil, fmt.Errorf("software: map %v: injected failure", target)
	}
	b := d.boundBuffer("MapBufferRange", target)
	if b == nil {
		return nil, fmt.Errorf("software: map %v: no buffer bound", target)
	}
	if offset < 0 || length < 0 || offset+length > len(b.data) || access&(glcore.MapRead|glcore.MapWrite) == 0 {
		d.raise(glcore.InvalidValue, "MapBufferRange", "offset", offset, "length", length, "size", len(b.data))
		return nil, fmt.Errorf("software: map %v [%d, +%d) of %d bytes: invalid range", target, offset, length, len(b.data))
	}
	if b.mapped {
		d.raise(glcore.InvalidOperation, "MapBufferRange", "reason", "already mapped")
		return nil, fmt.Errorf("software: map %v: already mapped", target)
	}
	if (access&glcore.MapRead != 0 && !d.usageAllows(b, gputypes.BufferUsageMapRead)) ||
		(access&glcore.MapWrite != 0 && !d.usageAllows(b, gputypes.BufferUsageMapWrite)) {
		d.raise(glcore.InvalidOperation, "MapBufferRange", "reason", "usage", "usage", uint64(b.usage))
		return nil, fmt.Errorf("software: map %v: usage does not allow access %#x", target, uint32(access))
	}
	b.mapped = true
	m := b.data[offset : offset+length : offset+length]
	if access&glcore.MapInvalidateBuffer != 0 || access&glcore.MapInvalidateRange != 0 {
		clear(m)
	}
	if d.faults.ShortMaps > 0 && length > 0 {
		d.faults.ShortMaps--
		m = m[:length-1]
	}
	return m, nil
}

// UnmapBuffer ends the mapping of the buffer bound to target.
func (d *Device) UnmapBuffer(target glcore.BufferTarget) bool {
	b := d.boundBuffer("UnmapBuffer", target)
	if b == nil {
		return false
	}
	if !b.mapped {
		d.raise(glcore.InvalidOperation, "UnmapBuffer", "reason", "not mapped")
		return false
	}
	b.mapped = false
	return !d.faults.LoseMappings
}

// BufferSize returns the size of the buffer bound to target.
func (d *Device) BufferSize(target glcore.BufferTarget) int {
	b := d.boundBuffer("BufferSize", target)
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Upload creates a buffer holding data with the given usage and leaves
// it bound to target. It is a test and tooling convenience.
func (d *Device) Upload(target glcore.BufferTarget, data []byte, usage gputypes.BufferUsage) glcore.BufferID {
	id := d.CreateBuffer()
	d.BindBuffer(target, id)
	d.BufferData(target, len(data), data, usage)
	return id
}

// Contents returns a copy of a buffer's storage, or nil if id does not
// name a buffer.
func (d *Device) Contents(id glcore.BufferID) []byte {
	b := d.buffers[id]
	if b == nil {
		return nil
	}
	return append([]byte(nil), b.data...)
}

// Mapped reports whether buffer id is mapped.
func (d *Device) Mapped(id glcore.BufferID) bool {
	b := d.buffers[id]
	return b != nil && b.mapped
}

// BufferCount returns the number of live buffers.
func (d *Device) BufferCount() int { return len(d.buffers) }

// ProgramCount returns the number of live programs.
func (d *Device) ProgramCount() int { return len(d.programs) }
