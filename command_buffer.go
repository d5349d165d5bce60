package multidraw

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/multidraw/glcore"
)

// commandUsage is the declared usage of the command buffer: written through
// a mapping, read by indirect draws.
const commandUsage = gputypes.BufferUsageIndirect | gputypes.BufferUsageMapWrite

// commandBuffer is the persistent buffer of indirect draw records.
// Its capacity, in records, starts at 1 and only doubles.
type commandBuffer struct {
	id       glcore.BufferID
	capacity int
}

// prepare writes one record per batch entry to the start of the command
// buffer and leaves it bound to DrawIndirectBuffer. The caller saves and
// restores the previous DrawIndirectBuffer binding.
//
// When mapping fails the buffer is deleted and forgotten; the next call
// creates a new one.
func (c *commandBuffer) prepare(be glcore.Backend, cl call) error {
	if c.id == glcore.NoBuffer {
		c.id = be.CreateBuffer()
		if c.id == glcore.NoBuffer {
			return fmt.Errorf("%w: command buffer", ErrAllocFailed)
		}
		be.BindBuffer(glcore.DrawIndirectBuffer, c.id)
		c.capacity = 1
		be.BufferData(glcore.DrawIndirectBuffer, c.capacity*RecordSize, nil, commandUsage)
	}
	be.BindBuffer(glcore.DrawIndirectBuffer, c.id)

	n := cl.Len()
	if c.capacity < n {
		size := c.capacity
		Logger().Debug("multidraw: command buffer before resize", "records", size)
		for size < n {
			size *= 2
		}
		be.BufferData(glcore.DrawIndirectBuffer, size*RecordSize, nil, commandUsage)
		c.capacity = size
		Logger().Debug("multidraw: command buffer after resize", "records", size)
	}

	mapped, err := be.MapBufferRange(glcore.DrawIndirectBuffer, 0, n*RecordSize,
		glcore.MapWrite|glcore.MapInvalidateBuffer)
	if err != nil || len(mapped) < n*RecordSize {
		c.release(be)
		return fmt.Errorf("%w: command buffer (%d records): %v", ErrMapFailed, n, err)
	}

	size := elementSize(cl.Type)
	for i, d := range cl.Draws {
		d.BaseVertex = cl.baseVertex(i)
		PutRecord(mapped[i*RecordSize:], recordFor(d, size))
	}

	if !be.UnmapBuffer(glcore.DrawIndirectBuffer) {
		c.release(be)
		return fmt.Errorf("%w: command buffer contents lost while mapped", ErrMapFailed)
	}
	return nil
}

// release deletes the buffer. Capacity restarts at 1 on next use.
func (c *commandBuffer) release(be glcore.Backend) {
	if c.id != glcore.NoBuffer {
		be.DeleteBuffer(c.id)
	}
	c.id = glcore.NoBuffer
	c.capacity = 0
}
