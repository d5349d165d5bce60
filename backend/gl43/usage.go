//go:build !nogl

package gl43

import (
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/gogpu/gputypes"
)

// usageHint picks the glBufferData usage hint for a declared usage.
//
// Buffers read back by the CPU are *_READ, buffers written by shaders
// and consumed by the GPU are *_COPY, everything else is *_DRAW.
// Buffers rewritten by the CPU on every use are STREAM; buffers mapped for
// writing are DYNAMIC.
func usageHint(u gputypes.BufferUsage) uint32 {
	switch {
	case u.Contains(gputypes.BufferUsageMapRead):
		return gl.DYNAMIC_READ
	case u.Contains(gputypes.BufferUsageStorage) && u.Contains(gputypes.BufferUsageIndex):
		return gl.DYNAMIC_COPY
	case u.Contains(gputypes.BufferUsageMapWrite):
		return gl.DYNAMIC_DRAW
	case u.Contains(gputypes.BufferUsageCopyDst):
		return gl.STREAM_DRAW
	default:
		return gl.STATIC_DRAW
	}
}
