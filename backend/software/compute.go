package software

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/multidraw/glcore"
)

// DispatchCompute runs the current program's kernel once per invocation
// of x*y*z work groups. Only the X dimension is meaningful to kernels.
// With WithWorkers, work groups run concurrently.
func (d *Device) DispatchCompute(x, y, z uint32) {
	const op = "DispatchCompute"
	if !d.caps.Compute {
		d.raise(glcore.InvalidOperation, op, "reason", "unsupported")
		return
	}
	prog := d.programs[d.current]
	if prog == nil {
		d.raise(glcore.InvalidOperation, op, "reason", "no program")
		return
	}
	if x > d.caps.MaxComputeWorkGroupCountX {
		d.raise(glcore.InvalidValue, op, "x", x, "limit", d.caps.MaxComputeWorkGroupCountX)
		return
	}

	bindings := make([][]byte, d.caps.MaxShaderStorageBindings)
	for i := range bindings {
		b := d.buffers[d.bases[bindingPoint{glcore.ShaderStorageBuffer, uint32(i)}]]
		if b == nil {
			continue
		}
		if b.mapped || !d.usageAllows(b, gputypes.BufferUsageStorage) {
			d.raise(glcore.InvalidOperation, op, "binding", i, "usage", uint64(b.usage), "mapped", b.mapped)
			return
		}
		bindings[i] = b.data
	}

	d.dispatches++
	local := prog.WorkgroupSize
	if local == 0 {
		local = 1
	}
	row := uint64(x) * uint64(local)
	groups := uint64(x) * uint64(y) * uint64(z)
	if d.pool == nil || groups < 2 {
		for gid := uint64(0); gid < groups*uint64(local); gid++ {
			prog.Kernel(uint32(gid%row), bindings)
		}
		return
	}
	d.pool.Range(int(groups), func(g int) {
		first := uint64(g) * uint64(local)
		for gid := first; gid < first+uint64(local); gid++ {
			prog.Kernel(uint32(gid%row), bindings)
		}
	})
}

// MemoryBarrier is a no-op: kernels run to completion inside
// DispatchCompute.
func (d *Device) MemoryBarrier(glcore.Barrier) {}
