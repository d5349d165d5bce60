package software

import (
	"encoding/binary"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/multidraw/backend"
	"github.com/gogpu/multidraw/glcore"
)

func u16s(vals ...uint16) []byte {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(b[2*i:], v)
	}
	return b
}

const indexUsage = gputypes.BufferUsageIndex | gputypes.BufferUsageStorage | gputypes.BufferUsageMapRead

func TestRegistered(t *testing.T) {
	assert.True(t, backend.IsRegistered(backend.BackendSoftware))
	d := backend.Get(backend.BackendSoftware)
	require.NotNil(t, d)
	assert.Equal(t, "software", d.Name())
	assert.NoError(t, d.Init())
	d.Close()
}

func TestBufferBindings(t *testing.T) {
	d := New()
	a := d.CreateBuffer()
	b := d.CreateBuffer()
	assert.NotEqual(t, a, b)

	d.BindBuffer(glcore.ElementArrayBuffer, a)
	d.BindBufferBase(glcore.ShaderStorageBuffer, 3, b)
	assert.Equal(t, a, d.BoundBuffer(glcore.ElementArrayBuffer))
	assert.Equal(t, b, d.BoundBufferBase(glcore.ShaderStorageBuffer, 3))
	assert.Equal(t, b, d.BoundBuffer(glcore.ShaderStorageBuffer), "BindBufferBase also sets the generic binding")

	d.DeleteBuffer(b)
	assert.Equal(t, glcore.NoBuffer, d.BoundBufferBase(glcore.ShaderStorageBuffer, 3))
	assert.Equal(t, glcore.NoBuffer, d.BoundBuffer(glcore.ShaderStorageBuffer))
	assert.Empty(t, d.Errors())

	d.BindBuffer(glcore.ArrayBuffer, glcore.BufferID(99))
	assert.Equal(t, []glcore.ErrorCode{glcore.InvalidOperation}, d.Errors())
}

func TestBufferDataAndMap(t *testing.T) {
	d := New()
	d.Upload(glcore.ElementArrayBuffer, []byte{1, 2, 3, 4, 5, 6, 7, 8}, indexUsage)
	assert.Equal(t, 8, d.BufferSize(glcore.ElementArrayBuffer))

	m, err := d.MapBufferRange(glcore.ElementArrayBuffer, 2, 4, glcore.MapRead)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4, 5, 6}, m)

	_, err = d.MapBufferRange(glcore.ElementArrayBuffer, 0, 1, glcore.MapRead)
	assert.Error(t, err, "double map")
	assert.True(t, d.UnmapBuffer(glcore.ElementArrayBuffer))
	assert.False(t, d.UnmapBuffer(glcore.ElementArrayBuffer), "unmap without map")

	_, err = d.MapBufferRange(glcore.ElementArrayBuffer, 6, 4, glcore.MapRead)
	assert.Error(t, err, "range past end")

	errs := d.Errors()
	assert.Equal(t, []glcore.ErrorCode{glcore.InvalidOperation, glcore.InvalidOperation, glcore.InvalidValue}, errs)
}

func TestMapInvalidateClears(t *testing.T) {
	d := New()
	id := d.Upload(glcore.DrawIndirectBuffer, []byte{9, 9, 9, 9}, gputypes.BufferUsageIndirect|gputypes.BufferUsageMapWrite)
	m, err := d.MapBufferRange(glcore.DrawIndirectBuffer, 0, 4, glcore.MapWrite|glcore.MapInvalidateBuffer)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, m)
	m[0] = 7
	require.True(t, d.UnmapBuffer(glcore.DrawIndirectBuffer))
	assert.Equal(t, []byte{7, 0, 0, 0}, d.Contents(id))
}

func TestBufferDataRejectsUnknownUsage(t *testing.T) {
	d := New()
	d.BindBuffer(glcore.ArrayBuffer, d.CreateBuffer())
	d.BufferData(glcore.ArrayBuffer, 4, nil, gputypes.BufferUsage(1<<40))
	assert.Equal(t, glcore.InvalidValue, d.GetError())
	assert.Equal(t, glcore.NoError, d.GetError())
}

func TestDrawElementsRecordsVertices(t *testing.T) {
	d := New()
	d.Upload(glcore.ElementArrayBuffer, u16s(0, 1, 2, 3, 4, 5), indexUsage)

	d.DrawElements(glcore.Triangles, 3, glcore.UnsignedShort, 2)
	d.DrawElementsBaseVertex(glcore.Triangles, 2, glcore.UnsignedShort, 8, 10)

	require.Len(t, d.Draws(), 2)
	assert.Equal(t, []uint32{1, 2, 3}, d.Draws()[0].Vertices)
	assert.Equal(t, "DrawElementsBaseVertex", d.Draws()[1].Entry)
	assert.Equal(t, []uint32{1, 2, 3, 14, 15}, d.Stream())
	assert.Equal(t, 2, d.Submissions())
	assert.Empty(t, d.Errors())
}

func TestDrawElementsOutOfBounds(t *testing.T) {
	d := New()
	d.Upload(glcore.ElementArrayBuffer, u16s(0, 1), indexUsage)
	d.DrawElements(glcore.Points, 3, glcore.UnsignedShort, 0)
	assert.Empty(t, d.Draws())
	assert.Equal(t, glcore.InvalidOperation, d.GetError())

	d.DrawElements(glcore.Points, 1, glcore.IndexType(0x1406), 0)
	assert.Equal(t, glcore.InvalidEnum, d.GetError())
}

func TestDrawElementsClient(t *testing.T) {
	d := New()
	d.DrawElementsClient(glcore.Lines, 2, glcore.UnsignedByte, []byte{7, 8})
	assert.Equal(t, []uint32{7, 8}, d.Stream())

	d.Upload(glcore.ElementArrayBuffer, []byte{0, 0, 0, 0}, indexUsage)
	d.DrawElementsClient(glcore.Lines, 2, glcore.UnsignedByte, []byte{7, 8})
	assert.Equal(t, glcore.InvalidOperation, d.GetError())
}

func TestIndirectDraws(t *testing.T) {
	d := New()
	d.Upload(glcore.ElementArrayBuffer, u16s(0, 1, 2, 3, 4, 5, 6, 7), indexUsage)

	cmds := make([]byte, 2*recordSize)
	put := func(i int, count, instances, first uint32, bv int32) {
		r := cmds[i*recordSize:]
		binary.LittleEndian.PutUint32(r[0:], count)
		binary.LittleEndian.PutUint32(r[4:], instances)
		binary.LittleEndian.PutUint32(r[8:], first)
		binary.LittleEndian.PutUint32(r[12:], uint32(bv))
	}
	put(0, 2, 1, 1, 0)
	put(1, 3, 1, 4, -1)
	d.Upload(glcore.DrawIndirectBuffer, cmds, gputypes.BufferUsageIndirect)

	d.DrawElementsIndirect(glcore.Points, glcore.UnsignedShort, recordSize)
	assert.Equal(t, []uint32{3, 4, 5}, d.Stream())

	d.ResetDraws()
	d.MultiDrawElementsIndirect(glcore.Points, glcore.UnsignedShort, 0, 2, 0)
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, d.Stream())
	assert.Equal(t, 1, d.Submissions())
	assert.Len(t, d.Draws(), 2)
	assert.Empty(t, d.Errors())
}

func TestCapabilitiesGateEntryPoints(t *testing.T) {
	d := New(WithCapabilities(glcore.Capabilities{}))
	d.Upload(glcore.ElementArrayBuffer, u16s(0, 1), indexUsage)
	d.DrawElementsBaseVertex(glcore.Points, 1, glcore.UnsignedShort, 0, 1)
	d.DrawElementsIndirect(glcore.Points, glcore.UnsignedShort, 0)
	d.MultiDrawElementsIndirect(glcore.Points, glcore.UnsignedShort, 0, 1, 0)
	d.DispatchCompute(1, 1, 1)
	assert.Equal(t, []glcore.ErrorCode{
		glcore.InvalidOperation, glcore.InvalidOperation, glcore.InvalidOperation, glcore.InvalidOperation,
	}, d.Errors())
	assert.Empty(t, d.Draws())
}

func TestStrictUsage(t *testing.T) {
	d := New(WithStrictUsage())
	d.Upload(glcore.ElementArrayBuffer, u16s(0, 1), gputypes.BufferUsageVertex)
	d.DrawElements(glcore.Points, 2, glcore.UnsignedShort, 0)
	assert.Equal(t, glcore.InvalidOperation, d.GetError())

	_, err := d.MapBufferRange(glcore.ElementArrayBuffer, 0, 4, glcore.MapRead)
	assert.Error(t, err)
	assert.Equal(t, glcore.InvalidOperation, d.GetError())

	d.Upload(glcore.ElementArrayBuffer, u16s(0, 1), gputypes.BufferUsageIndex)
	d.DrawElements(glcore.Points, 2, glcore.UnsignedShort, 0)
	assert.Equal(t, glcore.NoError, d.GetError())
}

func TestDispatchRunsKernel(t *testing.T) {
	d := New()
	prog, err := d.CreateComputeProgram(&glcore.ComputeProgramDesc{
		Label:         "double",
		Source:        "void main() {}",
		WorkgroupSize: 4,
		Kernel: func(gid uint32, bindings [][]byte) {
			in, out := bindings[0], bindings[1]
			if int(gid) >= len(in) {
				return
			}
			out[gid] = 2 * in[gid]
		},
	})
	require.NoError(t, err)

	in := d.Upload(glcore.ShaderStorageBuffer, []byte{1, 2, 3, 4, 5}, gputypes.BufferUsageStorage)
	out := d.Upload(glcore.ShaderStorageBuffer, make([]byte, 5), gputypes.BufferUsageStorage)
	d.BindBufferBase(glcore.ShaderStorageBuffer, 0, in)
	d.BindBufferBase(glcore.ShaderStorageBuffer, 1, out)

	d.UseProgram(prog)
	d.DispatchCompute(2, 1, 1)
	assert.Equal(t, []byte{2, 4, 6, 8, 10}, d.Contents(out))
	assert.Equal(t, 1, d.Dispatches())
	assert.Empty(t, d.Errors())
}

func TestDispatchLimits(t *testing.T) {
	d := New()
	d.DispatchCompute(1, 1, 1)
	assert.Equal(t, glcore.InvalidOperation, d.GetError(), "no program")

	prog, err := d.CreateComputeProgram(&glcore.ComputeProgramDesc{Source: "x", Kernel: func(uint32, [][]byte) {}})
	require.NoError(t, err)
	d.UseProgram(prog)
	d.DispatchCompute(DefaultCapabilities().MaxComputeWorkGroupCountX+1, 1, 1)
	assert.Equal(t, glcore.InvalidValue, d.GetError())
}

func TestFaults(t *testing.T) {
	d := New()
	d.InjectFaults(Faults{CompileErrors: true, MapFailures: 1, AllocFailures: 1})

	_, err := d.CreateComputeProgram(&glcore.ComputeProgramDesc{Label: "k", Source: "x", Kernel: func(uint32, [][]byte) {}})
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "k", ce.Label)

	assert.Equal(t, glcore.NoBuffer, d.CreateBuffer())
	id := d.Upload(glcore.ArrayBuffer, []byte{1, 2, 3, 4}, gputypes.BufferUsageMapRead)
	assert.NotEqual(t, glcore.NoBuffer, id)

	_, err = d.MapBufferRange(glcore.ArrayBuffer, 0, 4, glcore.MapRead)
	assert.Error(t, err)
	_, err = d.MapBufferRange(glcore.ArrayBuffer, 0, 4, glcore.MapRead)
	assert.NoError(t, err)
	assert.Empty(t, d.Errors(), "injected failures do not queue GL errors")
}

func TestProgramLifecycle(t *testing.T) {
	d := New()
	p, err := d.CreateComputeProgram(&glcore.ComputeProgramDesc{Source: "x", Kernel: func(uint32, [][]byte) {}})
	require.NoError(t, err)
	d.UseProgram(p)
	assert.Equal(t, p, d.CurrentProgram())
	assert.Equal(t, 1, d.ProgramCount())

	d.DeleteProgram(p)
	assert.Equal(t, 0, d.ProgramCount())
	d.UseProgram(p)
	assert.Equal(t, glcore.InvalidOperation, d.GetError())
}

func TestDispatchWithWorkers(t *testing.T) {
	d := New(WithWorkers(3))
	defer d.Close()
	prog, err := d.CreateComputeProgram(&glcore.ComputeProgramDesc{
		Label:         "square",
		Source:        "void main() {}",
		WorkgroupSize: 8,
		Kernel: func(gid uint32, bindings [][]byte) {
			out := bindings[0]
			if int(gid) >= len(out) {
				return
			}
			out[gid] = byte(gid * gid)
		},
	})
	require.NoError(t, err)

	out := d.Upload(glcore.ShaderStorageBuffer, make([]byte, 200), gputypes.BufferUsageStorage)
	d.BindBufferBase(glcore.ShaderStorageBuffer, 0, out)
	d.UseProgram(prog)
	d.DispatchCompute(25, 1, 1)

	want := make([]byte, 200)
	for i := range want {
		want[i] = byte(i * i)
	}
	assert.Equal(t, want, d.Contents(out))
	assert.Empty(t, d.Errors())
}
