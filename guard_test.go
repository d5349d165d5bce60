package multidraw

import (
	"testing"

	"github.com/gogpu/multidraw/backend/software"
	"github.com/gogpu/multidraw/glcore"
)

func TestStateGuardRestoresInReverse(t *testing.T) {
	dev := software.New()
	a := dev.Upload(glcore.ArrayBuffer, make([]byte, 4), indexUsage)
	b := dev.Upload(glcore.ShaderStorageBuffer, make([]byte, 4), indexUsage)
	dev.BindBufferBase(glcore.ShaderStorageBuffer, 2, b)
	prog, err := dev.CreateComputeProgram(&glcore.ComputeProgramDesc{Source: "x", Kernel: func(uint32, [][]byte) {}})
	if err != nil {
		t.Fatal(err)
	}
	dev.UseProgram(prog)

	g := newStateGuard(dev)
	if got := g.buffer(glcore.ArrayBuffer); got != a {
		t.Errorf("buffer() = %d, want %d", got, a)
	}
	g.buffer(glcore.ShaderStorageBuffer)
	if got := g.bufferBase(glcore.ShaderStorageBuffer, 2); got != b {
		t.Errorf("bufferBase() = %d, want %d", got, b)
	}
	if got := g.program(); got != prog {
		t.Errorf("program() = %d, want %d", got, prog)
	}

	dev.BindBuffer(glcore.ArrayBuffer, glcore.NoBuffer)
	dev.BindBufferBase(glcore.ShaderStorageBuffer, 2, a)
	dev.UseProgram(glcore.NoProgram)

	g.restore()
	g.restore()

	if got := dev.BoundBuffer(glcore.ArrayBuffer); got != a {
		t.Errorf("array binding = %d, want %d", got, a)
	}
	if got := dev.BoundBufferBase(glcore.ShaderStorageBuffer, 2); got != b {
		t.Errorf("binding point 2 = %d, want %d", got, b)
	}
	// The generic binding was saved before the indexed one and wins.
	if got := dev.BoundBuffer(glcore.ShaderStorageBuffer); got != b {
		t.Errorf("generic shader storage binding = %d, want %d", got, b)
	}
	if got := dev.CurrentProgram(); got != prog {
		t.Errorf("current program = %d, want %d", got, prog)
	}
	if errs := dev.Errors(); len(errs) > 0 {
		t.Errorf("backend errors: %v", errs)
	}
}
