package multidraw

import "github.com/gogpu/multidraw/glcore"

// stateGuard snapshots backend bindings and restores them in reverse order.
//
//	g := newStateGuard(b)
//	defer g.restore()
//	prev := g.buffer(glcore.ElementArrayBuffer)
type stateGuard struct {
	backend  glcore.Backend
	restores []func()
}

func newStateGuard(b glcore.Backend) *stateGuard {
	return &stateGuard{backend: b}
}

// buffer saves the binding of target and returns it.
func (g *stateGuard) buffer(target glcore.BufferTarget) glcore.BufferID {
	id := g.backend.BoundBuffer(target)
	g.restores = append(g.restores, func() { g.backend.BindBuffer(target, id) })
	return id
}

// bufferBase saves an indexed binding of target and returns it.
func (g *stateGuard) bufferBase(target glcore.BufferTarget, index uint32) glcore.BufferID {
	id := g.backend.BoundBufferBase(target, index)
	g.restores = append(g.restores, func() { g.backend.BindBufferBase(target, index, id) })
	return id
}

// program saves the current program and returns it.
func (g *stateGuard) program() glcore.ProgramID {
	id := g.backend.CurrentProgram()
	g.restores = append(g.restores, func() { g.backend.UseProgram(id) })
	return id
}

// restore rebinds everything saved, last saved first. It is idempotent.
func (g *stateGuard) restore() {
	for i := len(g.restores) - 1; i >= 0; i-- {
		g.restores[i]()
	}
	g.restores = nil
}
