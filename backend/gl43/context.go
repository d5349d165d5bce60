//go:build !nogl

package gl43

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Context is a hidden GLFW window holding an OpenGL 4.3 core context.
type Context struct {
	window *glfw.Window
}

// NewContext initializes GLFW, creates a 1x1 invisible window with a 4.3
// core forward-compatible context, makes it current and loads the GL
// function table. It must be called from a thread locked with
// runtime.LockOSThread; on macOS that must be the main thread.
func NewContext() (*Context, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: glfw: %w", ErrContextCreation, err)
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	w, err := glfw.CreateWindow(1, 1, "multidraw", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: %w", ErrContextCreation, err)
	}
	w.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		w.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("%w: load functions: %w", ErrContextCreation, err)
	}
	return &Context{window: w}, nil
}

// Close destroys the window and terminates GLFW.
func (c *Context) Close() {
	if c.window != nil {
		glfw.DetachCurrentContext()
		c.window.Destroy()
		c.window = nil
	}
	glfw.Terminate()
}
