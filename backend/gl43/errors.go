package gl43

import "errors"

// Package errors for the gl backend.
var (
	// ErrContextCreation is returned when no OpenGL 4.3 context could be created.
	ErrContextCreation = errors.New("gl43: context creation failed")

	// ErrVersion is returned when the context is older than OpenGL 4.3.
	ErrVersion = errors.New("gl43: OpenGL 4.3 required")
)

// CompileError carries the info log of a failed compile or link.
type CompileError struct {
	Label string
	Stage string
	Log   string
}

func (e *CompileError) Error() string {
	return "gl43: " + e.Stage + " " + e.Label + ": " + e.Log
}
