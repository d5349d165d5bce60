//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Unit runs every package's tests without a GL context.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "-tags", "nogl", "./..."), withStream())
	return err
}

// Debug runs the tests with backend error checks that abort on
// programming errors.
func (Test) Debug() error {
	_, err := executeCmd("go", withArgs("test", "-tags", "nogl multidrawdebug", "./..."), withStream())
	return err
}

// GL runs the tests including the OpenGL 4.3 backend. Needs cgo and a display.
func (Test) GL() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withEnv("CGO_ENABLED=1"), withStream())
	return err
}
