//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

// Verify cross-checks all strategies on random batches for every index
// type on the software backend.
func Verify() error {
	mg.Deps(Test.Unit)
	for _, typ := range []string{"u8", "u16", "u32"} {
		for _, mode := range []string{"triangles", "lines", "triangle_strip"} {
			if _, err := executeCmd("go", withArgs("run", "-tags", "nogl", "./cmd/mdverify",
				"-backend", "software", "-type", typ, "-mode", mode, "-batches", "200"), withStream()); err != nil {
				return err
			}
		}
	}
	return nil
}
