//go:build multidrawdebug

package multidraw

const debugChecks = true

// programmingError aborts on caller or build defects so they surface in
// development.
func programmingError(err error) {
	panic(err)
}
