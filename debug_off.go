//go:build !multidrawdebug

package multidraw

// debugChecks enables backend error checks after every call.
// Build with -tags multidrawdebug to turn them on.
const debugChecks = false

// programmingError reports a caller or build defect. Release builds only
// log it.
func programmingError(error) {}
