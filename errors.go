package multidraw

import "errors"

// Fallback reasons. They are wrapped with call context, logged, and never
// returned to draw callers: a strategy that hits one of them replays the
// batch with StrategyDrawElements.
var (
	// ErrStripTopology is reported when a batch uses a topology whose
	// primitives share vertices, so concatenating draws would join them.
	ErrStripTopology = errors.New("multidraw: strip-like topology cannot be flattened")

	// ErrUnsupportedIndexType is reported for index types other than
	// unsigned byte, short and int.
	ErrUnsupportedIndexType = errors.New("multidraw: unsupported index type")

	// ErrNoElementBuffer is reported when a strategy needs a bound element
	// buffer but the batch reads indices from client memory.
	ErrNoElementBuffer = errors.New("multidraw: no element array buffer bound")

	// ErrElementBufferSize is reported when the bound element buffer is empty
	// or, for sub-32-bit index types, not a multiple of 4 bytes.
	ErrElementBufferSize = errors.New("multidraw: invalid element array buffer size")

	// ErrCountOverflow is reported when the cumulative element count or an
	// element offset does not fit in 32 bits.
	ErrCountOverflow = errors.New("multidraw: element count overflow")

	// ErrOffsetOutOfRange is reported when a draw's byte offset lies past
	// the end of the bound element buffer.
	ErrOffsetOutOfRange = errors.New("multidraw: index offset out of range")

	// ErrRangeOutOfBounds is reported when a draw's index range extends
	// past the end of the bound element buffer.
	ErrRangeOutOfBounds = errors.New("multidraw: index range out of bounds")

	// ErrCapability is reported when the device lacks the feature a
	// strategy is built on.
	ErrCapability = errors.New("multidraw: capability not supported")

	// ErrComputeDisabled is reported after the flattening program failed
	// to build. Compute stays disabled for the Emulator's lifetime.
	ErrComputeDisabled = errors.New("multidraw: compute flattening disabled")

	// ErrDispatchTooLarge is reported when the flattening dispatch would
	// exceed the device's work group count limit.
	ErrDispatchTooLarge = errors.New("multidraw: dispatch exceeds work group limit")

	// ErrMapFailed is reported when a buffer could not be mapped.
	ErrMapFailed = errors.New("multidraw: buffer mapping failed")

	// ErrAllocFailed is reported when the backend could not create a
	// buffer.
	ErrAllocFailed = errors.New("multidraw: buffer allocation failed")

	// ErrMalformedBatch is reported for batches whose parallel arrays are
	// missing or disagree in length.
	ErrMalformedBatch = errors.New("multidraw: malformed batch")
)
