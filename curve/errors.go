package curve

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of every input validation failure in this
// module. Callers can distinguish "this curve cannot be analyzed" from an
// empty detection result with errors.Is(err, curve.ErrValidation).
var ErrValidation = errors.New("curve: validation failed")

// ErrComputation marks unexpected numerical failures (degenerate input
// causing a divide-by-zero, singular fits) that are not caused by the
// shape of the caller's data contract.
var ErrComputation = errors.New("curve: computation failed")

var (
	// ErrEmpty is returned when a curve has no samples.
	ErrEmpty = fmt.Errorf("%w: curve has no samples", ErrValidation)
	// ErrLengthMismatch is returned when the X and Y slices of one curve,
	// or two curves in an arithmetic operation, differ in length.
	ErrLengthMismatch = fmt.Errorf("%w: slice lengths differ", ErrValidation)
	// ErrGridMismatch is returned when curve arithmetic is attempted on
	// curves whose X grids do not match within tolerance.
	ErrGridMismatch = fmt.Errorf("%w: x grids do not match", ErrValidation)
	// ErrNonFinite is returned when a sample is NaN or infinite.
	ErrNonFinite = fmt.Errorf("%w: non-finite sample value", ErrValidation)
	// ErrZeroMax is returned when normalization is attempted on a curve
	// whose maximum intensity is zero.
	ErrZeroMax = fmt.Errorf("%w: maximum intensity is zero", ErrComputation)
)
