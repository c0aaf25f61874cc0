// Package gradient computes first derivatives of sampled data on
// possibly non-uniform grids.
package gradient

import (
	"errors"
	"fmt"
)

var (
	// ErrTooShort is returned for inputs with fewer than two samples.
	ErrTooShort = errors.New("gradient: need at least two samples")
	// ErrLengthMismatch is returned when y and x differ in length.
	ErrLengthMismatch = errors.New("gradient: y and x lengths differ")
	// ErrZeroSpacing is returned when two adjacent x values coincide.
	ErrZeroSpacing = errors.New("gradient: zero sample spacing")
)

// Compute returns dy/dx at every sample position. Interior points use a
// second-order accurate three-point stencil that stays exact for
// quadratics on non-uniform grids; the boundaries fall back to one-sided
// first-order differences.
func Compute(y, x []float64) ([]float64, error) {
	n := len(y)
	if n != len(x) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, n, len(x))
	}

	if n < 2 {
		return nil, ErrTooShort
	}

	for i := 1; i < n; i++ {
		if x[i] == x[i-1] {
			return nil, fmt.Errorf("%w: at index %d (x = %g)", ErrZeroSpacing, i, x[i])
		}
	}

	out := make([]float64, n)
	out[0] = (y[1] - y[0]) / (x[1] - x[0])
	out[n-1] = (y[n-1] - y[n-2]) / (x[n-1] - x[n-2])

	for i := 1; i < n-1; i++ {
		hd := x[i] - x[i-1]
		hs := x[i+1] - x[i]
		out[i] = (hs*hs*y[i+1] + (hd*hd-hs*hs)*y[i] - hd*hd*y[i-1]) / (hs * hd * (hd + hs))
	}

	return out, nil
}
