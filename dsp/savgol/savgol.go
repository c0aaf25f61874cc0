// Package savgol implements Savitzky-Golay polynomial smoothing for
// uniformly indexed samples. The filter fits a low-order polynomial to a
// sliding window by linear least squares and evaluates the fit at the
// window position, which smooths noise while preserving peak shape far
// better than a moving average.
package savgol

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrWindowSize is returned for an even, too small or too large window.
	ErrWindowSize = errors.New("savgol: window must be odd, >= 3 and <= len(y)")
	// ErrOrder is returned when the polynomial order does not fit the window.
	ErrOrder = errors.New("savgol: polynomial order must be >= 1 and < window")
	// ErrSingular is returned when the least-squares system cannot be solved.
	ErrSingular = errors.New("savgol: singular normal equations")
)

// Filter smooths y with a Savitzky-Golay filter of the given odd window
// length and polynomial order. The edges are handled by evaluating the
// polynomial fitted to the first (or last) full window at the edge
// positions, so the output has the same length as the input.
func Filter(y []float64, window, order int) ([]float64, error) {
	if window < 3 || window%2 == 0 || window > len(y) {
		return nil, fmt.Errorf("%w: window %d, %d samples", ErrWindowSize, window, len(y))
	}

	if order < 1 || order >= window {
		return nil, fmt.Errorf("%w: order %d, window %d", ErrOrder, order, window)
	}

	proj, err := projection(window, order)
	if err != nil {
		return nil, err
	}

	n := len(y)
	half := window / 2
	out := make([]float64, n)

	for i := half; i < n-half; i++ {
		out[i] = dot(proj[half], y[i-half:i-half+window])
	}

	// Leading edge: evaluate the first-window fit at positions 0..half-1.
	for i := 0; i < half; i++ {
		out[i] = dot(proj[i], y[:window])
	}

	// Trailing edge: evaluate the last-window fit at the final positions.
	for i := n - half; i < n; i++ {
		out[i] = dot(proj[window-(n-i)], y[n-window:])
	}

	return out, nil
}

// projection returns the window x window least-squares projection matrix
// P = A (AᵀA)⁻¹ Aᵀ for a Vandermonde basis centered on the window. Row r
// gives the weights that evaluate the fitted polynomial at window
// position r.
func projection(window, order int) ([][]float64, error) {
	m := order + 1

	a := make([][]float64, window)
	for i := range a {
		a[i] = make([]float64, m)
		t := float64(i - window/2)
		p := 1.0

		for j := 0; j < m; j++ {
			a[i][j] = p
			p *= t
		}
	}

	// Normal matrix AᵀA.
	ata := make([][]float64, m)
	for j := range ata {
		ata[j] = make([]float64, m)
		for k := 0; k <= j; k++ {
			var s float64
			for i := 0; i < window; i++ {
				s += a[i][j] * a[i][k]
			}

			ata[j][k] = s
			ata[k][j] = s
		}
	}

	inv, err := invert(ata)
	if err != nil {
		return nil, err
	}

	// P = A inv Aᵀ.
	proj := make([][]float64, window)
	for r := range proj {
		proj[r] = make([]float64, window)
		for c := 0; c < window; c++ {
			var s float64
			for j := 0; j < m; j++ {
				for k := 0; k < m; k++ {
					s += a[r][j] * inv[j][k] * a[c][k]
				}
			}

			proj[r][c] = s
		}
	}

	return proj, nil
}

// invert performs Gauss-Jordan elimination with partial pivoting on a
// small symmetric positive definite matrix.
func invert(m [][]float64) ([][]float64, error) {
	n := len(m)

	aug := make([][]float64, n)
	for i := range aug {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}

		if aug[pivot][col] == 0 {
			return nil, ErrSingular
		}

		aug[col], aug[pivot] = aug[pivot], aug[col]

		pv := aug[col][col]
		for c := range aug[col] {
			aug[col][c] /= pv
		}

		for r := 0; r < n; r++ {
			if r == col || aug[r][col] == 0 {
				continue
			}

			f := aug[r][col]
			for c := range aug[r] {
				aug[r][c] -= f * aug[col][c]
			}
		}
	}

	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = aug[i][n:]
	}

	return inv, nil
}

func dot(w, y []float64) float64 {
	var s float64
	for i := range w {
		s += w[i] * y[i]
	}

	return s
}
