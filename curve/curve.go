// Package curve defines the sampled (wavelength, intensity) data contract
// shared by all detection and analysis packages.
//
// A Curve is a value object: every transform returns a new curve and never
// mutates the receiver, so callers can safely keep references to loaded
// spectra while derived curves are analyzed.
package curve

import (
	"fmt"
	"math"
	"sort"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Tolerances for comparing the X grids of two curves, matching a relative
// plus absolute tolerance pair.
const (
	gridRelTol = 1e-5
	gridAbsTol = 1e-8
)

// Curve holds parallel wavelength and intensity samples.
type Curve struct {
	X []float64 // wavelength
	Y []float64 // intensity
}

// New builds a curve from parallel wavelength and intensity slices.
// The slices are copied; the caller keeps ownership of its arguments.
func New(x, y []float64) (Curve, error) {
	c := Curve{
		X: append([]float64(nil), x...),
		Y: append([]float64(nil), y...),
	}
	if err := c.Validate(); err != nil {
		return Curve{}, err
	}

	return c, nil
}

// Len returns the number of samples.
func (c Curve) Len() int { return len(c.X) }

// Validate checks the basic data contract: non-empty, equal slice lengths
// and finite values in both columns. Loader-level collaborators are
// expected to clean their data first; this re-validates and fails loudly
// rather than silently dropping rows.
func (c Curve) Validate() error {
	if len(c.X) == 0 || len(c.Y) == 0 {
		return ErrEmpty
	}

	if len(c.X) != len(c.Y) {
		return fmt.Errorf("%w: %d x values vs %d y values", ErrLengthMismatch, len(c.X), len(c.Y))
	}

	for i := range c.X {
		if !isFinite(c.X[i]) || !isFinite(c.Y[i]) {
			return fmt.Errorf("%w: at index %d", ErrNonFinite, i)
		}
	}

	return nil
}

// Clone returns a deep copy of the curve.
func (c Curve) Clone() Curve {
	return Curve{
		X: append([]float64(nil), c.X...),
		Y: append([]float64(nil), c.Y...),
	}
}

// IsSortedByX reports whether the wavelengths are in non-decreasing order.
func (c Curve) IsSortedByX() bool {
	return sort.Float64sAreSorted(c.X)
}

// SortByX returns a copy of the curve with samples ordered by ascending
// wavelength. Returns the curve unchanged (still copied) when already
// sorted.
func (c Curve) SortByX() Curve {
	out := c.Clone()
	if c.IsSortedByX() {
		return out
	}

	idx := make([]int, len(c.X))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool { return c.X[idx[a]] < c.X[idx[b]] })

	for i, j := range idx {
		out.X[i] = c.X[j]
		out.Y[i] = c.Y[j]
	}

	return out
}

// MinMaxY returns the minimum and maximum intensity.
// Returns (0, 0) for an empty curve.
func (c Curve) MinMaxY() (minY, maxY float64) {
	if len(c.Y) == 0 {
		return 0, 0
	}

	minY, maxY = c.Y[0], c.Y[0]
	for _, v := range c.Y[1:] {
		if v < minY {
			minY = v
		}

		if v > maxY {
			maxY = v
		}
	}

	return minY, maxY
}

// Normalize returns a copy of the curve with intensities divided by the
// maximum intensity, so the strongest sample becomes 1.
func (c Curve) Normalize() (Curve, error) {
	if err := c.Validate(); err != nil {
		return Curve{}, err
	}

	_, maxY := c.MinMaxY()
	if maxY == 0 {
		return Curve{}, ErrZeroMax
	}

	out := c.Clone()
	vecmath.ScaleBlock(out.Y, c.Y, 1/maxY)

	return out, nil
}

// AddOffset returns a copy of the curve with the offset added to every
// intensity value.
func (c Curve) AddOffset(offset float64) (Curve, error) {
	if err := c.Validate(); err != nil {
		return Curve{}, err
	}

	out := c.Clone()
	for i := range out.Y {
		out.Y[i] += offset
	}

	return out, nil
}

// Subtract returns c - factor*other computed sample by sample. Both curves
// must have the same length and matching X grids within tolerance.
func (c Curve) Subtract(other Curve, factor float64) (Curve, error) {
	if err := c.Validate(); err != nil {
		return Curve{}, err
	}

	if err := other.Validate(); err != nil {
		return Curve{}, err
	}

	if len(c.X) != len(other.X) {
		return Curve{}, fmt.Errorf("%w: %d vs %d samples", ErrLengthMismatch, len(c.X), len(other.X))
	}

	for i := range c.X {
		if !gridClose(c.X[i], other.X[i]) {
			return Curve{}, fmt.Errorf("%w: at index %d (%g vs %g)", ErrGridMismatch, i, c.X[i], other.X[i])
		}
	}

	scaled := make([]float64, len(other.Y))
	vecmath.ScaleBlock(scaled, other.Y, factor)

	out := c.Clone()
	for i := range out.Y {
		out.Y[i] -= scaled[i]
	}

	return out, nil
}

func gridClose(a, b float64) bool {
	return math.Abs(a-b) <= gridAbsTol+gridRelTol*math.Abs(b)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
