package testutil

import (
	"math"
	"math/rand"

	"github.com/mmfiora/algo-spectra/curve"
)

// GaussianComponent is one Gaussian band of a synthetic spectrum.
type GaussianComponent struct {
	Center    float64
	Amplitude float64
	Sigma     float64
}

// Grid returns wavelengths lo, lo+step, ... up to and including hi.
func Grid(lo, hi, step float64) []float64 {
	n := int(math.Floor((hi-lo)/step)) + 1

	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}

	return out
}

// GaussianMix evaluates a sum of Gaussian components on the grid.
func GaussianMix(x []float64, comps ...GaussianComponent) []float64 {
	out := make([]float64, len(x))
	for i, xv := range x {
		var s float64
		for _, c := range comps {
			d := xv - c.Center
			s += c.Amplitude * math.Exp(-d*d/(2*c.Sigma*c.Sigma))
		}

		out[i] = s
	}

	return out
}

// GaussianCurve builds a synthetic spectrum curve on a regular grid.
func GaussianCurve(lo, hi, step float64, comps ...GaussianComponent) curve.Curve {
	x := Grid(lo, hi, step)

	return curve.Curve{X: x, Y: GaussianMix(x, comps...)}
}

// FlatCurve returns a constant-intensity curve.
func FlatCurve(lo, hi, step, value float64) curve.Curve {
	x := Grid(lo, hi, step)

	y := make([]float64, len(x))
	for i := range y {
		y[i] = value
	}

	return curve.Curve{X: x, Y: y}
}

// DeterministicNoise generates bounded white noise with a fixed seed for
// reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)

	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}
