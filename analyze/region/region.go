// Package region analyzes a wavelength window of a curve: it explains
// why the standard cascade would miss features there, proposes tuned
// thresholds, and runs targeted peak and shoulder searches restricted
// to the window.
package region

import (
	"fmt"
	"math"
	"sort"

	"github.com/mmfiora/algo-spectra/analyze/features"
	"github.com/mmfiora/algo-spectra/analyze/peaks"
	"github.com/mmfiora/algo-spectra/curve"
	"github.com/mmfiora/algo-spectra/dsp/gradient"
	"github.com/mmfiora/algo-spectra/dsp/savgol"
)

const (
	// Thresholds mirroring the standard cascade tier, so the diagnosis
	// reports against the same bar the cascade applies.
	standardProminenceFrac = 0.003
	heightFloorQuantile    = 0.05
	heightFloorFrac        = 0.005

	// ultraProminenceFrac marks regions so weak that only the most
	// sensitive tier has a chance.
	ultraProminenceFrac = 0.001

	suggestedHeightFrac   = 0.001
	minSuggestedPromFrac  = 0.0001
	regionMinSamples      = 5
	shoulderMinProminence = 0.005
	shoulderSmoothWindow  = 5
	shoulderSmoothOrder   = 2
	shoulderLocalWindow   = 5
)

// Diagnosis reports how a wavelength region compares against the
// standard detection thresholds and what parameters would resolve it.
type Diagnosis struct {
	Lo, Hi      float64
	SampleCount int

	RegionMin   float64
	RegionMax   float64
	RegionRange float64
	GlobalRange float64

	// RelativeProminence is the region's intensity range as a fraction
	// of the whole curve's range.
	RelativeProminence float64

	// HeightFloor is the standard cascade's minimum height; HeightMet
	// and ProminenceMet state whether the region clears the standard
	// thresholds.
	HeightFloor   float64
	HeightMet     bool
	ProminenceMet bool

	// NeedsUltraSensitive is set when the region is too weak for the
	// standard and sensitive tiers.
	NeedsUltraSensitive bool

	// Suggested thresholds for a targeted re-run over this region.
	SuggestedMinHeight      float64
	SuggestedProminenceFrac float64
}

// Diagnose inspects the [lo, hi] wavelength window and reports whether
// the standard detection thresholds can resolve features there, along
// with suggested replacements. A flat curve has no usable intensity
// range and yields a computation error.
func Diagnose(c curve.Curve, lo, hi float64) (Diagnosis, error) {
	sorted, idx, err := window(c, lo, hi)
	if err != nil {
		return Diagnosis{}, err
	}

	gMin, gMax := minMax(sorted.Y)
	gRange := gMax - gMin

	if gRange == 0 {
		return Diagnosis{}, fmt.Errorf("%w: curve has no intensity range", curve.ErrComputation)
	}

	rMin, rMax := minMax(sorted.Y[idx[0]:idx[1]])
	rRange := rMax - rMin

	relProm := rRange / gRange
	floor := quantile(sorted.Y, heightFloorQuantile) + heightFloorFrac*gRange

	d := Diagnosis{
		Lo:                 lo,
		Hi:                 hi,
		SampleCount:        idx[1] - idx[0],
		RegionMin:          rMin,
		RegionMax:          rMax,
		RegionRange:        rRange,
		GlobalRange:        gRange,
		RelativeProminence: relProm,
		HeightFloor:        floor,
		HeightMet:          rMax >= floor,
		ProminenceMet:      relProm >= standardProminenceFrac,
		SuggestedMinHeight: rMin + suggestedHeightFrac*gRange,
	}

	d.NeedsUltraSensitive = rMax < floor || relProm < ultraProminenceFrac
	d.SuggestedProminenceFrac = math.Max(minSuggestedPromFrac, relProm*0.5)

	return d, nil
}

// DetectIn runs the peak search with thresholds tuned for the [lo, hi]
// window and reports only the features inside it, renumbered.
func DetectIn(c curve.Curve, lo, hi float64, maxPeaks int) (features.Set, error) {
	if maxPeaks <= 0 {
		maxPeaks = peaks.DefaultMaxPeaks
	}

	diag, err := Diagnose(c, lo, hi)
	if err != nil {
		return features.Set{}, err
	}

	cfg := peaks.DefaultConfig()
	cfg.MaxPeaks = c.Len()
	cfg.MinHeight = diag.SuggestedMinHeight
	cfg.ProminenceFrac = diag.SuggestedProminenceFrac

	all, err := peaks.Detect(c, cfg)
	if err != nil {
		return features.Set{}, err
	}

	var inside []features.Feature
	for _, f := range all.Features {
		if f.Wavelength >= lo && f.Wavelength <= hi {
			inside = append(inside, f)
		}
	}

	total := len(inside)
	if len(inside) > maxPeaks {
		inside = inside[:maxPeaks]
	}

	params := all.Params
	params.Method = "region_targeted"

	set := features.Set{
		Features:      features.Renumber(inside),
		TotalDetected: total,
		Params:        params,
	}
	set.TraditionalCount = set.NumFound()

	return set, nil
}

// ShoulderIn searches the [lo, hi] window for shoulder structure using
// thresholds relative to the window's own intensity range rather than
// the whole curve's. Confidence weighs local prominence by how sharply
// the slope turns over at the candidate.
func ShoulderIn(c curve.Curve, lo, hi float64, sensitivity float64) (features.Set, error) {
	if sensitivity <= 0 {
		sensitivity = 0.05
	}

	params := features.Params{Method: "region_shoulder", Sensitivity: sensitivity}

	sorted, idx, err := window(c, lo, hi)
	if err != nil {
		return features.Set{}, err
	}

	x := sorted.X[idx[0]:idx[1]]
	y := sorted.Y[idx[0]:idx[1]]
	n := len(y)

	rMin, rMax := minMax(y)
	rRange := rMax - rMin

	if rRange == 0 {
		return features.Set{Params: params}, nil
	}

	smoothed := y
	if n >= shoulderSmoothWindow {
		if sm, err := savgol.Filter(y, shoulderSmoothWindow, shoulderSmoothOrder); err == nil {
			smoothed = sm
		}
	}

	deriv, err := gradient.Compute(smoothed, x)
	if err != nil {
		return features.Set{}, fmt.Errorf("%w: region derivative: %v", curve.ErrComputation, err)
	}

	minIntensity := rMin + sensitivity*rRange
	minProminence := shoulderMinProminence * rRange

	var found []features.Feature

	for i := 1; i < n-1; i++ {
		localMax := y[i] >= y[i-1] && y[i] >= y[i+1]
		slopeTurn := deriv[i-1] > 0 && deriv[i+1] < 0

		if !localMax && !slopeTurn {
			continue
		}

		if y[i] < minIntensity {
			continue
		}

		prom := y[i] - windowMin(y, i, shoulderLocalWindow)
		if prom < minProminence {
			continue
		}

		slopeChange := deriv[i-1] - deriv[i+1]

		found = append(found, features.Feature{
			Wavelength:    x[i],
			Intensity:     y[i],
			DetectionType: features.TypeShoulderPeak,
			Prominence:    prom,
			SlopeChange:   slopeChange,
			Confidence:    prom * (1 + math.Max(0, slopeChange)),
			DataIndex:     idx[0] + i,
			Method:        "region_shoulder",
		})
	}

	found = dedupAdjacent(found)

	set := features.Set{
		Features:      features.Renumber(found),
		ShoulderCount: len(found),
		TotalDetected: len(found),
		Params:        params,
	}

	return set, nil
}

// window sorts the curve and locates the half-open sample range whose
// wavelengths fall inside [lo, hi].
func window(c curve.Curve, lo, hi float64) (curve.Curve, [2]int, error) {
	if err := c.Validate(); err != nil {
		return curve.Curve{}, [2]int{}, err
	}

	if lo >= hi {
		return curve.Curve{}, [2]int{}, fmt.Errorf("%w: region [%g, %g] is empty", curve.ErrValidation, lo, hi)
	}

	sorted := c.SortByX()

	start := sort.SearchFloat64s(sorted.X, lo)
	end := sort.SearchFloat64s(sorted.X, hi)

	for end < sorted.Len() && sorted.X[end] <= hi {
		end++
	}

	if end-start < regionMinSamples {
		return curve.Curve{}, [2]int{}, fmt.Errorf("%w: region [%g, %g] covers %d samples, need at least %d",
			curve.ErrValidation, lo, hi, end-start, regionMinSamples)
	}

	return sorted, [2]int{start, end}, nil
}

// dedupAdjacent collapses candidates at neighboring samples, keeping
// the higher prominence of each run.
func dedupAdjacent(found []features.Feature) []features.Feature {
	if len(found) < 2 {
		return found
	}

	out := found[:1]
	for _, f := range found[1:] {
		last := &out[len(out)-1]
		if f.DataIndex-last.DataIndex <= 1 {
			if f.Prominence > last.Prominence {
				*last = f
			}

			continue
		}

		out = append(out, f)
	}

	return out
}

func windowMin(y []float64, i, half int) float64 {
	lo := i - half
	if lo < 0 {
		lo = 0
	}

	hi := i + half + 1
	if hi > len(y) {
		hi = len(y)
	}

	m := y[lo]
	for _, v := range y[lo+1 : hi] {
		if v < m {
			m = v
		}
	}

	return m
}

func quantile(v []float64, q float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)

	pos := q * float64(len(s)-1)
	i := int(pos)

	if i >= len(s)-1 {
		return s[len(s)-1]
	}

	frac := pos - float64(i)

	return s[i]*(1-frac) + s[i+1]*frac
}

func minMax(v []float64) (minV, maxV float64) {
	minV, maxV = v[0], v[0]
	for _, x := range v[1:] {
		if x < minV {
			minV = x
		}

		if x > maxV {
			maxV = x
		}
	}

	return minV, maxV
}
