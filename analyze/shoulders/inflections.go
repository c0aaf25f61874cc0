package shoulders

import (
	"math"
	"sort"

	"github.com/mmfiora/algo-spectra/analyze/features"
	"github.com/mmfiora/algo-spectra/curve"
	"github.com/mmfiora/algo-spectra/dsp/gradient"
	"github.com/mmfiora/algo-spectra/dsp/savgol"
)

const (
	// DefaultInflectionSensitivity scales the minimum intensity for
	// curvature-based candidates, as a fraction of the intensity range.
	DefaultInflectionSensitivity = 0.1

	// inflectionMinProminenceFrac anchors both the curvature-change and
	// the local-prominence thresholds.
	inflectionMinProminenceFrac = 0.02

	inflectionSmoothWindow = 7
	inflectionSmoothOrder  = 3
	inflectionLocalWindow  = 7

	// inflectionProximity is the minimum wavelength separation between a
	// slope-change candidate and any earlier candidate.
	inflectionProximity = 5.0
)

// DetectInflections searches the curve for shoulders using second-order
// structure rather than exclusion zones: local maxima of the smoothed
// curve with a significant curvature change across them, plus points
// where the first derivative changes magnitude abruptly. It complements
// Detect on heavily blended curves where no flank ever goes flat.
//
// Candidates are ranked by local prominence, falling back to intensity
// for slope-change candidates which carry none, and the top maxFeatures
// survive. Features found by the curvature signal carry CurvatureChange;
// both signals report SlopeChange.
func DetectInflections(c curve.Curve, maxFeatures int, sensitivity float64) (features.Set, error) {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}

	if sensitivity <= 0 {
		sensitivity = DefaultInflectionSensitivity
	}

	params := features.Params{
		Method:      "curvature_inflection",
		Sensitivity: sensitivity,
		Prominence:  inflectionMinProminenceFrac,
	}
	empty := features.Set{Params: params}

	if err := c.Validate(); err != nil {
		return features.Set{}, err
	}

	sorted := c.SortByX()
	n := sorted.Len()

	if n < minUsableSamples {
		return empty, nil
	}

	smoothed := sorted.Y
	if n >= inflectionSmoothWindow {
		if sm, err := savgol.Filter(sorted.Y, inflectionSmoothWindow, inflectionSmoothOrder); err == nil {
			smoothed = sm
		}
	}

	d1, err := gradient.Compute(smoothed, sorted.X)
	if err != nil {
		return features.Set{}, err
	}

	d2, err := gradient.Compute(d1, sorted.X)
	if err != nil {
		return features.Set{}, err
	}

	// Thresholds derive from the smoothed curve so a single noisy spike
	// cannot inflate the range.
	minY, maxY := minMax(smoothed)
	rng := maxY - minY

	if rng == 0 {
		return empty, nil
	}

	minIntensity := minY + sensitivity*rng
	minPromAbs := inflectionMinProminenceFrac * rng

	var candidates []features.Feature

	// Signal 1: strict local maxima of the smoothed curve whose mean
	// second derivative changes significantly across the point.
	for i := 3; i < n-3; i++ {
		if !(smoothed[i] > smoothed[i-1] && smoothed[i] > smoothed[i+1] &&
			smoothed[i] >= smoothed[i-2] && smoothed[i] >= smoothed[i+2]) {
			continue
		}

		lo := i - 2
		if lo < 0 {
			lo = 0
		}

		curvChange := math.Abs(mean(d2[i:i+3]) - mean(d2[lo:i]))

		if smoothed[i] < minIntensity || curvChange <= minPromAbs/50 {
			continue
		}

		prom := smoothed[i] - windowMin(smoothed, i, inflectionLocalWindow)
		if prom <= minPromAbs*0.3 {
			continue
		}

		candidates = append(candidates, features.Feature{
			Wavelength:      sorted.X[i],
			Intensity:       sorted.Y[i],
			DetectionType:   features.TypeShoulderPeak,
			Prominence:      prom,
			CurvatureChange: curvChange,
			SlopeChange:     d1[i],
			DataIndex:       i,
			Method:          "curvature_local_max",
		})
	}

	// Signal 2: abrupt first-derivative changes away from any candidate
	// the curvature signal already produced.
	for i := 5; i < n-5; i++ {
		slopeChange := math.Abs(mean(d1[i:i+3]) - mean(d1[i-3:i]))

		if slopeChange <= sensitivity*rng/10 || smoothed[i] < minIntensity {
			continue
		}

		wl := sorted.X[i]

		tooClose := false
		for _, cand := range candidates {
			if math.Abs(wl-cand.Wavelength) < inflectionProximity {
				tooClose = true

				break
			}
		}

		if tooClose {
			continue
		}

		candidates = append(candidates, features.Feature{
			Wavelength:    wl,
			Intensity:     sorted.Y[i],
			DetectionType: features.TypeShoulderPeak,
			SlopeChange:   slopeChange,
			DataIndex:     i,
			Method:        "slope_change",
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return rankKey(candidates[a]) > rankKey(candidates[b])
	})

	total := len(candidates)

	if len(candidates) > maxFeatures {
		candidates = candidates[:maxFeatures]
	}

	return features.Set{
		Features:      features.Renumber(candidates),
		ShoulderCount: len(candidates),
		TotalDetected: total,
		Params:        params,
	}, nil
}

// rankKey orders candidates by local prominence when the detection signal
// measured one, otherwise by intensity.
func rankKey(f features.Feature) float64 {
	if f.Prominence > 0 {
		return f.Prominence
	}

	return f.Intensity
}

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}

	return s / float64(len(v))
}
