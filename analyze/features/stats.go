package features

import "math"

// Summary holds aggregate statistics over a feature set.
type Summary struct {
	TotalFeatures int

	IntensityMax  float64
	IntensityMin  float64
	IntensityMean float64
	IntensityStd  float64

	WavelengthSpan float64
	WavelengthMean float64

	// FirstToThirdRatio and FirstToThirdSeparation compare the P1 and P3
	// features; both are zero when the set has fewer than three entries.
	FirstToThirdRatio      float64
	FirstToThirdSeparation float64
}

// Summarize computes aggregate statistics for a set. The second return
// value is false for an empty set.
func Summarize(s Set) (Summary, bool) {
	n := len(s.Features)
	if n == 0 {
		return Summary{}, false
	}

	out := Summary{
		TotalFeatures: n,
		IntensityMax:  math.Inf(-1),
		IntensityMin:  math.Inf(1),
	}

	var wlMin, wlMax = math.Inf(1), math.Inf(-1)

	var sumI, sumW float64
	for _, f := range s.Features {
		sumI += f.Intensity
		sumW += f.Wavelength

		out.IntensityMax = math.Max(out.IntensityMax, f.Intensity)
		out.IntensityMin = math.Min(out.IntensityMin, f.Intensity)
		wlMin = math.Min(wlMin, f.Wavelength)
		wlMax = math.Max(wlMax, f.Wavelength)
	}

	out.IntensityMean = sumI / float64(n)
	out.WavelengthMean = sumW / float64(n)
	out.WavelengthSpan = wlMax - wlMin

	var sq float64
	for _, f := range s.Features {
		d := f.Intensity - out.IntensityMean
		sq += d * d
	}

	out.IntensityStd = math.Sqrt(sq / float64(n))

	if first, ok := s.First(); ok {
		if third, ok := s.Third(); ok && third.Intensity != 0 {
			out.FirstToThirdRatio = first.Intensity / third.Intensity
			out.FirstToThirdSeparation = third.Wavelength - first.Wavelength
		}
	}

	return out, true
}
