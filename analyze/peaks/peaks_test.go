package peaks

import (
	"errors"
	"testing"

	"github.com/mmfiora/algo-spectra/analyze/features"
	"github.com/mmfiora/algo-spectra/curve"
	"github.com/mmfiora/algo-spectra/internal/testutil"
)

// Three well-separated Gaussian peaks of decreasing height.
func threePeakCurve() curve.Curve {
	return testutil.GaussianCurve(300, 550, 1,
		testutil.GaussianComponent{Center: 360, Amplitude: 800, Sigma: 8},
		testutil.GaussianComponent{Center: 420, Amplitude: 500, Sigma: 8},
		testutil.GaussianComponent{Center: 480, Amplitude: 300, Sigma: 8},
	)
}

func TestDetectThreeSeparatedPeaks(t *testing.T) {
	set, err := Detect(threePeakCurve(), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if set.NumFound() != 3 {
		t.Fatalf("found %d peaks, want 3", set.NumFound())
	}

	want := []float64{360, 420, 480}
	for i, f := range set.Features {
		testutil.RequireNear(t, f.DisplayID+" wavelength", f.Wavelength, want[i], 2)

		if f.RankIndex != i+1 {
			t.Errorf("rank %d, want %d", f.RankIndex, i+1)
		}

		if f.DetectionType != features.TypeTraditionalPeak {
			t.Errorf("type %s, want traditional_peak", f.DetectionType)
		}
	}

	if set.Forced {
		t.Error("standard detection carries the forced flag")
	}
}

func TestDetectSortsUnorderedInput(t *testing.T) {
	c := threePeakCurve()

	// Reverse the sample order; detection must re-sort by wavelength.
	n := c.Len()
	rx := make([]float64, n)
	ry := make([]float64, n)
	for i := range rx {
		rx[i] = c.X[n-1-i]
		ry[i] = c.Y[n-1-i]
	}

	set, err := Detect(curve.Curve{X: rx, Y: ry}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if set.NumFound() != 3 {
		t.Fatalf("found %d peaks on reversed input, want 3", set.NumFound())
	}

	testutil.RequireNear(t, "P1 wavelength", set.Features[0].Wavelength, 360, 2)
}

func TestDetectTruncatesByWavelength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPeaks = 2

	set, err := Detect(threePeakCurve(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if set.NumFound() != 2 {
		t.Fatalf("found %d peaks, want 2", set.NumFound())
	}

	// Truncation keeps the lowest wavelengths, not the most prominent.
	testutil.RequireNear(t, "P1", set.Features[0].Wavelength, 360, 2)
	testutil.RequireNear(t, "P2", set.Features[1].Wavelength, 420, 2)

	if set.TotalDetected != 3 {
		t.Errorf("TotalDetected = %d, want 3", set.TotalDetected)
	}
}

func TestDetectFlatCurve(t *testing.T) {
	set, err := Detect(testutil.FlatCurve(300, 500, 1, 42), DefaultConfig())
	if err != nil {
		t.Fatalf("flat curve must not error: %v", err)
	}

	if set.NumFound() != 0 {
		t.Fatalf("found %d peaks on a flat curve, want 0", set.NumFound())
	}
}

func TestDetectTooFewSamples(t *testing.T) {
	c := curve.Curve{
		X: []float64{1, 2, 3, 4, 5},
		Y: []float64{1, 5, 1, 4, 1},
	}

	_, err := Detect(c, DefaultConfig())
	if !errors.Is(err, curve.ErrValidation) {
		t.Fatalf("error = %v, want a validation error", err)
	}
}

func TestDetectTierForceCarriesWarning(t *testing.T) {
	set, err := DetectTier(threePeakCurve(), 3, TierForce)
	if err != nil {
		t.Fatal(err)
	}

	if !set.Forced {
		t.Error("force tier result does not carry the forced flag")
	}

	if set.Params.Method != "force_detect" {
		t.Errorf("method = %q, want force_detect", set.Params.Method)
	}
}

// A weak bump on a broad pedestal: its prominence (~0.24 of a range of
// ~100) falls below the standard fraction (0.3) but well above the
// sensitive one, so only the cascade recovers it.
func pedestalCurve() curve.Curve {
	return testutil.GaussianCurve(300, 550, 1,
		testutil.GaussianComponent{Center: 400, Amplitude: 100, Sigma: 10},
		testutil.GaussianComponent{Center: 460, Amplitude: 0.6, Sigma: 60},
		testutil.GaussianComponent{Center: 460, Amplitude: 0.22, Sigma: 2},
	)
}

func TestDetectAdaptiveEscalates(t *testing.T) {
	c := pedestalCurve()

	standard, err := DetectTier(c, 2, TierStandard)
	if err != nil {
		t.Fatal(err)
	}

	if standard.NumFound() != 1 {
		t.Fatalf("standard tier found %d peaks, want only the main one", standard.NumFound())
	}

	adaptive, err := DetectAdaptive(c, 2)
	if err != nil {
		t.Fatal(err)
	}

	if adaptive.NumFound() != 2 {
		t.Fatalf("adaptive cascade found %d peaks, want 2", adaptive.NumFound())
	}

	if adaptive.Params.Method != "sensitive" {
		t.Errorf("accepted tier = %q, want sensitive", adaptive.Params.Method)
	}

	if adaptive.Forced {
		t.Error("cascade flagged forced without using the force tier")
	}

	testutil.RequireNear(t, "recovered peak", adaptive.Features[1].Wavelength, 460, 2)
}

func TestDetectAdaptiveKeepsConservativeResult(t *testing.T) {
	// Two clean peaks, three requested: escalation cannot increase the
	// count, so the standard result must be retained without warning.
	c := testutil.GaussianCurve(300, 500, 1,
		testutil.GaussianComponent{Center: 370, Amplitude: 800, Sigma: 8},
		testutil.GaussianComponent{Center: 430, Amplitude: 600, Sigma: 8},
	)

	set, err := DetectAdaptive(c, 3)
	if err != nil {
		t.Fatal(err)
	}

	if set.NumFound() != 2 {
		t.Fatalf("found %d peaks, want 2", set.NumFound())
	}

	if set.Params.Method != "standard" {
		t.Errorf("method = %q, want standard", set.Params.Method)
	}

	if set.Forced {
		t.Error("forced flag set although the force tier result was not accepted")
	}
}

func TestDetectAdaptiveMonotonic(t *testing.T) {
	for _, c := range []curve.Curve{threePeakCurve(), pedestalCurve()} {
		standard, err := DetectTier(c, 5, TierStandard)
		if err != nil {
			t.Fatal(err)
		}

		adaptive, err := DetectAdaptive(c, 5)
		if err != nil {
			t.Fatal(err)
		}

		if adaptive.NumFound() < standard.NumFound() {
			t.Errorf("adaptive found %d < standard %d", adaptive.NumFound(), standard.NumFound())
		}
	}
}

func TestDetectReportsOriginalIntensity(t *testing.T) {
	c := threePeakCurve()

	cfg := DefaultConfig()
	cfg.Smooth = true
	cfg.WindowLength = 5

	set, err := Detect(c, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if !set.Params.Smoothed {
		t.Fatal("smoothing was requested but not applied")
	}

	for _, f := range set.Features {
		if f.Intensity != c.Y[f.DataIndex] {
			t.Errorf("%s intensity %v differs from original sample %v", f.DisplayID, f.Intensity, c.Y[f.DataIndex])
		}
	}
}
