package shoulders

import (
	"errors"
	"math"
	"testing"

	"github.com/mmfiora/algo-spectra/analyze/features"
	"github.com/mmfiora/algo-spectra/curve"
	"github.com/mmfiora/algo-spectra/internal/testutil"
)

// shoulderCurve has a dominant band at 400 and an unresolved companion
// at 375 that never forms a local maximum of its own; it only flattens
// the left flank.
func shoulderCurve(t *testing.T) curve.Curve {
	t.Helper()

	x := testutil.Grid(300, 500, 1)
	y := testutil.GaussianMix(x,
		testutil.GaussianComponent{Center: 400, Amplitude: 800, Sigma: 12},
		testutil.GaussianComponent{Center: 375, Amplitude: 150, Sigma: 4},
	)

	c, err := curve.New(x, y)
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}

	return c
}

// resolvedCurve has two well separated bands and no shoulder structure.
func resolvedCurve(t *testing.T) curve.Curve {
	t.Helper()

	x := testutil.Grid(300, 500, 1)
	y := testutil.GaussianMix(x,
		testutil.GaussianComponent{Center: 370, Amplitude: 800, Sigma: 8},
		testutil.GaussianComponent{Center: 430, Amplitude: 600, Sigma: 8},
	)

	c, err := curve.New(x, y)
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}

	return c
}

func TestDetectFindsFlankShoulder(t *testing.T) {
	c := shoulderCurve(t)

	set, err := Detect(c, DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if set.NumFound() != 1 {
		t.Fatalf("NumFound = %d, want 1 (%+v)", set.NumFound(), set.Features)
	}

	f := set.Features[0]
	if math.Abs(f.Wavelength-375) > 5 {
		t.Errorf("shoulder wavelength = %g, want within 5 of 375", f.Wavelength)
	}

	if f.DetectionType != features.TypeShoulderPeak {
		t.Errorf("DetectionType = %q, want %q", f.DetectionType, features.TypeShoulderPeak)
	}

	if f.RankIndex != 1 || f.DisplayID != "P1" {
		t.Errorf("rank = %d/%q, want 1/P1", f.RankIndex, f.DisplayID)
	}

	if f.Prominence <= 0 {
		t.Errorf("Prominence = %g, want > 0", f.Prominence)
	}
}

func TestDetectExcludesMainPeakZone(t *testing.T) {
	c := shoulderCurve(t)

	set, err := Detect(c, DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	for _, f := range set.Features {
		if math.Abs(f.Wavelength-400) <= DefaultExclusionRadius {
			t.Errorf("shoulder at %g lies inside the exclusion zone around 400", f.Wavelength)
		}
	}
}

func TestDetectResolvedBandsYieldNoShoulders(t *testing.T) {
	c := resolvedCurve(t)

	set, err := Detect(c, DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if set.NumFound() != 0 {
		t.Fatalf("NumFound = %d, want 0 (%+v)", set.NumFound(), set.Features)
	}
}

func TestDetectFallbackTagsSensitiveType(t *testing.T) {
	c := shoulderCurve(t)

	// A threshold this high rejects the flank point on the first pass;
	// the automatic retry at the fallback sensitivity recovers it.
	set, err := Detect(c, Config{Sensitivity: 0.4})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if set.NumFound() != 1 {
		t.Fatalf("NumFound = %d, want 1 from fallback pass", set.NumFound())
	}

	f := set.Features[0]
	if f.DetectionType != features.TypeSensitiveShoulderPeak {
		t.Errorf("DetectionType = %q, want %q", f.DetectionType, features.TypeSensitiveShoulderPeak)
	}

	if math.Abs(f.Wavelength-375) > 5 {
		t.Errorf("fallback wavelength = %g, want within 5 of 375", f.Wavelength)
	}
}

func TestDetectKnownPeaksSuppress(t *testing.T) {
	c := shoulderCurve(t)

	cfg := DefaultConfig()
	cfg.KnownPeaks = []float64{378}

	set, err := Detect(c, cfg)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if set.NumFound() != 0 {
		t.Fatalf("NumFound = %d, want 0 with the shoulder region excluded", set.NumFound())
	}
}

func TestDetectFlatCurve(t *testing.T) {
	c := testutil.FlatCurve(300, 500, 1, 42)

	set, err := Detect(c, DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if set.NumFound() != 0 {
		t.Fatalf("NumFound = %d, want 0 on flat input", set.NumFound())
	}
}

func TestDetectTinyCurve(t *testing.T) {
	c, err := curve.New([]float64{1, 2, 3}, []float64{1, 5, 1})
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}

	set, err := Detect(c, DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if set.NumFound() != 0 {
		t.Fatalf("NumFound = %d, want 0 for undersized input", set.NumFound())
	}
}

func TestDetectEmptyCurveErrors(t *testing.T) {
	_, err := Detect(curve.Curve{}, DefaultConfig())
	if !errors.Is(err, curve.ErrValidation) {
		t.Fatalf("err = %v, want curve.ErrValidation", err)
	}
}

func TestDetectExtreme(t *testing.T) {
	c := shoulderCurve(t)

	set, err := DetectExtreme(c, 5)
	if err != nil {
		t.Fatalf("DetectExtreme: %v", err)
	}

	if set.NumFound() != 1 {
		t.Fatalf("NumFound = %d, want 1 (%+v)", set.NumFound(), set.Features)
	}

	if got := set.Features[0].Wavelength; got != 400 {
		t.Errorf("wavelength = %g, want 400 (the only true local maximum)", got)
	}
}
