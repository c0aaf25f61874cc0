package combined

import (
	"errors"
	"math"
	"testing"

	"github.com/mmfiora/algo-spectra/curve"
	"github.com/mmfiora/algo-spectra/internal/testutil"
)

// blendCurve has a dominant band at 400 that hides a companion at 375
// on its left flank. The cascade alone reports one peak; the combined
// search recovers the companion as a shoulder.
func blendCurve(t *testing.T) curve.Curve {
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

func TestDetectMergesPeakAndShoulder(t *testing.T) {
	c := blendCurve(t)

	set, err := Detect(c, DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if set.NumFound() != 2 {
		t.Fatalf("NumFound = %d, want 2 (%+v)", set.NumFound(), set.Features)
	}

	if set.TraditionalCount != 1 || set.ShoulderCount != 1 {
		t.Errorf("counts = %d traditional / %d shoulder, want 1/1",
			set.TraditionalCount, set.ShoulderCount)
	}

	// Wavelength order: the shoulder sits left of the main band.
	first, second := set.Features[0], set.Features[1]

	if !first.DetectionType.IsShoulder() {
		t.Errorf("first feature type = %q, want a shoulder type", first.DetectionType)
	}

	if math.Abs(first.Wavelength-375) > 5 {
		t.Errorf("shoulder wavelength = %g, want within 5 of 375", first.Wavelength)
	}

	if second.DetectionType.IsShoulder() {
		t.Errorf("second feature type = %q, want a traditional peak", second.DetectionType)
	}

	if math.Abs(second.Wavelength-400) > 2 {
		t.Errorf("peak wavelength = %g, want within 2 of 400", second.Wavelength)
	}

	if first.RankIndex != 1 || second.RankIndex != 2 {
		t.Errorf("ranks = %d,%d, want 1,2", first.RankIndex, second.RankIndex)
	}

	if set.Params.Method != "combined" {
		t.Errorf("Method = %q, want combined", set.Params.Method)
	}
}

func TestDetectMaxTotalTruncates(t *testing.T) {
	c := blendCurve(t)

	cfg := DefaultConfig()
	cfg.MaxTotal = 1

	set, err := Detect(c, cfg)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if set.NumFound() != 1 {
		t.Fatalf("NumFound = %d, want 1", set.NumFound())
	}

	if got := set.Features[0].RankIndex; got != 1 {
		t.Errorf("RankIndex = %d, want 1 after truncation", got)
	}
}

func TestDetectSeparatedBands(t *testing.T) {
	x := testutil.Grid(300, 550, 1)
	y := testutil.GaussianMix(x,
		testutil.GaussianComponent{Center: 360, Amplitude: 800, Sigma: 8},
		testutil.GaussianComponent{Center: 420, Amplitude: 500, Sigma: 8},
		testutil.GaussianComponent{Center: 480, Amplitude: 300, Sigma: 8},
	)

	c, err := curve.New(x, y)
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}

	set, err := Detect(c, DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if set.NumFound() != 3 {
		t.Fatalf("NumFound = %d, want 3", set.NumFound())
	}

	if set.ShoulderCount != 0 {
		t.Errorf("ShoulderCount = %d, want 0 for fully resolved bands", set.ShoulderCount)
	}

	for i, want := range []float64{360, 420, 480} {
		if got := set.Features[i].Wavelength; math.Abs(got-want) > 2 {
			t.Errorf("feature %d wavelength = %g, want near %g", i, got, want)
		}
	}
}

func TestDetectPropagatesValidationError(t *testing.T) {
	c, err := curve.New([]float64{1, 2, 3}, []float64{1, 5, 1})
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}

	_, err = Detect(c, DefaultConfig())
	if !errors.Is(err, curve.ErrValidation) {
		t.Fatalf("err = %v, want curve.ErrValidation", err)
	}
}
