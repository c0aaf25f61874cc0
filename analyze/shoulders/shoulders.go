// Package shoulders finds shoulder peaks: local maxima riding the flank
// of a stronger peak, which fail standard prominence tests precisely
// because they overlap that peak.
//
// The detector first derives exclusion zones around unmistakable
// traditional peaks with an intentionally strict pass, then searches only
// outside those zones using two signals: permissive local maxima with a
// very low local-prominence floor, and first-derivative zero crossings or
// near-zero flank regions. Candidates from both signals are deduplicated
// by wavelength separation, keeping the higher prominence.
package shoulders

import (
	"math"
	"sort"

	"github.com/mmfiora/algo-spectra/analyze/features"
	"github.com/mmfiora/algo-spectra/curve"
	"github.com/mmfiora/algo-spectra/dsp/findpeaks"
	"github.com/mmfiora/algo-spectra/dsp/gradient"
	"github.com/mmfiora/algo-spectra/dsp/savgol"
)

// Tuned defaults. The exclusion radius and the sensitivity fractions are
// empirical constants carried over from instrument calibration; they are
// configuration defaults, not validated optima.
const (
	DefaultMaxFeatures = 5
	DefaultSensitivity = 0.05

	// FallbackSensitivity is the single more permissive retry used when
	// a pass finds nothing.
	FallbackSensitivity = 0.02

	DefaultExclusionRadius = 6.0
	DefaultDedupSeparation = 2.0

	defaultMinProminenceFrac = 0.001

	// Strict exclusion-zone pass: only unmistakable peaks suppress
	// shoulder search nearby.
	exclusionHeightFrac     = 0.2
	exclusionProminenceFrac = 0.1
	exclusionDistance       = 10
	exclusionMinWidth       = 2

	smoothWindow = 5
	smoothOrder  = 2
	localWindow  = 5

	// derivZeroFrac classifies a flank point as near-flat when the
	// derivative magnitude falls below this fraction of its standard
	// deviation. Calibrated so a shoulder five times weaker than its
	// host band still flattens the flank below the floor, while plain
	// Gaussian flanks stay well above it.
	derivZeroFrac = 0.2

	// minUsableSamples is the smallest sample count (outside exclusion
	// zones) worth searching; below it the detector reports zero
	// shoulders rather than erroring.
	minUsableSamples = 5
)

// Config holds the shoulder search parameters.
type Config struct {
	// MaxFeatures limits how many shoulders are kept, ranked by local
	// prominence before the final wavelength ordering.
	MaxFeatures int
	// Sensitivity scales the minimum intensity a candidate must reach
	// above the curve minimum, as a fraction of the intensity range.
	// Lower values are more sensitive.
	Sensitivity float64
	// MinProminenceFrac is the local-prominence floor as a fraction of
	// the intensity range.
	MinProminenceFrac float64
	// ExclusionRadius is the half-width, in wavelength units, of the
	// zone suppressed around each confident traditional peak.
	ExclusionRadius float64
	// DedupSeparation is the minimum wavelength separation between kept
	// candidates; the higher-prominence one survives.
	DedupSeparation float64
	// KnownPeaks adds exclusion zones around externally detected peak
	// wavelengths, on top of the detector's own strict pass.
	KnownPeaks []float64
}

// DefaultConfig returns the default shoulder search configuration.
func DefaultConfig() Config {
	return Config{
		MaxFeatures:       DefaultMaxFeatures,
		Sensitivity:       DefaultSensitivity,
		MinProminenceFrac: defaultMinProminenceFrac,
		ExclusionRadius:   DefaultExclusionRadius,
		DedupSeparation:   DefaultDedupSeparation,
	}
}

func normalizeConfig(cfg Config) Config {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = DefaultMaxFeatures
	}

	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = DefaultSensitivity
	}

	if cfg.MinProminenceFrac <= 0 {
		cfg.MinProminenceFrac = defaultMinProminenceFrac
	}

	if cfg.ExclusionRadius <= 0 {
		cfg.ExclusionRadius = DefaultExclusionRadius
	}

	if cfg.DedupSeparation <= 0 {
		cfg.DedupSeparation = DefaultDedupSeparation
	}

	return cfg
}

type zone struct{ lo, hi float64 }

func inZone(zones []zone, wl float64) bool {
	for _, z := range zones {
		if wl >= z.lo && wl <= z.hi {
			return true
		}
	}

	return false
}

// Detect searches the curve for shoulders outside exclusion zones. When
// the pass finds nothing at the requested sensitivity, one automatic
// retry at FallbackSensitivity runs; its results are tagged as sensitive
// shoulder peaks. Curves too small to search yield an empty set, not an
// error.
func Detect(c curve.Curve, cfg Config) (features.Set, error) {
	cfg = normalizeConfig(cfg)

	set, err := detect(c, cfg, features.TypeShoulderPeak)
	if err != nil || set.NumFound() > 0 {
		return set, err
	}

	if cfg.Sensitivity <= FallbackSensitivity {
		return set, nil
	}

	retry := cfg
	retry.Sensitivity = FallbackSensitivity

	return detect(c, retry, features.TypeSensitiveShoulderPeak)
}

func detect(c curve.Curve, cfg Config, typ features.Type) (features.Set, error) {
	params := features.Params{
		Method:      "shoulder_exclusion",
		Sensitivity: cfg.Sensitivity,
		Prominence:  cfg.MinProminenceFrac,
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

	minY, maxY := minMax(sorted.Y)
	rng := maxY - minY

	if rng == 0 {
		// Flat curve: no feature can be significant.
		return empty, nil
	}

	zones := exclusionZones(sorted, cfg, minY, rng)

	usable := 0
	for _, wl := range sorted.X {
		if !inZone(zones, wl) {
			usable++
		}
	}

	if usable < minUsableSamples {
		return empty, nil
	}

	smoothed := sorted.Y
	if n >= smoothWindow {
		if sm, err := savgol.Filter(sorted.Y, smoothWindow, smoothOrder); err == nil {
			smoothed = sm
		}
	}

	minIntensity := minY + cfg.Sensitivity*rng
	minProminence := cfg.MinProminenceFrac * rng

	var candidates []features.Feature

	// Signal 1: permissive local maxima of the raw curve.
	for i := 3; i < n-3; i++ {
		wl := sorted.X[i]
		if inZone(zones, wl) {
			continue
		}

		y := sorted.Y
		if !(y[i] >= y[i-1] && y[i] >= y[i+1] && y[i] >= y[i-2] && y[i] >= y[i+2]) {
			continue
		}

		if y[i] < minIntensity {
			continue
		}

		prom := y[i] - windowMin(y, i, localWindow)
		if prom < minProminence {
			continue
		}

		candidates = append(candidates, features.Feature{
			Wavelength:    wl,
			Intensity:     y[i],
			DetectionType: typ,
			Prominence:    prom,
			DataIndex:     i,
			Method:        "local_maximum",
		})
	}

	// Signal 2: first-derivative zero crossings and near-flat flank
	// regions of the smoothed curve.
	if deriv, err := gradient.Compute(smoothed, sorted.X); err == nil {
		flatFloor := derivZeroFrac * stddev(deriv)

		for i := 5; i < n-5; i++ {
			wl := sorted.X[i]
			if inZone(zones, wl) {
				continue
			}

			zeroCross := deriv[i-1] > 0 && deriv[i+1] < 0
			nearFlat := math.Abs(deriv[i]) < flatFloor

			if !zeroCross && !nearFlat {
				continue
			}

			if sorted.Y[i] < minIntensity {
				continue
			}

			prom := sorted.Y[i] - windowMin(sorted.Y, i, localWindow)
			if prom <= minProminence {
				continue
			}

			candidates = append(candidates, features.Feature{
				Wavelength:    wl,
				Intensity:     sorted.Y[i],
				DetectionType: typ,
				Prominence:    prom,
				SlopeChange:   deriv[i],
				DataIndex:     i,
				Method:        "derivative_zero_cross",
			})
		}
	}

	selected := dedupByProminence(candidates, cfg.DedupSeparation)
	total := len(selected)

	if len(selected) > cfg.MaxFeatures {
		selected = selected[:cfg.MaxFeatures]
	}

	set := features.Set{
		Features:      features.Renumber(selected),
		ShoulderCount: len(selected),
		TotalDetected: total,
		Params:        params,
	}

	return set, nil
}

// DetectExtreme treats almost any local maximum as a shoulder candidate.
// Intended for manual diagnostic use only; it is never part of the
// default detection path.
func DetectExtreme(c curve.Curve, maxFeatures int) (features.Set, error) {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}

	params := features.Params{Method: "extreme_local_max", Sensitivity: DefaultSensitivity}

	if err := c.Validate(); err != nil {
		return features.Set{}, err
	}

	sorted := c.SortByX()
	n := sorted.Len()

	if n < minUsableSamples {
		return features.Set{Params: params}, nil
	}

	minY, maxY := minMax(sorted.Y)
	rng := maxY - minY

	if rng == 0 {
		return features.Set{Params: params}, nil
	}

	minIntensity := minY + 0.05*rng
	minProminence := 0.02 * rng

	var candidates []features.Feature

	for i := 2; i < n-2; i++ {
		y := sorted.Y
		if !(y[i] >= y[i-1] && y[i] >= y[i+1]) {
			continue
		}

		if y[i] < minIntensity {
			continue
		}

		prom := y[i] - windowMin(y, i, localWindow)
		if prom <= minProminence {
			continue
		}

		candidates = append(candidates, features.Feature{
			Wavelength:    sorted.X[i],
			Intensity:     y[i],
			DetectionType: features.TypeShoulderPeak,
			Prominence:    prom,
			DataIndex:     i,
			Method:        "extreme_local_max",
		})
	}

	selected := dedupByProminence(candidates, 3)
	total := len(selected)

	if len(selected) > maxFeatures {
		selected = selected[:maxFeatures]
	}

	return features.Set{
		Features:      features.Renumber(selected),
		ShoulderCount: len(selected),
		TotalDetected: total,
		Params:        params,
	}, nil
}

// exclusionZones derives suppression intervals around unmistakable
// traditional peaks, plus any caller-supplied known peaks. The pass is
// deliberately stricter than the main peak cascade.
func exclusionZones(sorted curve.Curve, cfg Config, minY, rng float64) []zone {
	found := findpeaks.Find(sorted.Y, findpeaks.Params{
		Height:     minY + exclusionHeightFrac*rng,
		Distance:   exclusionDistance,
		Prominence: exclusionProminenceFrac * rng,
		Width:      exclusionMinWidth,
		PlateauMin: 1,
	})

	zones := make([]zone, 0, len(found)+len(cfg.KnownPeaks))
	for _, pk := range found {
		wl := sorted.X[pk.Index]
		zones = append(zones, zone{wl - cfg.ExclusionRadius, wl + cfg.ExclusionRadius})
	}

	for _, wl := range cfg.KnownPeaks {
		zones = append(zones, zone{wl - cfg.ExclusionRadius, wl + cfg.ExclusionRadius})
	}

	return zones
}

// dedupByProminence sorts candidates by descending prominence and keeps
// each one only when no stronger kept candidate lies within sep
// wavelength units.
func dedupByProminence(candidates []features.Feature, sep float64) []features.Feature {
	out := append([]features.Feature(nil), candidates...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Prominence > out[b].Prominence })

	kept := make([]features.Feature, 0, len(out))
	for _, cand := range out {
		tooClose := false
		for _, k := range kept {
			if math.Abs(cand.Wavelength-k.Wavelength) < sep {
				tooClose = true

				break
			}
		}

		if !tooClose {
			kept = append(kept, cand)
		}
	}

	return kept
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

func stddev(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}

	var mean float64
	for _, x := range v {
		mean += x
	}

	mean /= float64(len(v))

	var sq float64
	for _, x := range v {
		d := x - mean
		sq += d * d
	}

	return math.Sqrt(sq / float64(len(v)))
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
