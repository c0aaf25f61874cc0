// Package peaks finds traditional peaks in spectral curves: local maxima
// satisfying height, prominence, distance and width conditions, with an
// escalating cascade of sensitivity tiers for curves whose weaker peaks
// the standard preset misses.
package peaks

import (
	"fmt"
	"math"
	"sort"

	"github.com/mmfiora/algo-spectra/analyze/features"
	"github.com/mmfiora/algo-spectra/curve"
	"github.com/mmfiora/algo-spectra/dsp/findpeaks"
	"github.com/mmfiora/algo-spectra/dsp/savgol"
)

// Default detection parameters. The numeric fractions are empirically
// tuned against instrument data; override them through Config rather
// than relying on their optimality.
const (
	DefaultMaxPeaks = 3

	defaultMinDistance    = 2
	defaultProminenceFrac = 0.003
	defaultMinWidth       = 1
	defaultWindowLength   = 3
	savgolOrder           = 2

	// MinSamples is the smallest curve a reliable local-maximum search
	// accepts.
	MinSamples = 10

	heightQuantile  = 0.05
	heightRangeFrac = 0.005

	// prominenceQuantum keeps the absolute prominence floor from
	// degenerating to zero on flat or tiny-range curves.
	prominenceQuantum = 1e-6

	// Last-resort preset. May classify noise as peaks.
	forceProminenceFrac = 1e-6
	forceHeightFrac     = 1e-4
)

// Tier selects one preset of the escalating sensitivity cascade.
type Tier int

// Cascade tiers in escalation order.
const (
	TierStandard Tier = iota
	TierSensitive
	TierUltraSensitive
	TierForce
)

// String returns the tier name used in result provenance.
func (t Tier) String() string {
	switch t {
	case TierStandard:
		return "standard"
	case TierSensitive:
		return "sensitive"
	case TierUltraSensitive:
		return "ultra_sensitive"
	case TierForce:
		return "force_detect"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Config holds the parameters of one detection pass.
type Config struct {
	// MaxPeaks limits how many peaks are kept, counted from the lowest
	// wavelength. Zero or negative selects DefaultMaxPeaks.
	MaxPeaks int
	// MinHeight overrides the automatic height floor (5th intensity
	// percentile plus a small fraction of the range). Zero or NaN keeps
	// the automatic floor.
	MinHeight float64
	// MinDistance is the minimum separation between peaks in samples.
	MinDistance int
	// ProminenceFrac is the minimum prominence as a fraction of the
	// intensity range.
	ProminenceFrac float64
	// MinWidth is the minimum peak width in samples.
	MinWidth float64
	// Smooth applies a small Savitzky-Golay filter before the search.
	// Off by default to preserve small peaks; reported intensities are
	// always the original values.
	Smooth bool
	// WindowLength is the smoothing window (forced odd). Zero selects
	// the default.
	WindowLength int

	// forceFloor lowers the height floor to just above the minimum, for
	// the last-resort tier only.
	forceFloor bool
}

// DefaultConfig returns the standard-tier configuration.
func DefaultConfig() Config {
	return Config{
		MaxPeaks:       DefaultMaxPeaks,
		MinHeight:      math.NaN(),
		MinDistance:    defaultMinDistance,
		ProminenceFrac: defaultProminenceFrac,
		MinWidth:       defaultMinWidth,
		WindowLength:   defaultWindowLength,
	}
}

func normalizeConfig(cfg Config) Config {
	if cfg.MaxPeaks <= 0 {
		cfg.MaxPeaks = DefaultMaxPeaks
	}

	if cfg.MinHeight == 0 {
		cfg.MinHeight = math.NaN()
	}

	if cfg.MinDistance < 1 {
		cfg.MinDistance = 1
	}

	if cfg.MinWidth <= 0 {
		cfg.MinWidth = defaultMinWidth
	}

	if cfg.WindowLength <= 0 {
		cfg.WindowLength = defaultWindowLength
	}

	if cfg.WindowLength%2 == 0 {
		cfg.WindowLength++
	}

	return cfg
}

// tierConfig returns the preset for one cascade tier.
func tierConfig(t Tier, maxPeaks int) Config {
	cfg := DefaultConfig()
	cfg.MaxPeaks = maxPeaks

	switch t {
	case TierSensitive:
		cfg.ProminenceFrac = 0.0001
		cfg.MinDistance = 1
	case TierUltraSensitive:
		cfg.ProminenceFrac = 0.00001
		cfg.MinDistance = 1
	case TierForce:
		cfg.ProminenceFrac = forceProminenceFrac
		cfg.MinDistance = 1
		cfg.forceFloor = true
	default:
	}

	return cfg
}

// Detect runs a single detection pass with explicit parameters and
// returns the qualifying peaks sorted by ascending wavelength, truncated
// to MaxPeaks and ranked 1..N in that order. Selection is by position
// after truncation, never by prominence rank, so the lowest-wavelength
// peaks are always P1, P2, P3.
func Detect(c curve.Curve, cfg Config) (features.Set, error) {
	cfg = normalizeConfig(cfg)

	if err := validate(c); err != nil {
		return features.Set{}, err
	}

	sorted := c.SortByX()
	n := sorted.Len()

	working := sorted.Y
	smoothed := false

	if cfg.Smooth && n >= cfg.WindowLength {
		if sm, err := savgol.Filter(sorted.Y, cfg.WindowLength, savgolOrder); err == nil {
			working = sm
			smoothed = true
		}
	}

	minY, maxY := minMax(working)
	rng := maxY - minY

	floor := cfg.MinHeight
	switch {
	case cfg.forceFloor:
		floor = minY + forceHeightFrac*rng
	case math.IsNaN(floor):
		floor = quantile(working, heightQuantile) + heightRangeFrac*rng
	}

	absProminence := math.Max(cfg.ProminenceFrac*rng, prominenceQuantum)

	found := findpeaks.Find(working, findpeaks.Params{
		Height:     floor,
		Distance:   cfg.MinDistance,
		Prominence: absProminence,
		Width:      cfg.MinWidth,
		PlateauMin: 1,
		Wlen:       prominenceWlen(n),
	})

	candidates := make([]features.Feature, len(found))
	for i, pk := range found {
		candidates[i] = features.Feature{
			Wavelength:    sorted.X[pk.Index],
			Intensity:     sorted.Y[pk.Index], // original, never smoothed
			DetectionType: features.TypeTraditionalPeak,
			Prominence:    pk.Prominence,
			DataIndex:     pk.Index,
		}
	}

	candidates = features.Renumber(candidates)
	if len(candidates) > cfg.MaxPeaks {
		candidates = features.Renumber(candidates[:cfg.MaxPeaks])
	}

	set := features.Set{
		Features:         candidates,
		TraditionalCount: len(candidates),
		TotalDetected:    len(found),
		Forced:           cfg.forceFloor,
		Params: features.Params{
			MinHeight:   floor,
			MinDistance: cfg.MinDistance,
			Prominence:  absProminence,
			Smoothed:    smoothed,
		},
	}

	return set, nil
}

// DetectTier runs one cascade preset.
func DetectTier(c curve.Curve, maxPeaks int, tier Tier) (features.Set, error) {
	if maxPeaks <= 0 {
		maxPeaks = DefaultMaxPeaks
	}

	set, err := Detect(c, tierConfig(tier, maxPeaks))
	if err != nil {
		return features.Set{}, err
	}

	set.Params.Method = tier.String()

	return set, nil
}

// DetectAdaptive runs the sensitivity cascade: standard first, then each
// more permissive tier while fewer than maxPeaks peaks are found. A tier
// is accepted only when it strictly increases the found count, so the
// most conservative result that reached the best count wins. The
// last-resort tier's result carries the Forced warning flag.
func DetectAdaptive(c curve.Curve, maxPeaks int) (features.Set, error) {
	if maxPeaks <= 0 {
		maxPeaks = DefaultMaxPeaks
	}

	best, err := DetectTier(c, maxPeaks, TierStandard)
	if err != nil {
		return features.Set{}, err
	}

	for _, tier := range []Tier{TierSensitive, TierUltraSensitive, TierForce} {
		if best.NumFound() >= maxPeaks {
			break
		}

		next, err := DetectTier(c, maxPeaks, tier)
		if err != nil {
			return features.Set{}, err
		}

		if next.NumFound() > best.NumFound() {
			best = next
		}
	}

	return best, nil
}

func validate(c curve.Curve) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Len() < MinSamples {
		return fmt.Errorf("%w: need at least %d samples for peak analysis, got %d",
			curve.ErrValidation, MinSamples, c.Len())
	}

	return nil
}

// prominenceWlen bounds the prominence valley search to a window scaled
// with the curve length.
func prominenceWlen(n int) int {
	w := n / 6
	if w < 11 {
		w = 11
	}

	if w > 61 {
		w = 61
	}

	return w
}

// quantile returns the q-quantile of v using linear interpolation
// between order statistics.
func quantile(v []float64, q float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)

	pos := q * float64(len(s)-1)
	lo := int(pos)

	if lo+1 >= len(s) {
		return s[len(s)-1]
	}

	frac := pos - float64(lo)

	return s[lo]*(1-frac) + s[lo+1]*frac
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
