// Package combined runs the full feature search: the adaptive peak
// cascade first, then the shoulder detector with the found peaks
// excluded, merged into one wavelength-ordered set.
package combined

import (
	"github.com/mmfiora/algo-spectra/analyze/features"
	"github.com/mmfiora/algo-spectra/analyze/peaks"
	"github.com/mmfiora/algo-spectra/analyze/shoulders"
	"github.com/mmfiora/algo-spectra/curve"
)

const (
	// DefaultMaxTotal caps the merged result. Three features cover the
	// downstream ratio and separation metrics.
	DefaultMaxTotal = 3

	// Candidate caps for the two stages, wider than MaxTotal so the
	// merge step decides what survives.
	DefaultPeakCandidates     = 8
	DefaultShoulderCandidates = 5
)

// Config controls the combined search.
type Config struct {
	// MaxTotal is the size of the final merged set.
	MaxTotal int
	// PeakCandidates is the adaptive cascade's target before merging.
	PeakCandidates int
	// ShoulderCandidates bounds the shoulder stage before merging.
	ShoulderCandidates int
	// ShoulderSensitivity overrides the shoulder stage sensitivity when
	// positive.
	ShoulderSensitivity float64
}

// DefaultConfig returns the default combined search configuration.
func DefaultConfig() Config {
	return Config{
		MaxTotal:           DefaultMaxTotal,
		PeakCandidates:     DefaultPeakCandidates,
		ShoulderCandidates: DefaultShoulderCandidates,
	}
}

func normalizeConfig(cfg Config) Config {
	if cfg.MaxTotal <= 0 {
		cfg.MaxTotal = DefaultMaxTotal
	}

	if cfg.PeakCandidates <= 0 {
		cfg.PeakCandidates = DefaultPeakCandidates
	}

	if cfg.ShoulderCandidates <= 0 {
		cfg.ShoulderCandidates = DefaultShoulderCandidates
	}

	return cfg
}

// Detect runs both detection stages and merges their results. The
// traditional peaks found by the cascade become exclusion zones for the
// shoulder stage, so a shoulder can never duplicate a peak.
func Detect(c curve.Curve, cfg Config) (features.Set, error) {
	cfg = normalizeConfig(cfg)

	peakSet, err := peaks.DetectAdaptive(c, cfg.PeakCandidates)
	if err != nil {
		return features.Set{}, err
	}

	known := make([]float64, 0, peakSet.NumFound())
	for _, f := range peakSet.Features {
		known = append(known, f.Wavelength)
	}

	shoulderCfg := shoulders.DefaultConfig()
	shoulderCfg.MaxFeatures = cfg.ShoulderCandidates
	shoulderCfg.KnownPeaks = known

	if cfg.ShoulderSensitivity > 0 {
		shoulderCfg.Sensitivity = cfg.ShoulderSensitivity
	}

	shoulderSet, err := shoulders.Detect(c, shoulderCfg)
	if err != nil {
		return features.Set{}, err
	}

	return features.Merge(peakSet, shoulderSet, cfg.MaxTotal), nil
}
