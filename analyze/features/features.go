// Package features defines the unified feature record shared by the peak
// and shoulder detectors, and the merge and re-indexing logic that
// presents both kinds as one wavelength-ordered list.
//
// Provenance (the detection type) survives merging independently of the
// display numbering: the end user only ever sees "P1", "P2", ... but
// diagnostics and tests can still tell a shoulder from a traditional
// peak.
package features

import (
	"errors"
	"fmt"
	"sort"
)

// Type tags where a feature came from. It is never shown to the end user
// as a category label but is retained for diagnostics.
type Type string

// Detection provenance values.
const (
	TypeTraditionalPeak       Type = "traditional_peak"
	TypeShoulderPeak          Type = "shoulder_peak"
	TypeSensitiveShoulderPeak Type = "sensitive_shoulder_peak"
)

// ErrIndexOutOfRange is returned by Remove for an invalid position.
var ErrIndexOutOfRange = errors.New("features: index out of range")

// IsShoulder reports whether t is one of the shoulder provenance tags.
func (t Type) IsShoulder() bool {
	return t == TypeShoulderPeak || t == TypeSensitiveShoulderPeak
}

// Feature is one detected peak or shoulder in original intensity units.
type Feature struct {
	Wavelength float64
	Intensity  float64
	// DetectionType records provenance across merging.
	DetectionType Type
	// RankIndex is the 1-based position after sorting the selected subset
	// by wavelength; DisplayID is "P" + RankIndex.
	RankIndex int
	DisplayID string

	// Diagnostic fields, not part of the external identity contract.
	Prominence      float64
	CurvatureChange float64
	SlopeChange     float64
	Confidence      float64
	Method          string
	DataIndex       int
}

// Params echoes the detection parameters a Set was produced with.
type Params struct {
	Method      string
	MinHeight   float64
	MinDistance int
	Prominence  float64
	Sensitivity float64
	Smoothed    bool
}

// Set is the result of one detection run: a wavelength-ordered,
// re-indexable sequence of features plus aggregate counters. A Set never
// references its source curve.
type Set struct {
	Features []Feature

	// TraditionalCount and ShoulderCount count the features included
	// after truncation; TotalDetected counts all candidates found before
	// truncation.
	TraditionalCount int
	ShoulderCount    int
	TotalDetected    int

	// Forced marks a last-resort detection whose output may include
	// noise. Callers should surface it to the user.
	Forced bool

	Params Params
}

// NumFound returns the number of features included in the set.
func (s Set) NumFound() int { return len(s.Features) }

// First returns the feature ranked P1, if any.
func (s Set) First() (Feature, bool) {
	if len(s.Features) < 1 {
		return Feature{}, false
	}

	return s.Features[0], true
}

// Third returns the feature ranked P3, if any.
func (s Set) Third() (Feature, bool) {
	if len(s.Features) < 3 {
		return Feature{}, false
	}

	return s.Features[2], true
}

// Remove returns a copy of the set without the feature at position k
// (0-based position in the current wavelength order), renumbered so the
// remaining ranks are again exactly 1..N-1. Removal is terminal: the set
// it returns carries no memory of the removed entry.
func (s Set) Remove(k int) (Set, error) {
	if k < 0 || k >= len(s.Features) {
		return Set{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, k, len(s.Features))
	}

	remaining := make([]Feature, 0, len(s.Features)-1)
	remaining = append(remaining, s.Features[:k]...)
	remaining = append(remaining, s.Features[k+1:]...)

	out := s
	out.Features = Renumber(remaining)
	out.TraditionalCount, out.ShoulderCount = countTypes(out.Features)

	return out, nil
}

// Merge combines peak and shoulder candidates into a single set ordered
// by ascending wavelength, truncated to maxTotal, with unified 1-based
// ranks and "P" display identifiers regardless of the original detection
// type. A negative maxTotal keeps every candidate; zero keeps none.
// Merging the same inputs twice yields identical output.
func Merge(peakSet, shoulderSet Set, maxTotal int) Set {
	all := make([]Feature, 0, len(peakSet.Features)+len(shoulderSet.Features))
	all = append(all, peakSet.Features...)
	all = append(all, shoulderSet.Features...)

	all = Renumber(all)
	if maxTotal >= 0 && len(all) > maxTotal {
		all = Renumber(all[:maxTotal])
	}

	out := Set{
		Features:      all,
		TotalDetected: len(peakSet.Features) + len(shoulderSet.Features),
		Forced:        peakSet.Forced || shoulderSet.Forced,
		Params: Params{
			Method:      "combined",
			Sensitivity: shoulderSet.Params.Sensitivity,
		},
	}
	out.TraditionalCount, out.ShoulderCount = countTypes(out.Features)

	return out
}

// Renumber sorts features by ascending wavelength and assigns 1-based
// rank indices and display identifiers. The input slice is not modified.
func Renumber(fs []Feature) []Feature {
	out := append([]Feature(nil), fs...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Wavelength < out[b].Wavelength })

	for i := range out {
		out[i].RankIndex = i + 1
		out[i].DisplayID = fmt.Sprintf("P%d", i+1)
	}

	return out
}

func countTypes(fs []Feature) (traditional, shoulder int) {
	for _, f := range fs {
		if f.DetectionType.IsShoulder() {
			shoulder++
		} else {
			traditional++
		}
	}

	return traditional, shoulder
}
