// Package findpeaks locates local maxima in sampled data under combined
// height, prominence, distance and width conditions.
//
// The search follows the classic approach: enumerate plateau-aware local
// maxima, then filter by height, enforce a minimum index distance keeping
// the higher maxima, and finally filter by prominence and by width
// measured at half prominence. Prominence is the height of a maximum
// above the higher of its two adjacent valley floors, optionally bounded
// by a search window.
package findpeaks

import (
	"math"
	"sort"
)

// Params holds the acceptance conditions for one search.
type Params struct {
	// Height is the minimum peak height. Set to math.Inf(-1) to disable;
	// zero is a real threshold.
	Height float64
	// Distance is the minimum index separation between kept peaks.
	// Values below 1 impose no separation.
	Distance int
	// Prominence is the minimum prominence. Zero keeps every maximum.
	Prominence float64
	// Width is the minimum peak width in samples, measured where the
	// signal crosses half the prominence below the peak.
	Width float64
	// PlateauMin is the minimum plateau length in samples; a strict
	// maximum has plateau length 1. Values below 1 default to 1.
	PlateauMin int
	// Wlen bounds the prominence search window in samples. Zero or
	// negative means unbounded.
	Wlen int
}

// Peak describes one accepted local maximum.
type Peak struct {
	Index       int     // sample index of the maximum (plateau midpoint)
	Height      float64 // y value at Index
	Prominence  float64
	LeftBase    int // index of the valley floor on the left
	RightBase   int // index of the valley floor on the right
	Width       float64
	PlateauSize int
}

// Find returns all local maxima of y satisfying p, ordered by ascending
// index. Inputs shorter than three samples have no interior maxima.
func Find(y []float64, p Params) []Peak {
	peaks := localMaxima(y)

	plateauMin := p.PlateauMin
	if plateauMin < 1 {
		plateauMin = 1
	}

	kept := peaks[:0]
	for _, pk := range peaks {
		if pk.PlateauSize < plateauMin {
			continue
		}

		if !math.IsInf(p.Height, -1) && !math.IsNaN(p.Height) && pk.Height < p.Height {
			continue
		}

		kept = append(kept, pk)
	}

	peaks = kept

	if p.Distance > 1 {
		peaks = filterByDistance(peaks, p.Distance)
	}

	out := peaks[:0]
	for _, pk := range peaks {
		pk.Prominence, pk.LeftBase, pk.RightBase = prominence(y, pk.Index, p.Wlen)
		if pk.Prominence < p.Prominence {
			continue
		}

		pk.Width = widthAt(y, pk, 0.5)
		if pk.Width < p.Width {
			continue
		}

		out = append(out, pk)
	}

	return out
}

// localMaxima finds all strict local maxima, treating flat plateaus as a
// single maximum at the plateau midpoint. Plateaus touching either end of
// the data never qualify.
func localMaxima(y []float64) []Peak {
	var peaks []Peak

	n := len(y)
	i := 1

	for i < n-1 {
		if y[i-1] >= y[i] {
			i++
			continue
		}

		ahead := i + 1
		for ahead < n-1 && y[ahead] == y[i] {
			ahead++
		}

		if y[ahead] < y[i] {
			left, right := i, ahead-1
			mid := (left + right) / 2
			peaks = append(peaks, Peak{
				Index:       mid,
				Height:      y[mid],
				PlateauSize: right - left + 1,
			})
			i = ahead

			continue
		}

		i = ahead
	}

	return peaks
}

// filterByDistance removes peaks closer than dist samples to a higher
// surviving peak, processing peaks from highest to lowest.
func filterByDistance(peaks []Peak, dist int) []Peak {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return peaks[order[a]].Height > peaks[order[b]].Height
	})

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}

	for _, j := range order {
		if !keep[j] {
			continue
		}

		for k := j - 1; k >= 0 && peaks[j].Index-peaks[k].Index < dist; k-- {
			keep[k] = false
		}

		for k := j + 1; k < len(peaks) && peaks[k].Index-peaks[j].Index < dist; k++ {
			keep[k] = false
		}
	}

	out := peaks[:0]
	for i, pk := range peaks {
		if keep[i] {
			out = append(out, pk)
		}
	}

	return out
}

// prominence walks away from the peak in both directions, within the
// optional window, until a sample higher than the peak (or the window
// edge) is reached, tracking the lowest valley floor passed on each side.
func prominence(y []float64, idx, wlen int) (prom float64, leftBase, rightBase int) {
	n := len(y)

	lo, hi := 0, n-1
	if wlen >= 2 {
		half := wlen / 2
		if idx-half > lo {
			lo = idx - half
		}

		if idx+half < hi {
			hi = idx + half
		}
	}

	leftMin := y[idx]
	leftBase = idx

	for j := idx - 1; j >= lo && y[j] <= y[idx]; j-- {
		if y[j] < leftMin {
			leftMin = y[j]
			leftBase = j
		}
	}

	rightMin := y[idx]
	rightBase = idx

	for j := idx + 1; j <= hi && y[j] <= y[idx]; j++ {
		if y[j] < rightMin {
			rightMin = y[j]
			rightBase = j
		}
	}

	return y[idx] - math.Max(leftMin, rightMin), leftBase, rightBase
}

// widthAt measures the peak width at relHeight of the prominence below
// the peak, interpolating the crossings linearly between samples.
func widthAt(y []float64, pk Peak, relHeight float64) float64 {
	height := pk.Height - pk.Prominence*relHeight

	i := pk.Index
	for i > pk.LeftBase && y[i] > height {
		i--
	}

	leftIP := float64(i)
	if y[i] < height {
		leftIP += (height - y[i]) / (y[i+1] - y[i])
	}

	i = pk.Index
	for i < pk.RightBase && y[i] > height {
		i++
	}

	rightIP := float64(i)
	if y[i] < height {
		rightIP -= (height - y[i]) / (y[i-1] - y[i])
	}

	return rightIP - leftIP
}
