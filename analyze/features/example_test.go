package features_test

import (
	"fmt"

	"github.com/mmfiora/algo-spectra/analyze/features"
)

func ExampleSet_Remove() {
	set := features.Set{
		Features: features.Renumber([]features.Feature{
			{Wavelength: 410, Intensity: 500, DetectionType: features.TypeTraditionalPeak},
			{Wavelength: 350, Intensity: 800, DetectionType: features.TypeTraditionalPeak},
			{Wavelength: 470, Intensity: 300, DetectionType: features.TypeShoulderPeak},
		}),
	}

	trimmed, _ := set.Remove(1)
	for _, f := range trimmed.Features {
		fmt.Printf("%s %.0f\n", f.DisplayID, f.Wavelength)
	}

	// Output:
	// P1 350
	// P2 470
}
