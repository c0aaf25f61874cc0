package features

import "fmt"

// Row is one line of the flat export table, the only shape external
// exporters need to understand.
type Row struct {
	RankIndex     int
	DisplayID     string
	Wavelength    float64
	Intensity     float64
	DetectionType Type
}

// Table serializes the set to its flat table form, preserving order.
func (s Set) Table() []Row {
	rows := make([]Row, len(s.Features))
	for i, f := range s.Features {
		rows[i] = Row{
			RankIndex:     f.RankIndex,
			DisplayID:     f.DisplayID,
			Wavelength:    f.Wavelength,
			Intensity:     f.Intensity,
			DetectionType: f.DetectionType,
		}
	}

	return rows
}

// FromTable rebuilds a set from its flat table form. The rows must carry
// consecutive 1-based ranks in order; diagnostic fields are not part of
// the table shape and come back zeroed.
func FromTable(rows []Row) (Set, error) {
	fs := make([]Feature, len(rows))
	for i, r := range rows {
		if r.RankIndex != i+1 {
			return Set{}, fmt.Errorf("features: row %d has rank %d, want %d", i, r.RankIndex, i+1)
		}

		fs[i] = Feature{
			Wavelength:    r.Wavelength,
			Intensity:     r.Intensity,
			DetectionType: r.DetectionType,
			RankIndex:     r.RankIndex,
			DisplayID:     fmt.Sprintf("P%d", r.RankIndex),
		}
	}

	out := Set{Features: fs, TotalDetected: len(fs)}
	out.TraditionalCount, out.ShoulderCount = countTypes(fs)

	return out, nil
}
