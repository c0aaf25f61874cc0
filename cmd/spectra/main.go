// Command spectra detects peaks and shoulder features in 1-D spectral
// curves read from two-column data files.
//
// Usage:
//
//	spectra [flags] file.csv
//
// The input file holds one sample per line: wavelength and intensity,
// separated by commas, semicolons, tabs, or spaces. Lines starting with
// '#' and a single non-numeric header line are skipped.
//
// Examples:
//
//	spectra scan.csv
//	spectra -mode peaks -tier sensitive -max 5 scan.tsv
//	spectra -mode shoulders scan.csv
//	spectra -region 460:480 -diagnose scan.csv
//	spectra -preset lab.yaml scan.csv
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/mmfiora/algo-spectra/analyze/combined"
	"github.com/mmfiora/algo-spectra/analyze/features"
	"github.com/mmfiora/algo-spectra/analyze/peaks"
	"github.com/mmfiora/algo-spectra/analyze/region"
	"github.com/mmfiora/algo-spectra/analyze/shoulders"
	"github.com/mmfiora/algo-spectra/curve"
)

// preset mirrors the command line flags so a lab can pin its settings
// in a YAML file and override individual ones per run.
type preset struct {
	Mode        string  `yaml:"mode"`
	Tier        string  `yaml:"tier"`
	Max         int     `yaml:"max"`
	Sensitivity float64 `yaml:"sensitivity"`
	Smooth      bool    `yaml:"smooth"`
}

func main() {
	presetPath := flag.String("preset", "", "YAML preset file with default settings")
	mode := flag.String("mode", "", "detection mode: peaks, shoulders, combined (default combined)")
	tier := flag.String("tier", "", "peak tier: standard, sensitive, ultra, force (default adaptive)")
	maxFeatures := flag.Int("max", 0, "maximum number of reported features")
	sensitivity := flag.Float64("sensitivity", 0, "shoulder sensitivity fraction")
	smooth := flag.Bool("smooth", false, "smooth the curve before peak detection")
	regionSpec := flag.String("region", "", "restrict analysis to a wavelength window, formatted lo:hi")
	diagnose := flag.Bool("diagnose", false, "with -region, print threshold diagnostics instead of detecting")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spectra [flags] file\n\n")
		fmt.Fprintf(os.Stderr, "Detects peaks and shoulder features in a 1-D spectral curve.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  spectra scan.csv\n")
		fmt.Fprintf(os.Stderr, "  spectra -mode peaks -tier sensitive -max 5 scan.tsv\n")
		fmt.Fprintf(os.Stderr, "  spectra -region 460:480 -diagnose scan.csv\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := preset{Mode: "combined"}
	if *presetPath != "" {
		if err := loadPreset(*presetPath, &cfg); err != nil {
			fatal(err)
		}
	}

	if *mode != "" {
		cfg.Mode = *mode
	}
	if *tier != "" {
		cfg.Tier = *tier
	}
	if *maxFeatures > 0 {
		cfg.Max = *maxFeatures
	}
	if *sensitivity > 0 {
		cfg.Sensitivity = *sensitivity
	}
	if *smooth {
		cfg.Smooth = true
	}

	c, err := readCurve(flag.Arg(0))
	if err != nil {
		fatal(err)
	}

	if *regionSpec != "" {
		if err := runRegion(c, cfg, *regionSpec, *diagnose); err != nil {
			fatal(err)
		}
		return
	}

	set, err := run(c, cfg)
	if err != nil {
		fatal(err)
	}

	printSet(set)
}

func run(c curve.Curve, cfg preset) (features.Set, error) {
	switch cfg.Mode {
	case "peaks":
		if cfg.Tier != "" {
			t, err := parseTier(cfg.Tier)
			if err != nil {
				return features.Set{}, err
			}
			return peaks.DetectTier(c, cfg.Max, t)
		}

		if cfg.Smooth {
			pc := peaks.DefaultConfig()
			pc.Smooth = true
			if cfg.Max > 0 {
				pc.MaxPeaks = cfg.Max
			}
			return peaks.Detect(c, pc)
		}

		return peaks.DetectAdaptive(c, cfg.Max)

	case "shoulders":
		sc := shoulders.DefaultConfig()
		if cfg.Max > 0 {
			sc.MaxFeatures = cfg.Max
		}
		if cfg.Sensitivity > 0 {
			sc.Sensitivity = cfg.Sensitivity
		}
		return shoulders.Detect(c, sc)

	case "combined", "":
		cc := combined.DefaultConfig()
		if cfg.Max > 0 {
			cc.MaxTotal = cfg.Max
		}
		if cfg.Sensitivity > 0 {
			cc.ShoulderSensitivity = cfg.Sensitivity
		}
		return combined.Detect(c, cc)
	}

	return features.Set{}, fmt.Errorf("unknown mode %q (want peaks, shoulders, or combined)", cfg.Mode)
}

func runRegion(c curve.Curve, cfg preset, spec string, diagnoseOnly bool) error {
	lo, hi, err := parseRegion(spec)
	if err != nil {
		return err
	}

	if diagnoseOnly {
		d, err := region.Diagnose(c, lo, hi)
		if err != nil {
			return err
		}
		printDiagnosis(d)
		return nil
	}

	var set features.Set
	if cfg.Mode == "shoulders" {
		set, err = region.ShoulderIn(c, lo, hi, cfg.Sensitivity)
	} else {
		set, err = region.DetectIn(c, lo, hi, cfg.Max)
	}
	if err != nil {
		return err
	}

	printSet(set)
	return nil
}

func parseTier(s string) (peaks.Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return peaks.TierStandard, nil
	case "sensitive":
		return peaks.TierSensitive, nil
	case "ultra", "ultra_sensitive":
		return peaks.TierUltraSensitive, nil
	case "force", "force_detect":
		return peaks.TierForce, nil
	}
	return 0, fmt.Errorf("unknown tier %q (want standard, sensitive, ultra, or force)", s)
}

func parseRegion(spec string) (lo, hi float64, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid region %q, want lo:hi", spec)
	}

	lo, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid region bound %q: %w", parts[0], err)
	}

	hi, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid region bound %q: %w", parts[1], err)
	}

	return lo, hi, nil
}

func loadPreset(path string, cfg *preset) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading preset: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing preset %s: %w", path, err)
	}

	return nil
}

// readCurve parses a two-column wavelength/intensity file. Delimiters
// may be commas, semicolons, tabs, or runs of spaces; a single leading
// non-numeric header line is tolerated.
func readCurve(path string) (curve.Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return curve.Curve{}, err
	}
	defer f.Close()

	var xs, ys []float64

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := splitColumns(line)
		if len(fields) < 2 {
			return curve.Curve{}, fmt.Errorf("%s:%d: want two columns, got %d", path, lineNo, len(fields))
		}

		x, errX := strconv.ParseFloat(fields[0], 64)
		y, errY := strconv.ParseFloat(fields[1], 64)
		if errX != nil || errY != nil {
			if len(xs) == 0 {
				// Header line.
				continue
			}
			return curve.Curve{}, fmt.Errorf("%s:%d: bad sample %q", path, lineNo, line)
		}

		xs = append(xs, x)
		ys = append(ys, y)
	}

	if err := sc.Err(); err != nil {
		return curve.Curve{}, err
	}

	return curve.New(xs, ys)
}

func splitColumns(line string) []string {
	line = strings.ReplaceAll(line, ";", " ")
	line = strings.ReplaceAll(line, ",", " ")
	line = strings.ReplaceAll(line, "\t", " ")
	return strings.Fields(line)
}

func printSet(set features.Set) {
	if set.Forced {
		fmt.Fprintln(os.Stderr, "warning: features found only by forced detection; treat with caution")
	}

	if set.NumFound() == 0 {
		fmt.Println("no features detected")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tWavelength\tIntensity\tType\n")
	fmt.Fprintf(tw, "--\t----------\t---------\t----\n")

	for _, f := range set.Features {
		fmt.Fprintf(tw, "%s\t%.2f\t%.4g\t%s\n", f.DisplayID, f.Wavelength, f.Intensity, f.DetectionType)
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
		return
	}

	fmt.Printf("\n%d feature(s): %d peak(s), %d shoulder(s), method %s\n",
		set.NumFound(), set.TraditionalCount, set.ShoulderCount, set.Params.Method)

	if sum, ok := features.Summarize(set); ok {
		fmt.Printf("intensity max %.4g min %.4g, wavelength span %.2f\n",
			sum.IntensityMax, sum.IntensityMin, sum.WavelengthSpan)
	}
}

func printDiagnosis(d region.Diagnosis) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "region\t[%g, %g] (%d samples)\n", d.Lo, d.Hi, d.SampleCount)
	fmt.Fprintf(tw, "region range\t%.4g (min %.4g, max %.4g)\n", d.RegionRange, d.RegionMin, d.RegionMax)
	fmt.Fprintf(tw, "relative prominence\t%.4g\n", d.RelativeProminence)
	fmt.Fprintf(tw, "height floor\t%.4g (met: %v)\n", d.HeightFloor, d.HeightMet)
	fmt.Fprintf(tw, "prominence met\t%v\n", d.ProminenceMet)
	fmt.Fprintf(tw, "needs ultra-sensitive\t%v\n", d.NeedsUltraSensitive)
	fmt.Fprintf(tw, "suggested min height\t%.4g\n", d.SuggestedMinHeight)
	fmt.Fprintf(tw, "suggested prominence frac\t%.4g\n", d.SuggestedProminenceFrac)

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
