package qc

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// GapBand pairs a standard pressure band with the maximum bracket gap allowed
// for standard levels in that band. See 6.3.2.2.2 of the WMO Guide on the
// Global Data-Processing System.
type GapBand struct {
	// PressureHPa is the band threshold in whole hPa.
	PressureHPa int `yaml:"pressure_hpa"`
	// GapHPa is the big-gap limit in hPa for levels in this band.
	GapHPa float64 `yaml:"gap_hpa"`
}

// Options configures the interpolation consistency check.
//
// GapBands must be ordered by decreasing pressure; the lookup takes the first
// band at or below a level's rounded pressure and does not re-sort. This is a
// configuration invariant, not validated at runtime.
type Options struct {
	// BigGapInit is the fallback bracket gap limit in Pa, used when no band
	// matches a level's pressure.
	BigGapInit float64 `yaml:"big_gap_init_pa"`

	// GapBands maps pressure bands to gap limits, highest pressure first.
	GapBands []GapBand `yaml:"gap_bands"`

	// TInterpTol is the base tolerance in K for the observed-minus-interpolated
	// temperature difference.
	TInterpTol float64 `yaml:"t_interp_tol_k"`

	// TolRelaxPThresh is the pressure in Pa below which the tolerance is
	// multiplied by TolRelax. Upper-air levels get a looser tolerance.
	TolRelaxPThresh float64 `yaml:"tol_relax_pressure_threshold_pa"`

	// TolRelax is the multiplicative tolerance relaxation factor.
	TolRelax float64 `yaml:"tol_relax"`
}

// DefaultOptions returns the operational defaults: big gaps of 150 hPa at and
// below the 500 hPa surface, tightening with altitude and reduced to 50 hPa
// for the 150 and 100 hPa standard levels and above.
func DefaultOptions() Options {
	return Options{
		BigGapInit: 1000.0e2,
		GapBands: []GapBand{
			{PressureHPa: 1000, GapHPa: 150},
			{PressureHPa: 850, GapHPa: 150},
			{PressureHPa: 700, GapHPa: 150},
			{PressureHPa: 500, GapHPa: 150},
			{PressureHPa: 400, GapHPa: 100},
			{PressureHPa: 300, GapHPa: 100},
			{PressureHPa: 250, GapHPa: 100},
			{PressureHPa: 200, GapHPa: 75},
			{PressureHPa: 150, GapHPa: 50},
			{PressureHPa: 100, GapHPa: 50},
			{PressureHPa: 70, GapHPa: 50},
			{PressureHPa: 50, GapHPa: 50},
			{PressureHPa: 30, GapHPa: 50},
			{PressureHPa: 20, GapHPa: 50},
			{PressureHPa: 10, GapHPa: 50},
		},
		TInterpTol:      1.0,
		TolRelaxPThresh: 300.0e2,
		TolRelax:        1.5,
	}
}

// LoadOptions reads Options from a YAML file. Fields left unset in the file
// keep their default values.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read check options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parse check options: %w", err)
	}
	return opts, nil
}

// bigGapFor resolves the bracket gap limit in Pa for a standard level at
// pressure p (Pa). The level pressure is rounded to whole hPa and the band
// table scanned highest pressure first; the first band at or below the
// rounded pressure wins. Falls back to BigGapInit when no band matches.
func (o Options) bigGapFor(p float64) float64 {
	rounded := int(math.Round(p * 0.01))
	for _, band := range o.GapBands {
		if band.PressureHPa <= rounded {
			return band.GapHPa * 100.0 // hPa -> Pa
		}
	}
	return o.BigGapInit
}
