// Command validate performs end-to-end data integrity checks across the mock
// sounding fixtures: raw profiles, checked profiles, and the consistency
// between the two. It re-runs the interpolation check on every raw profile
// and verifies the checked fixture matches, then summarizes the residual
// distribution.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw-json data/mock/soundings_260211_raw.json \
//	  -checked-json data/mock/soundings_260211_checked.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/skewtlabs/sonde-qc/internal/domain"
	"github.com/skewtlabs/sonde-qc/internal/observability"
	"github.com/skewtlabs/sonde-qc/internal/pipeline"
	"github.com/skewtlabs/sonde-qc/internal/qc"
	"gonum.org/v1/gonum/stat"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rawJSON := flag.String("raw-json", "", "path to raw sounding fixture")
	checkedJSON := flag.String("checked-json", "", "path to checked sounding fixture")
	optionsFile := flag.String("options", "", "optional YAML file overriding check options")
	flag.Parse()

	if *rawJSON == "" || *checkedJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*rawJSON, *checkedJSON, *optionsFile); code != 0 {
		os.Exit(code)
	}
}

func run(rawPath, checkedPath, optionsFile string) int {
	opts := qc.DefaultOptions()
	if optionsFile != "" {
		loaded, err := qc.LoadOptions(optionsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		opts = loaded
	}

	// Fix the clock to the genmock timestamp so re-checked profiles match.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.February, 11, 12, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Sounding QC Integrity Validation ===")
	fmt.Println()

	rawSoundings, err := loadJSON[domain.RawSounding](rawPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw fixture: %v\n", err)
		return 1
	}

	checked, err := loadJSON[domain.CheckedSounding](checkedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load checked fixture: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRawIntegrity(rawSoundings),
		validateCheckReproduction(rawSoundings, checked, opts),
		validateFlagConsistency(checked),
		validateResiduals(checked),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Profiles: %d raw, %d checked\n", len(rawSoundings), len(checked))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Raw Integrity ──
// Validates that raw profiles are structurally sound soundings.

func validateRawIntegrity(raw []domain.RawSounding) *phase {
	p := &phase{name: "Phase 1: Raw Integrity (profiles)"}

	for i := range raw {
		s := &raw[i]
		id := fmt.Sprintf("profile %d (%s)", i, s.StationID)

		if s.StationID == "" {
			p.errorf("%s: missing station_id", id)
		}
		if s.LaunchTime.IsZero() {
			p.errorf("%s: missing launch_time", id)
		}

		n := len(s.Pressure)
		if len(s.Temperature) != n || len(s.BackgroundTemperature) != n || len(s.Flags) != n {
			p.errorf("%s: mismatched array sizes: pressure=%d temperature=%d background=%d flags=%d",
				id, n, len(s.Temperature), len(s.BackgroundTemperature), len(s.Flags))
			continue
		}
		if len(s.TemperatureCorrection) != 0 && len(s.TemperatureCorrection) != n {
			p.errorf("%s: correction array has %d entries, expected %d", id, len(s.TemperatureCorrection), n)
		}

		for lev := 1; lev < n; lev++ {
			if s.Pressure[lev] >= s.Pressure[lev-1] {
				p.errorf("%s: pressure not strictly decreasing at level %d", id, lev)
				break
			}
		}
		for lev, t := range s.Temperature {
			if t == domain.MissingValue {
				continue
			}
			if t < 150 || t > 350 {
				p.errorf("%s: implausible temperature %.1f K at level %d", id, t, lev)
			}
		}
	}
	return p
}

// ── Phase 2: Check Reproduction ──
// Re-runs the interpolation check on each raw profile and compares the
// result against the checked fixture.

func validateCheckReproduction(raw []domain.RawSounding, checked []domain.CheckedSounding, opts qc.Options) *phase {
	p := &phase{name: "Phase 2: Check Reproduction (re-run QC)"}

	if len(raw) != len(checked) {
		p.errorf("count mismatch: %d raw, %d checked", len(raw), len(checked))
		return p
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	check := qc.NewInterpolationCheck(opts, logger)
	tfm := pipeline.NewTransformer(check, observability.NewMetricsForTesting(), logger)

	for i := range raw {
		payload, err := json.Marshal(raw[i])
		if err != nil {
			p.errorf("profile %d: marshal: %v", i, err)
			continue
		}
		out, err := tfm.Transform(context.Background(), domain.RawEvent{Value: payload})
		if err != nil {
			p.errorf("profile %d: transform: %v", i, err)
			continue
		}
		var rechecked domain.CheckedSounding
		if err := json.Unmarshal(out.Value, &rechecked); err != nil {
			p.errorf("profile %d: decode: %v", i, err)
			continue
		}
		compareChecked(p, i, &checked[i], &rechecked)
	}
	return p
}

// compareChecked reports divergences between the stored fixture (the
// reference) and the freshly recomputed result.
func compareChecked(p *phase, i int, expected, actual *domain.CheckedSounding) {
	id := fmt.Sprintf("profile %d (%s)", i, expected.StationID)

	if actual.StationID != expected.StationID {
		p.errorf("%s: station_id mismatch: got %q", id, actual.StationID)
	}
	if actual.NumStandardLevels != expected.NumStandardLevels {
		p.errorf("%s: num_standard_levels: expected %d, got %d", id, expected.NumStandardLevels, actual.NumStandardLevels)
	}
	if actual.NumSignificantLevels != expected.NumSignificantLevels {
		p.errorf("%s: num_significant_levels: expected %d, got %d", id, expected.NumSignificantLevels, actual.NumSignificantLevels)
	}
	if actual.NumAnyErrors != expected.NumAnyErrors {
		p.errorf("%s: num_any_errors: expected %d, got %d", id, expected.NumAnyErrors, actual.NumAnyErrors)
	}
	if actual.NumInterpErrors != expected.NumInterpErrors {
		p.errorf("%s: num_interp_errors: expected %d, got %d", id, expected.NumInterpErrors, actual.NumInterpErrors)
	}
	if actual.NumInterpErrObs != expected.NumInterpErrObs {
		p.errorf("%s: num_interp_err_obs: expected %d, got %d", id, expected.NumInterpErrObs, actual.NumInterpErrObs)
	}

	if !intSliceEq(actual.Flags, expected.Flags) {
		p.errorf("%s: flags array mismatch", id)
	}
	if !intSliceEq(actual.LevelErrors, expected.LevelErrors) {
		p.errorf("%s: level_errors array mismatch", id)
	}
	if !floatSliceEq(actual.InterpolatedTemperature, expected.InterpolatedTemperature) {
		p.errorf("%s: interpolated_temperature array mismatch", id)
	}
}

// ── Phase 3: Flag Consistency ──
// Validates internal consistency of each checked profile.

func validateFlagConsistency(checked []domain.CheckedSounding) *phase {
	p := &phase{name: "Phase 3: Flag Consistency (checked)"}

	for i := range checked {
		c := &checked[i]
		id := fmt.Sprintf("profile %d (%s)", i, c.StationID)

		if c.NumInterpErrObs != 0 && c.NumInterpErrObs != 1 {
			p.errorf("%s: num_interp_err_obs is %d, expected 0 or 1", id, c.NumInterpErrObs)
		}
		if c.NumInterpErrors > 0 && c.NumInterpErrObs == 0 {
			p.errorf("%s: %d level errors but num_interp_err_obs is 0", id, c.NumInterpErrors)
		}
		if c.ProcessedAt.IsZero() {
			p.errorf("%s: processed_at is zero", id)
		}

		if len(c.LevelErrors) == 0 {
			continue // check skipped this profile
		}

		var errLevels, flaggedLevels int
		for lev, e := range c.LevelErrors {
			if e >= 0 {
				errLevels++
			}
			if lev < len(c.Flags) && c.Flags[lev]&domain.FlagInterpolation != 0 {
				flaggedLevels++
			}
		}
		// Each failing standard level marks a triple: itself plus both
		// brackets. Triples may share brackets, so the participating-level
		// count ranges from NumInterpErrors up to three per failure.
		if errLevels < c.NumInterpErrors || errLevels > 3*c.NumInterpErrors {
			p.errorf("%s: %d levels with errors for %d failing standard levels", id, errLevels, c.NumInterpErrors)
		}
		if flaggedLevels != errLevels {
			p.errorf("%s: %d interpolation-flagged levels but %d levels with errors", id, flaggedLevels, errLevels)
		}
	}
	return p
}

// ── Phase 4: Residual Distribution ──
// Summarizes observed-minus-interpolated residuals over all evaluated levels.

func validateResiduals(checked []domain.CheckedSounding) *phase {
	p := &phase{name: "Phase 4: Residual Distribution (stats)"}

	var residuals []float64
	for i := range checked {
		c := &checked[i]
		for lev, tInterp := range c.InterpolatedTemperature {
			if tInterp == domain.MissingValue || lev >= len(c.Temperature) {
				continue
			}
			tObs := c.Temperature[lev]
			if tObs == domain.MissingValue {
				continue
			}
			residuals = append(residuals, tObs-tInterp)
		}
	}

	if len(residuals) == 0 {
		p.errorf("no evaluated levels found in checked fixture")
		return p
	}

	mean, std := stat.MeanStdDev(residuals, nil)
	if math.IsNaN(mean) || math.IsNaN(std) {
		p.errorf("residual statistics are NaN over %d levels", len(residuals))
		return p
	}

	sorted := append([]float64(nil), residuals...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p95 := stat.Quantile(0.95, stat.Empirical, sorted, nil)

	fmt.Printf("  Residuals: n=%d mean=%.3fK std=%.3fK median=%.3fK p95=%.3fK\n",
		len(residuals), mean, std, median, p95)
	return p
}

// ── Helpers ──

func intSliceEq(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func floatSliceEq(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}
