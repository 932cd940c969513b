// Command genmock generates synthetic radiosonde sounding fixtures for the
// QC test suites. It runs the actual interpolation check on each generated
// profile so the checked-output fixture matches real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -raw-out data/mock/soundings_260211_raw.json \
//	  -checked-out data/mock/soundings_260211_checked.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/skewtlabs/sonde-qc/internal/domain"
	"github.com/skewtlabs/sonde-qc/internal/observability"
	"github.com/skewtlabs/sonde-qc/internal/pipeline"
	"github.com/skewtlabs/sonde-qc/internal/qc"
)

var launchBase = time.Date(2026, time.February, 11, 11, 15, 0, 0, time.UTC)

// Standard pressure levels in hPa, surface excluded.
var standardLevelsHPa = []float64{925, 850, 700, 500, 400, 300, 250, 200, 150, 100}

var stations = []string{"ENZV", "EDZE", "LFBD", "EGUW", "BIKF", "LOWL"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawOut := flag.String("raw-out", "", "output path for raw sounding fixture")
	checkedOut := flag.String("checked-out", "", "output path for checked sounding fixture")
	profiles := flag.Int("profiles", 24, "number of profiles to generate")
	seed := flag.Int64("seed", 1, "random seed")
	optionsFile := flag.String("options", "", "optional YAML file overriding check options")
	flag.Parse()

	if *rawOut == "" || *checkedOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -raw-out, -checked-out")
	}

	opts := qc.DefaultOptions()
	if *optionsFile != "" {
		loaded, err := qc.LoadOptions(*optionsFile)
		if err != nil {
			return err
		}
		opts = loaded
	}

	// Fix the clock for reproducible processed_at timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.February, 11, 12, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	check := qc.NewInterpolationCheck(opts, logger)
	tfm := pipeline.NewTransformer(check, observability.NewMetricsForTesting(), logger)

	rng := rand.New(rand.NewSource(*seed))

	var rawSoundings []domain.RawSounding
	var checked []domain.CheckedSounding

	for i := 0; i < *profiles; i++ {
		// Every third profile gets a temperature spike on a standard level.
		spiked := i%3 == 0
		raw := buildSounding(rng, stations[i%len(stations)], i, spiked)
		rawSoundings = append(rawSoundings, raw)

		payload, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("marshal sounding %d: %w", i, err)
		}
		out, err := tfm.Transform(context.Background(), domain.RawEvent{Value: payload})
		if err != nil {
			return fmt.Errorf("check sounding %d: %w", i, err)
		}

		var c domain.CheckedSounding
		if err := json.Unmarshal(out.Value, &c); err != nil {
			return fmt.Errorf("decode checked sounding %d: %w", i, err)
		}
		checked = append(checked, c)
	}

	if err := writeJSON(*rawOut, rawSoundings); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s", *rawOut)

	if err := writeJSON(*checkedOut, checked); err != nil {
		return fmt.Errorf("writing checked fixture: %w", err)
	}
	log.Printf("wrote checked fixture: %s", *checkedOut)

	printStats(checked)
	return nil
}

// buildSounding synthesizes one profile on the standard level grid with
// significant levels bracketing each standard level at roughly 3% of its
// pressure, so no bracket exceeds the gap band table.
func buildSounding(rng *rand.Rand, station string, index int, spiked bool) domain.RawSounding {
	type level struct {
		pressure float64 // Pa
		flags    int
	}

	levels := []level{{pressure: 100800, flags: domain.FlagSurfaceLevel}}
	for _, stdHPa := range standardLevelsHPa {
		levels = append(levels,
			level{pressure: stdHPa * 1.03 * 100, flags: domain.FlagSignificantLevel},
			level{pressure: stdHPa * 100, flags: domain.FlagStandardLevel},
			level{pressure: stdHPa * 0.97 * 100, flags: domain.FlagSignificantLevel},
		)
	}

	s := domain.RawSounding{
		StationID:  station,
		LaunchTime: launchBase.Add(time.Duration(index) * time.Minute),
	}
	for _, lev := range levels {
		truth := modelTemperature(lev.pressure)
		s.Pressure = append(s.Pressure, lev.pressure)
		s.Temperature = append(s.Temperature, truth+rng.Float64()*0.4-0.2)
		s.BackgroundTemperature = append(s.BackgroundTemperature, truth+rng.Float64()*0.6-0.3)
		s.Flags = append(s.Flags, lev.flags)
	}

	if spiked {
		// Pick a standard level away from the surface and the profile top.
		stdIdx := 2 + 3*(1+rng.Intn(len(standardLevelsHPa)-2))
		s.Temperature[stdIdx] += 8.0 + rng.Float64()*7.0
	}

	return s
}

// modelTemperature returns an ISA-like temperature for a pressure in Pa:
// a dry troposphere below the 226 hPa tropopause, isothermal above.
func modelTemperature(pressure float64) float64 {
	const tropopausePa = 22632.0
	if pressure <= tropopausePa {
		return 216.65
	}
	return 288.15 * math.Pow(pressure/101325.0, 0.1903)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(checked []domain.CheckedSounding) {
	var flaggedProfiles, flaggedLevels, skipped int
	stationCounts := map[string]int{}
	for i := range checked {
		c := &checked[i]
		stationCounts[c.StationID]++
		flaggedLevels += c.NumInterpErrors
		if c.NumInterpErrObs > 0 {
			flaggedProfiles++
		}
		if len(c.LevelErrors) == 0 {
			skipped++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total profiles: %d\n", len(checked))
	fmt.Printf("Flagged profiles: %d\n", flaggedProfiles)
	fmt.Printf("Flagged levels: %d\n", flaggedLevels)
	fmt.Printf("Skipped profiles: %d\n", skipped)
	fmt.Print("By station:")
	for _, st := range stations {
		if n := stationCounts[st]; n > 0 {
			fmt.Printf(" %s=%d", st, n)
		}
	}
	fmt.Println()
}
