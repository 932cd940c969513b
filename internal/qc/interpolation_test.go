package qc

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/skewtlabs/sonde-qc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testOptions returns options with no gap band table, so the generous
// BigGapInit applies everywhere. The wide tolerance keeps levels adjacent to
// a corrupted anchor from failing, isolating the corrupted level itself.
func testOptions() Options {
	return Options{
		BigGapInit:      1000.0e2,
		TInterpTol:      8.0,
		TolRelaxPThresh: 300.0e2,
		TolRelax:        1.5,
	}
}

// linearTemperatures returns temperatures linear in log-pressure between
// tFirst at pressures[0] and tLast at the final pressure.
func linearTemperatures(pressures []float64, tFirst, tLast float64) []float64 {
	lpFirst := math.Log(pressures[0])
	lpLast := math.Log(pressures[len(pressures)-1])
	temps := make([]float64, len(pressures))
	for i, p := range pressures {
		frac := (math.Log(p) - lpFirst) / (lpLast - lpFirst)
		temps[i] = tFirst + (tLast-tFirst)*frac
	}
	return temps
}

func newProfileData(pressures, temps []float64, flags []int) *domain.ProfileData {
	data := domain.NewProfileData()
	data.SetFloat(domain.VarAirPressure, pressures)
	data.SetFloat(domain.VarObsTemperature, temps)
	bkg := make([]float64, len(temps))
	copy(bkg, temps)
	data.SetFloat(domain.VarBkgTemperature, bkg)
	data.SetFloat(domain.VarTemperatureCorrection, make([]float64, len(temps)))
	data.SetInt(domain.VarTemperatureFlags, flags)
	return data
}

func repeatFlags(flag, n int) []int {
	flags := make([]int, n)
	for i := range flags {
		flags[i] = flag
	}
	return flags
}

// A five-level profile, every level standard and significant, with a +10 K
// spike at level 2: the spiked level and both brackets get flagged, the
// counters record a single failure.
func TestRun_FlagsInconsistentStandardLevel(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000}
	temps := linearTemperatures(pressures, 288.0, 225.0)
	temps[2] += 10.0
	flags := repeatFlags(domain.FlagStandardLevel|domain.FlagSignificantLevel, 5)

	data := newProfileData(pressures, temps, flags)
	NewInterpolationCheck(testOptions(), discardLogger()).Run(data)

	tFlags := data.Int(domain.VarTemperatureFlags)
	assert.NotZero(t, tFlags[2]&domain.FlagInterpolation, "central level flagged")
	assert.NotZero(t, tFlags[1]&domain.FlagInterpolation, "lower bracket flagged")
	assert.NotZero(t, tFlags[3]&domain.FlagInterpolation, "upper bracket flagged")
	assert.Zero(t, tFlags[0]&domain.FlagInterpolation)
	assert.Zero(t, tFlags[4]&domain.FlagInterpolation)

	assert.Equal(t, 1, data.Counter(domain.CounterNumAnyErrors)[0])
	assert.Equal(t, 1, data.Counter(domain.CounterNumInterpErrors)[0])
	assert.Equal(t, 1, data.Counter(domain.CounterNumInterpErrObs)[0])

	levErrors := data.Int(domain.VarLevErrors)
	assert.Equal(t, []int{-1, 0, 0, 0, -1}, levErrors)
}

func TestRun_CleanProfileUnflagged(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000}
	temps := linearTemperatures(pressures, 288.0, 225.0)
	flags := repeatFlags(domain.FlagStandardLevel|domain.FlagSignificantLevel, 5)

	data := newProfileData(pressures, temps, flags)
	NewInterpolationCheck(testOptions(), discardLogger()).Run(data)

	for i, f := range data.Int(domain.VarTemperatureFlags) {
		assert.Zerof(t, f&domain.FlagInterpolation, "level %d", i)
	}
	assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrors)[0])
	assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrObs)[0])
}

func TestRun_BiasCorrectionApplied(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000}
	temps := linearTemperatures(pressures, 288.0, 225.0)
	temps[2] += 10.0
	flags := repeatFlags(domain.FlagStandardLevel|domain.FlagSignificantLevel, 5)

	data := newProfileData(pressures, temps, flags)
	// The correction cancels the spike, so the corrected profile is smooth.
	correction := make([]float64, 5)
	correction[2] = -10.0
	data.SetFloat(domain.VarTemperatureCorrection, correction)

	NewInterpolationCheck(testOptions(), discardLogger()).Run(data)

	assert.Zero(t, data.Int(domain.VarTemperatureFlags)[2]&domain.FlagInterpolation)
	assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrors)[0])
}

func TestRun_InterpolationFormula(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000}
	// Deliberately non-linear values so the formula is fully exercised.
	temps := []float64{288.0, 281.5, 270.3, 252.9, 226.1}
	flags := repeatFlags(domain.FlagStandardLevel|domain.FlagSignificantLevel, 5)

	data := newProfileData(pressures, temps, flags)
	opts := testOptions()
	opts.TInterpTol = 1000.0 // never fail; this test is about tInterp only
	NewInterpolationCheck(opts, discardLogger()).Run(data)

	interp := data.Float(domain.VarInterpTemperature)
	logP := data.Float(domain.VarLogPressure)
	require.Len(t, interp, 5)

	for _, lev := range []int{1, 2, 3} {
		ratio := (logP[lev] - logP[lev-1]) / (logP[lev+1] - logP[lev-1])
		expected := temps[lev-1] + (temps[lev+1]-temps[lev-1])*ratio
		assert.InDeltaf(t, expected, interp[lev], 1e-9, "level %d", lev)
	}
	// End levels lack a bracket and stay missing.
	assert.Equal(t, domain.MissingValue, interp[0])
	assert.Equal(t, domain.MissingValue, interp[4])
}

func TestRun_SurfaceLevelNeverEvaluated(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000}
	temps := linearTemperatures(pressures, 288.0, 225.0)
	temps[2] += 10.0
	flags := repeatFlags(domain.FlagStandardLevel|domain.FlagSignificantLevel, 5)
	flags[2] |= domain.FlagSurfaceLevel

	data := newProfileData(pressures, temps, flags)
	NewInterpolationCheck(testOptions(), discardLogger()).Run(data)

	assert.Zero(t, data.Int(domain.VarTemperatureFlags)[2]&domain.FlagInterpolation)
	assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrors)[0])
	assert.Equal(t, domain.MissingValue, data.Float(domain.VarInterpTemperature)[2])
}

// A missing lower bracket silently skips the level.
func TestRun_MissingBracketSkips(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000}
	temps := linearTemperatures(pressures, 288.0, 225.0)
	temps[2] += 10.0
	flags := []int{
		domain.FlagStandardLevel, // not significant: nothing below level 2
		domain.FlagStandardLevel,
		domain.FlagStandardLevel | domain.FlagSignificantLevel,
		domain.FlagStandardLevel | domain.FlagSignificantLevel,
		domain.FlagStandardLevel | domain.FlagSignificantLevel,
	}

	data := newProfileData(pressures, temps, flags)
	NewInterpolationCheck(testOptions(), discardLogger()).Run(data)

	for i, f := range data.Int(domain.VarTemperatureFlags) {
		assert.Zerof(t, f&domain.FlagInterpolation, "level %d", i)
	}
	assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrors)[0])
	assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrObs)[0])
}

// A bracket further away than the resolved big gap skips the level even when
// the observation is genuinely inconsistent.
func TestRun_BigGapSkips(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000}
	temps := linearTemperatures(pressures, 288.0, 225.0)
	temps[2] += 10.0
	flags := repeatFlags(domain.FlagStandardLevel|domain.FlagSignificantLevel, 5)

	opts := testOptions()
	// A single band matching every pressure with a 50 hPa gap; all the
	// bracket distances in this profile exceed it.
	opts.GapBands = []GapBand{{PressureHPa: 1000, GapHPa: 50}}

	data := newProfileData(pressures, temps, flags)
	NewInterpolationCheck(opts, discardLogger()).Run(data)

	for i, f := range data.Int(domain.VarTemperatureFlags) {
		assert.Zerof(t, f&domain.FlagInterpolation, "level %d", i)
	}
	assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrors)[0])
}

func TestRun_SparseSignificantLevelsSkips(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000}
	temps := linearTemperatures(pressures, 288.0, 225.0)
	temps[2] += 10.0
	// Five standard levels but only two significant ones: below max(3, 5/2).
	flags := []int{
		domain.FlagStandardLevel,
		domain.FlagStandardLevel | domain.FlagSignificantLevel,
		domain.FlagStandardLevel,
		domain.FlagStandardLevel | domain.FlagSignificantLevel,
		domain.FlagStandardLevel,
	}

	data := newProfileData(pressures, temps, flags)
	NewInterpolationCheck(testOptions(), discardLogger()).Run(data)

	for i, f := range data.Int(domain.VarTemperatureFlags) {
		assert.Zerof(t, f&domain.FlagInterpolation, "level %d", i)
	}
	assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrors)[0])
}

func TestRun_DegenerateLogPressureSkips(t *testing.T) {
	// Brackets at identical pressure would divide by zero in the ratio.
	pressures := []float64{70000, 70000, 70000, 50000, 30000}
	temps := []float64{270.0, 350.0, 270.0, 252.0, 226.0}
	flags := []int{
		domain.FlagSignificantLevel,
		domain.FlagStandardLevel,
		domain.FlagSignificantLevel,
		domain.FlagSignificantLevel,
		domain.FlagSignificantLevel,
	}

	data := newProfileData(pressures, temps, flags)
	NewInterpolationCheck(testOptions(), discardLogger()).Run(data)

	assert.Zero(t, data.Int(domain.VarTemperatureFlags)[1]&domain.FlagInterpolation)
	assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrors)[0])
	assert.Equal(t, domain.MissingValue, data.Float(domain.VarInterpTemperature)[1])
}

func TestRun_ToleranceRelaxationAboveThreshold(t *testing.T) {
	// Standard level at 200 hPa, below the 300 hPa relaxation threshold.
	pressures := []float64{30000, 25000, 20000, 15000}
	temps := linearTemperatures(pressures, 225.0, 210.0)
	temps[2] += 1.2
	flags := []int{
		domain.FlagSignificantLevel,
		domain.FlagSignificantLevel,
		domain.FlagStandardLevel,
		domain.FlagSignificantLevel,
	}

	strict := Options{BigGapInit: 1000.0e2, TInterpTol: 1.0, TolRelaxPThresh: 300.0e2, TolRelax: 1.0}
	relaxed := strict
	relaxed.TolRelax = 1.5

	t.Run("without relaxation the level fails", func(t *testing.T) {
		data := newProfileData(pressures, append([]float64(nil), temps...), append([]int(nil), flags...))
		NewInterpolationCheck(strict, discardLogger()).Run(data)
		assert.NotZero(t, data.Int(domain.VarTemperatureFlags)[2]&domain.FlagInterpolation)
		assert.Equal(t, 1, data.Counter(domain.CounterNumInterpErrors)[0])
	})

	t.Run("relaxation absorbs the residual", func(t *testing.T) {
		data := newProfileData(pressures, append([]float64(nil), temps...), append([]int(nil), flags...))
		NewInterpolationCheck(relaxed, discardLogger()).Run(data)
		assert.Zero(t, data.Int(domain.VarTemperatureFlags)[2]&domain.FlagInterpolation)
		assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrors)[0])
	})
}

func TestRun_NoStandardLevelsIsNoOp(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000}
	temps := linearTemperatures(pressures, 288.0, 225.0)
	flags := repeatFlags(domain.FlagSignificantLevel, 5)

	data := newProfileData(pressures, temps, flags)
	NewInterpolationCheck(testOptions(), discardLogger()).Run(data)

	for i, f := range data.Int(domain.VarTemperatureFlags) {
		assert.Equalf(t, domain.FlagSignificantLevel, f, "level %d", i)
	}
	assert.Equal(t, 0, data.Counter(domain.CounterNumAnyErrors)[0])
	assert.Equal(t, 0, data.Counter(domain.CounterNumInterpErrObs)[0])
	for _, v := range data.Float(domain.VarInterpTemperature) {
		assert.Equal(t, domain.MissingValue, v)
	}
	for _, e := range data.Int(domain.VarLevErrors) {
		assert.Equal(t, -1, e)
	}
}

func TestRun_Deterministic(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000, 20000, 10000}
	temps := linearTemperatures(pressures, 288.0, 205.0)
	temps[2] += 20.0
	temps[5] -= 20.0
	flags := repeatFlags(domain.FlagStandardLevel|domain.FlagSignificantLevel, 7)

	run := func() ([]int, []int, int) {
		data := newProfileData(pressures,
			append([]float64(nil), temps...),
			append([]int(nil), flags...))
		NewInterpolationCheck(testOptions(), discardLogger()).Run(data)
		return data.Int(domain.VarTemperatureFlags),
			data.Int(domain.VarLevErrors),
			data.Counter(domain.CounterNumInterpErrors)[0]
	}

	flags1, lev1, n1 := run()
	flags2, lev2, n2 := run()
	assert.Equal(t, flags1, flags2)
	assert.Equal(t, lev1, lev2)
	assert.Equal(t, n1, n2)
	assert.Equal(t, 1, errObsCount(t, pressures, temps, flags), "one profile increments NumInterpErrObs once")
	assert.GreaterOrEqual(t, n1, 2, "both corrupted levels fail")
}

// Disjoint bracket triples produce the same per-triple outcome wherever they
// sit in the profile's positional layout.
func TestRun_OrderIndependentAcrossLayouts(t *testing.T) {
	type level struct {
		pressure float64
		temp     float64
		flag     int
	}

	// A triple with the standard level spiked far past tolerance.
	spiked := []level{
		{72000, 271.5, domain.FlagSignificantLevel},
		{70000, 300.0, domain.FlagStandardLevel},
		{68000, 269.5, domain.FlagSignificantLevel},
	}
	// A triple whose standard level is consistent with its brackets.
	clean := []level{
		{51500, 254.0, domain.FlagSignificantLevel},
		{50000, 253.0, domain.FlagStandardLevel},
		{48500, 252.0, domain.FlagSignificantLevel},
	}

	run := func(levels []level) ([]int, int) {
		pressures := make([]float64, len(levels))
		temps := make([]float64, len(levels))
		flags := make([]int, len(levels))
		for i, lev := range levels {
			pressures[i] = lev.pressure
			temps[i] = lev.temp
			flags[i] = lev.flag
		}
		data := newProfileData(pressures, temps, flags)
		NewInterpolationCheck(testOptions(), discardLogger()).Run(data)
		return data.Int(domain.VarTemperatureFlags),
			data.Counter(domain.CounterNumInterpErrors)[0]
	}

	flagsA, errsA := run(append(append([]level(nil), spiked...), clean...))
	flagsB, errsB := run(append(append([]level(nil), clean...), spiked...))

	assert.Equal(t, 1, errsA)
	assert.Equal(t, 1, errsB)

	// The spiked triple is flagged and the clean one untouched in both
	// layouts; only the positions move.
	assert.Equal(t, flagsA[:3], flagsB[3:], "spiked triple")
	assert.Equal(t, flagsA[3:], flagsB[:3], "clean triple")
	for i := 0; i < 3; i++ {
		assert.NotZerof(t, flagsA[i]&domain.FlagInterpolation, "spiked triple level %d", i)
		assert.Zerof(t, flagsA[3+i]&domain.FlagInterpolation, "clean triple level %d", i)
	}
}

func errObsCount(t *testing.T, pressures, temps []float64, flags []int) int {
	t.Helper()
	data := newProfileData(pressures,
		append([]float64(nil), temps...),
		append([]int(nil), flags...))
	NewInterpolationCheck(testOptions(), discardLogger()).Run(data)
	return data.Counter(domain.CounterNumInterpErrObs)[0]
}

// Empty input vectors abort the whole profile with a warning and without
// publishing anything.
func TestRun_EmptyInputWarnsAndSkips(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	data := domain.NewProfileData()
	data.SetFloat(domain.VarAirPressure, nil)
	data.SetFloat(domain.VarObsTemperature, []float64{288.0})
	data.SetFloat(domain.VarBkgTemperature, []float64{288.0})
	data.SetFloat(domain.VarTemperatureCorrection, []float64{0})
	data.SetInt(domain.VarTemperatureFlags, []int{0})

	NewInterpolationCheck(testOptions(), logger).Run(data)

	assert.Contains(t, buf.String(), "not performed")
	assert.Nil(t, data.Int(domain.VarLevErrors))
	assert.Nil(t, data.Float(domain.VarInterpTemperature))
	assert.Equal(t, []int{0}, data.Int(domain.VarTemperatureFlags))
}

func TestRun_SizeMismatchWarnsAndSkips(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	data := domain.NewProfileData()
	data.SetFloat(domain.VarAirPressure, []float64{100000, 85000})
	data.SetFloat(domain.VarObsTemperature, []float64{288.0})
	data.SetFloat(domain.VarBkgTemperature, []float64{288.0})
	data.SetFloat(domain.VarTemperatureCorrection, []float64{0})
	data.SetInt(domain.VarTemperatureFlags, []int{0})

	NewInterpolationCheck(testOptions(), logger).Run(data)

	assert.Contains(t, buf.String(), "mismatched sizes")
	assert.Nil(t, data.Int(domain.VarLevErrors))
}

func TestRun_PublishesClassificationArrays(t *testing.T) {
	pressures := []float64{100000, 85000, 70000, 50000, 30000}
	temps := linearTemperatures(pressures, 288.0, 225.0)
	flags := repeatFlags(domain.FlagStandardLevel|domain.FlagSignificantLevel, 5)

	data := newProfileData(pressures, temps, flags)
	NewInterpolationCheck(testOptions(), discardLogger()).Run(data)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, data.Int(domain.VarStdLev))
	assert.Equal(t, []int{-1, 0, 1, 2, 3}, data.Int(domain.VarSigBelow))
	assert.Equal(t, []int{1, 2, 3, 4, -1}, data.Int(domain.VarSigAbove))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, data.Int(domain.VarIndStd))
	assert.Equal(t, []int{5, 5, 5, 5, 5}, data.Int(domain.VarNumStandardLevels))
	assert.Equal(t, []int{5, 5, 5, 5, 5}, data.Int(domain.VarNumSignificantLevs))

	logP := data.Float(domain.VarLogPressure)
	require.Len(t, logP, 5)
	for i, p := range pressures {
		assert.InDelta(t, math.Log(p), logP[i], 1e-12)
	}
}
