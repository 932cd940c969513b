// Package qc implements per-profile quality-control checks for vertical
// atmospheric soundings, applied during observation pre-processing.
package qc

import (
	"log/slog"
	"math"

	"github.com/skewtlabs/sonde-qc/internal/domain"
)

const t0c = 273.15 // K

// InterpolationCheck verifies that the observed temperature at each standard
// pressure level is consistent with a linear interpolation in log-pressure
// between the nearest significant levels below and above it. Failing triples
// (the standard level and both brackets) are flagged with
// domain.FlagInterpolation and tallied in the profile's error counters.
//
// Nothing in the check is fatal: malformed input skips the whole profile with
// a warning, and every per-level guard is a silent skip of that level.
type InterpolationCheck struct {
	options Options
	logger  *slog.Logger
}

// NewInterpolationCheck creates the check with the given options.
func NewInterpolationCheck(options Options, logger *slog.Logger) *InterpolationCheck {
	return &InterpolationCheck{options: options, logger: logger}
}

// Run executes the check against one profile's arrays in data. Flags are
// mutated in place; the classification and result arrays are published back
// to the store once, after the decision loop completes.
func (c *InterpolationCheck) Run(data *domain.ProfileData) {
	pressures := data.Float(domain.VarAirPressure)
	tObs := data.Float(domain.VarObsTemperature)
	tBkg := data.Float(domain.VarBkgTemperature)
	tObsCorrection := data.Float(domain.VarTemperatureCorrection)
	tFlags := data.Int(domain.VarTemperatureFlags)

	if anyEmpty(len(pressures), len(tObs), len(tBkg), len(tObsCorrection), len(tFlags)) {
		c.logger.Warn("at least one input vector is empty, interpolation check not performed")
		return
	}
	if !allSameSize(len(pressures), len(tObs), len(tBkg), len(tObsCorrection), len(tFlags)) {
		c.logger.Warn("input vectors have mismatched sizes, interpolation check not performed",
			"pressure", len(pressures), "t_obs", len(tObs), "t_bkg", len(tBkg),
			"t_correction", len(tObsCorrection), "flags", len(tFlags))
		return
	}

	numLevels := len(pressures)
	tObsFinal := domain.CorrectedTemperature(tObs, tObsCorrection)

	cls := Classify(pressures, tObsFinal, tFlags)

	levErrors := make([]int, numLevels)
	tInterp := make([]float64, numLevels)
	for i := range numLevels {
		levErrors[i] = -1
		tInterp[i] = domain.MissingValue
	}

	numAnyErrors := data.Counter(domain.CounterNumAnyErrors)
	numInterpErrors := data.Counter(domain.CounterNumInterpErrors)
	numInterpErrObs := data.Counter(domain.CounterNumInterpErrObs)

	numErrors := 0

	for jlevstd := 0; jlevstd < cls.NumStd; jlevstd++ {
		jlev := cls.StdLev[jlevstd]

		if tFlags[jlev]&domain.FlagSurfaceLevel != 0 {
			continue
		}
		sigB := cls.SigBelow[jlevstd]
		sigA := cls.SigAbove[jlevstd]
		pStd := pressures[jlev]
		bigGap := c.options.bigGapFor(pStd)

		// Too few significant levels for a reliable bracket.
		if cls.NumSig < max(3, cls.NumStd/2) {
			continue
		}

		if sigB == -1 || sigA == -1 {
			continue
		}

		if tObsFinal[jlev] == domain.MissingValue {
			continue
		}

		if pressures[sigB]-pStd > bigGap ||
			pStd-pressures[sigA] > bigGap ||
			cls.LogP[sigB] == cls.LogP[sigA] {
			continue
		}

		ratio := (cls.LogP[jlev] - cls.LogP[sigB]) /
			(cls.LogP[sigA] - cls.LogP[sigB])

		tInterp[jlev] = tObsFinal[sigB] + (tObsFinal[sigA]-tObsFinal[sigB])*ratio

		tolRelax := 1.0
		if pStd < c.options.TolRelaxPThresh {
			tolRelax = c.options.TolRelax
		}
		if math.Abs(tObsFinal[jlev]-tInterp[jlev]) <= c.options.TInterpTol*tolRelax {
			continue
		}

		numAnyErrors[0]++
		numInterpErrors[0]++
		numErrors++

		// Simplest form of flagging: sig or std flags may be unset by other
		// checks later.
		tFlags[jlev] |= domain.FlagInterpolation
		tFlags[sigB] |= domain.FlagInterpolation
		tFlags[sigA] |= domain.FlagInterpolation

		levErrors[jlev]++
		levErrors[sigB]++
		levErrors[sigA]++

		c.logger.Debug("interpolation check failed",
			"central", jlev, "lower", sigB, "upper", sigA,
			"p_hpa", pStd*0.01,
			"t_obs_c", tObsFinal[jlev]-t0c,
			"t_bkg_c", tBkg[jlev]-t0c,
			"t_interp_c", tInterp[jlev]-t0c,
			"residual_k", tInterp[jlev]-tObsFinal[jlev],
			"p_lower_hpa", pressures[sigB]*0.01,
			"t_obs_lower_c", tObsFinal[sigB]-t0c,
			"p_upper_hpa", pressures[sigA]*0.01,
			"t_obs_upper_c", tObsFinal[sigA]-t0c)
	}

	if numErrors > 0 {
		numInterpErrObs[0]++
	}

	c.publish(data, cls, levErrors, tInterp, numLevels)
}

// publish transfers the freshly computed classification and result arrays to
// the profile store for the validation/diagnostics consumers. The scalar
// level counts are broadcast as length-N arrays for uniform storage.
func (c *InterpolationCheck) publish(data *domain.ProfileData, cls Classification,
	levErrors []int, tInterp []float64, numLevels int) {
	data.SetInt(domain.VarStdLev, cls.StdLev)
	data.SetInt(domain.VarSigAbove, cls.SigAbove)
	data.SetInt(domain.VarSigBelow, cls.SigBelow)
	data.SetInt(domain.VarIndStd, cls.IndStd)
	data.SetInt(domain.VarLevErrors, levErrors)
	data.SetFloat(domain.VarInterpTemperature, tInterp)
	data.SetFloat(domain.VarLogPressure, cls.LogP)

	numStd := make([]int, numLevels)
	numSig := make([]int, numLevels)
	for i := range numLevels {
		numStd[i] = cls.NumStd
		numSig[i] = cls.NumSig
	}
	data.SetInt(domain.VarNumStandardLevels, numStd)
	data.SetInt(domain.VarNumSignificantLevs, numSig)
}

func anyEmpty(sizes ...int) bool {
	for _, n := range sizes {
		if n == 0 {
			return true
		}
	}
	return false
}

func allSameSize(sizes ...int) bool {
	for _, n := range sizes[1:] {
		if n != sizes[0] {
			return false
		}
	}
	return true
}
