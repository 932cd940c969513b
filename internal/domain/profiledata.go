package domain

// Variable names keying per-profile arrays in a ProfileData store. The QC
// checks read and write arrays exclusively through these names so that checks
// stay decoupled from the wire format.
const (
	VarAirPressure           = "air_pressure"
	VarObsTemperature        = "obs_air_temperature"
	VarBkgTemperature        = "bkg_air_temperature"
	VarTemperatureCorrection = "obs_air_temperature_correction"
	VarTemperatureFlags      = "qc_air_temperature_flags"

	// Classification and result arrays published by the interpolation check.
	VarStdLev             = "std_lev"
	VarSigAbove           = "sig_above"
	VarSigBelow           = "sig_below"
	VarIndStd             = "ind_std"
	VarLevErrors          = "lev_errors"
	VarInterpTemperature  = "interp_air_temperature"
	VarLogPressure        = "log_pressure"
	VarNumStandardLevels  = "num_standard_levels"
	VarNumSignificantLevs = "num_significant_levels"

	// Profile-scoped error counters, stored as length-1 int arrays.
	CounterNumAnyErrors    = "counter_num_any_errors"
	CounterNumInterpErrors = "counter_num_interp_errors"
	CounterNumInterpErrObs = "counter_num_interp_err_obs"
)

// ProfileData is a typed key-value store holding one profile's arrays for the
// duration of a batch of checks. Checks borrow arrays with Float/Int (slices
// are shared, so in-place flag mutation is visible to later readers) and
// transfer freshly computed arrays back with SetFloat/SetInt.
//
// ProfileData is not safe for concurrent use; one check mutates one profile's
// arrays at a time.
type ProfileData struct {
	floats map[string][]float64
	ints   map[string][]int
}

// NewProfileData creates an empty store.
func NewProfileData() *ProfileData {
	return &ProfileData{
		floats: make(map[string][]float64),
		ints:   make(map[string][]int),
	}
}

// NewProfileDataFromSounding populates a store with a sounding's level arrays.
func NewProfileDataFromSounding(s *Sounding) *ProfileData {
	d := NewProfileData()
	d.SetFloat(VarAirPressure, s.Pressure)
	d.SetFloat(VarObsTemperature, s.Temperature)
	d.SetFloat(VarBkgTemperature, s.BackgroundTemperature)
	d.SetFloat(VarTemperatureCorrection, s.TemperatureCorrection)
	d.SetInt(VarTemperatureFlags, s.Flags)
	return d
}

// Float returns the float array stored under name, or nil if absent.
func (d *ProfileData) Float(name string) []float64 { return d.floats[name] }

// Int returns the int array stored under name, or nil if absent.
func (d *ProfileData) Int(name string) []int { return d.ints[name] }

// SetFloat stores a float array under name, replacing any previous value.
func (d *ProfileData) SetFloat(name string, values []float64) { d.floats[name] = values }

// SetInt stores an int array under name, replacing any previous value.
func (d *ProfileData) SetInt(name string, values []int) { d.ints[name] = values }

// Counter returns the length-1 int array stored under name, creating it at
// zero on first use. Counters accumulate across checks run against the same
// store.
func (d *ProfileData) Counter(name string) []int {
	c, ok := d.ints[name]
	if !ok || len(c) == 0 {
		c = make([]int, 1)
		d.ints[name] = c
	}
	return c
}
