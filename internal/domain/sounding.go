package domain

import (
	"context"
	"time"
)

// RawSounding is the flat JSON structure produced by the upstream sounding
// decoder. Level arrays are parallel, ordered surface first. Pressures are in
// Pa, temperatures in K.
type RawSounding struct {
	StationID  string    `json:"station_id"`
	LaunchTime time.Time `json:"launch_time"`

	Pressure              []float64 `json:"pressure"`
	Temperature           []float64 `json:"temperature"`
	BackgroundTemperature []float64 `json:"background_temperature"`
	TemperatureCorrection []float64 `json:"temperature_correction,omitempty"`
	Flags                 []int     `json:"flags"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Sounding is the domain-rich representation after parsing. The level arrays
// are the working copies the QC checks read and mutate.
type Sounding struct {
	StationID  string
	LaunchTime time.Time

	Pressure              []float64
	Temperature           []float64
	BackgroundTemperature []float64
	TemperatureCorrection []float64
	Flags                 []int

	RawPayload []byte
}

// NumLevels returns the number of levels in the profile, taken from the
// pressure array.
func (s *Sounding) NumLevels() int { return len(s.Pressure) }

// CheckedSounding is the serialized form destined for the sink topic: the
// input sounding plus everything the QC checks derived from it.
type CheckedSounding struct {
	StationID  string    `json:"station_id"`
	LaunchTime time.Time `json:"launch_time"`

	Pressure              []float64 `json:"pressure"`
	Temperature           []float64 `json:"temperature"`
	BackgroundTemperature []float64 `json:"background_temperature"`
	Flags                 []int     `json:"flags"`

	// Interpolation check results.
	InterpolatedTemperature []float64 `json:"interpolated_temperature,omitempty"`
	LevelErrors             []int     `json:"level_errors,omitempty"`
	LogPressure             []float64 `json:"log_pressure,omitempty"`
	NumStandardLevels       int       `json:"num_standard_levels"`
	NumSignificantLevels    int       `json:"num_significant_levels"`

	// Profile-scoped error counters.
	NumAnyErrors    int `json:"num_any_errors"`
	NumInterpErrors int `json:"num_interp_errors"`
	NumInterpErrObs int `json:"num_interp_err_obs"`

	ProcessedAt time.Time `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
