package domain

import (
	"encoding/json"
	"fmt"
)

// ParseRawEvent deserializes a RawEvent's value into a Sounding. It expects
// the flat parallel-array JSON produced by the upstream sounding decoder.
//
// A missing or empty correction array is replaced with zeros so that the bias
// correction step is a no-op for stations without a modelled correction.
func ParseRawEvent(raw RawEvent) (Sounding, error) {
	var rec RawSounding
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Sounding{}, fmt.Errorf("parse raw sounding: %w", err)
	}

	correction := rec.TemperatureCorrection
	if len(correction) == 0 {
		correction = make([]float64, len(rec.Temperature))
	}

	return Sounding{
		StationID:             rec.StationID,
		LaunchTime:            rec.LaunchTime,
		Pressure:              rec.Pressure,
		Temperature:           rec.Temperature,
		BackgroundTemperature: rec.BackgroundTemperature,
		TemperatureCorrection: correction,
		Flags:                 rec.Flags,

		RawPayload: raw.Value,
	}, nil
}

// CorrectedTemperature returns tObs + correction element-wise, preserving the
// missing-data indicator: a missing observation stays missing regardless of
// the correction. Pure; inputs must be the same length.
func CorrectedTemperature(tObs, correction []float64) []float64 {
	corrected := make([]float64, len(tObs))
	for i := range tObs {
		if tObs[i] == MissingValue {
			corrected[i] = MissingValue
			continue
		}
		corrected[i] = tObs[i] + correction[i]
	}
	return corrected
}
