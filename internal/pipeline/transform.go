package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/skewtlabs/sonde-qc/internal/domain"
	"github.com/skewtlabs/sonde-qc/internal/observability"
	"github.com/skewtlabs/sonde-qc/internal/qc"
)

// SoundingTransformer implements Transformer by parsing a raw sounding,
// running the interpolation consistency check through a per-profile data
// store, and serializing the checked result.
type SoundingTransformer struct {
	check   *qc.InterpolationCheck
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTransformer creates a SoundingTransformer.
func NewTransformer(check *qc.InterpolationCheck, metrics *observability.Metrics, logger *slog.Logger) *SoundingTransformer {
	return &SoundingTransformer{
		check:   check,
		metrics: metrics,
		logger:  logger,
	}
}

func (t *SoundingTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	sounding, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	data := domain.NewProfileDataFromSounding(&sounding)
	t.check.Run(data)

	checked := buildCheckedSounding(&sounding, data)

	t.metrics.LevelsPerProfile.Observe(float64(sounding.NumLevels()))
	t.metrics.LevelsFlagged.Add(float64(checked.NumInterpErrors))
	if checked.NumInterpErrObs > 0 {
		t.metrics.ProfilesFlagged.Inc()
	}
	// The check publishes result arrays only for structurally valid profiles.
	if data.Int(domain.VarLevErrors) == nil {
		t.metrics.ProfilesSkipped.Inc()
	}

	return serializeToOutput(checked)
}

// buildCheckedSounding assembles the sink-topic representation from the
// profile store after the check has run. For profiles the check skipped, the
// result arrays are absent and the counters are zero.
func buildCheckedSounding(s *domain.Sounding, data *domain.ProfileData) domain.CheckedSounding {
	checked := domain.CheckedSounding{
		StationID:  s.StationID,
		LaunchTime: s.LaunchTime,

		Pressure:              s.Pressure,
		Temperature:           s.Temperature,
		BackgroundTemperature: s.BackgroundTemperature,
		Flags:                 data.Int(domain.VarTemperatureFlags),

		InterpolatedTemperature: data.Float(domain.VarInterpTemperature),
		LevelErrors:             data.Int(domain.VarLevErrors),
		LogPressure:             data.Float(domain.VarLogPressure),

		ProcessedAt: domain.Now(),
	}

	if numStd := data.Int(domain.VarNumStandardLevels); len(numStd) > 0 {
		checked.NumStandardLevels = numStd[0]
	}
	if numSig := data.Int(domain.VarNumSignificantLevs); len(numSig) > 0 {
		checked.NumSignificantLevels = numSig[0]
	}
	if c := data.Int(domain.CounterNumAnyErrors); len(c) > 0 {
		checked.NumAnyErrors = c[0]
	}
	if c := data.Int(domain.CounterNumInterpErrors); len(c) > 0 {
		checked.NumInterpErrors = c[0]
	}
	if c := data.Int(domain.CounterNumInterpErrObs); len(c) > 0 {
		checked.NumInterpErrObs = c[0]
	}

	return checked
}

// serializeToOutput marshals a CheckedSounding into an output event keyed by
// station and launch time.
func serializeToOutput(checked domain.CheckedSounding) (domain.OutputEvent, error) {
	value, err := json.Marshal(checked)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize checked sounding: %w", err)
	}
	return domain.OutputEvent{
		Key:   []byte(checked.StationID + "|" + checked.LaunchTime.UTC().Format(time.RFC3339)),
		Value: value,
		Headers: map[string]string{
			"station_id":   checked.StationID,
			"processed_at": checked.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
