package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the QC
// pipeline.
type Metrics struct {
	SoundingsConsumed prometheus.Counter
	SoundingsProduced prometheus.Counter
	TransformErrors   prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// QC check metrics, aggregated across profiles.
	ProfilesFlagged  prometheus.Counter
	LevelsFlagged    prometheus.Counter
	ProfilesSkipped  prometheus.Counter
	LevelsPerProfile prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SoundingsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_qc",
			Name:      "soundings_consumed_total",
			Help:      "Total soundings read from the source topic.",
		}),
		SoundingsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_qc",
			Name:      "soundings_produced_total",
			Help:      "Total checked soundings written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_qc",
			Name:      "transform_errors_total",
			Help:      "Total parse/transform failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sonde_qc",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sonde_qc",
			Name:      "batch_size",
			Help:      "Number of soundings per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sonde_qc",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-check-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ProfilesFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_qc",
			Name:      "profiles_flagged_total",
			Help:      "Profiles with at least one failed interpolation check.",
		}),
		LevelsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_qc",
			Name:      "levels_flagged_total",
			Help:      "Standard levels that failed the interpolation check.",
		}),
		ProfilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonde_qc",
			Name:      "profiles_skipped_total",
			Help:      "Profiles skipped because of malformed level arrays.",
		}),
		LevelsPerProfile: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sonde_qc",
			Name:      "levels_per_profile",
			Help:      "Number of levels per processed sounding.",
			Buckets:   []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000},
		}),
	}

	prometheus.MustRegister(
		m.SoundingsConsumed,
		m.SoundingsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ProfilesFlagged,
		m.LevelsFlagged,
		m.ProfilesSkipped,
		m.LevelsPerProfile,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SoundingsConsumed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_qc", Name: "soundings_consumed_total"}),
		SoundingsProduced:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_qc", Name: "soundings_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_qc", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "sonde_qc", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sonde_qc", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sonde_qc", Name: "batch_processing_duration_seconds"}),
		ProfilesFlagged:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_qc", Name: "profiles_flagged_total"}),
		LevelsFlagged:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_qc", Name: "levels_flagged_total"}),
		ProfilesSkipped:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sonde_qc", Name: "profiles_skipped_total"}),
		LevelsPerProfile:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sonde_qc", Name: "levels_per_profile"}),
	}
}
