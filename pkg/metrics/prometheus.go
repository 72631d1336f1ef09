package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	horizonSteps  *prometheus.GaugeVec
}

// New creates a Prometheus recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_forecast_runs_total",
				Help: "Forecast pipeline runs by asset and outcome",
			},
			[]string{"asset", "outcome"},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricecast_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		horizonSteps: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricecast_horizon_steps",
				Help: "Forecast horizon of the latest run per asset, in days",
			},
			[]string{"asset"},
		),
	}
}

// RecordRun counts a finished run.
func (r *Recorder) RecordRun(asset, outcome string) {
	r.runsTotal.WithLabelValues(asset, outcome).Inc()
}

// RecordStage records stage latency.
func (r *Recorder) RecordStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordHorizon records the horizon of the latest run.
func (r *Recorder) RecordHorizon(asset string, steps int) {
	r.horizonSteps.WithLabelValues(asset).Set(float64(steps))
}
