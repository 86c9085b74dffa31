package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// initSynthesisMetrics initializes document synthesis metrics.
func (m *Manager) initSynthesisMetrics(cfg Config) {
	m.synthesisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_synthesis_total",
			Help: "Total number of document regenerations by outcome",
		},
		[]string{"outcome"},
	)

	m.synthesisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "document_synthesis_duration_seconds",
			Help:    "Document regeneration duration in seconds",
			Buckets: cfg.SynthesisDurationBuckets,
		},
		[]string{"outcome"},
	)

	m.sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stale_sweep_duration_seconds",
			Help:    "Duration of one per-user stale document sweep in seconds",
			Buckets: cfg.SweepDurationBuckets,
		},
	)

	m.registry.MustRegister(m.synthesisRuns)
	m.registry.MustRegister(m.synthesisDuration)
	m.registry.MustRegister(m.sweepDuration)
}

// RecordSynthesis records one regeneration. Outcome is "synthesized",
// "placeholder", "skipped", or "error".
func (m *Manager) RecordSynthesis(outcome string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.synthesisRuns.WithLabelValues(outcome).Inc()
	m.synthesisDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordSweepDuration records the duration of one user's sweep.
func (m *Manager) RecordSweepDuration(duration time.Duration) {
	if !m.enabled {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
}
