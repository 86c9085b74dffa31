package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// initIngestMetrics initializes memory ingestion metrics.
func (m *Manager) initIngestMetrics(cfg Config) {
	m.classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_classifications_total",
			Help: "Total number of memory classifications by outcome",
		},
		[]string{"outcome"},
	)

	m.supersessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "memory_supersessions_total",
			Help: "Total number of memories soft-deleted by supersession",
		},
	)

	m.ingestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memory_ingest_duration_seconds",
			Help:    "Duration of the full ingest pipeline in seconds",
			Buckets: cfg.IngestDurationBuckets,
		},
		[]string{"status"},
	)

	m.registry.MustRegister(m.classifications)
	m.registry.MustRegister(m.supersessions)
	m.registry.MustRegister(m.ingestDuration)
}

// RecordClassification records a classification event. Outcome is
// "classified" or "fallback".
func (m *Manager) RecordClassification(outcome string) {
	if !m.enabled {
		return
	}
	m.classifications.WithLabelValues(outcome).Inc()
}

// RecordSupersession records a memory soft-delete.
func (m *Manager) RecordSupersession() {
	if !m.enabled {
		return
	}
	m.supersessions.Inc()
}

// RecordIngestDuration records the duration of one ingest pipeline run.
func (m *Manager) RecordIngestDuration(status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.ingestDuration.WithLabelValues(status).Observe(duration.Seconds())
}
