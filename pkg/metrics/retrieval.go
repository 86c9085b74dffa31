package metrics

import "github.com/prometheus/client_golang/prometheus"

// initRetrievalMetrics initializes context retrieval metrics.
func (m *Manager) initRetrievalMetrics(cfg Config) {
	m.retrievalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "context_retrievals_total",
			Help: "Total number of context retrievals by mode",
		},
		[]string{"mode"},
	)

	m.retrievalDocuments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "context_retrieval_documents",
			Help:    "Number of documents returned per retrieval",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	m.registry.MustRegister(m.retrievalRequests)
	m.registry.MustRegister(m.retrievalDocuments)
}

// RecordRetrieval records one retrieval. Mode is "direct", "semantic",
// or "default".
func (m *Manager) RecordRetrieval(mode string, documents int) {
	if !m.enabled {
		return
	}
	m.retrievalRequests.WithLabelValues(mode).Inc()
	m.retrievalDocuments.Observe(float64(documents))
}
