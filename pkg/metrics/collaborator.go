package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lifedex/lifedex/pkg/collab"
)

// initCollaboratorMetrics initializes external collaborator call metrics.
func (m *Manager) initCollaboratorMetrics(cfg Config) {
	m.collaboratorCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_calls_total",
			Help: "Total number of external collaborator calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	m.collaboratorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collaborator_call_duration_seconds",
			Help:    "External collaborator call duration in seconds",
			Buckets: cfg.CollaboratorDurationBuckets,
		},
		[]string{"operation"},
	)

	m.registry.MustRegister(m.collaboratorCalls)
	m.registry.MustRegister(m.collaboratorDuration)
}

// RecordCollaboratorCall records one external call. Operation is one of
// "classify", "synthesize", "compare", "embed"; status is "ok" or "error".
func (m *Manager) RecordCollaboratorCall(operation, status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.collaboratorCalls.WithLabelValues(operation, status).Inc()
	m.collaboratorDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// InstrumentedTextService wraps a text service and records per-operation
// call counts and latency.
type InstrumentedTextService struct {
	inner collab.TextService
	m     *Manager
}

// InstrumentText wraps inner with collaborator metrics.
func InstrumentText(inner collab.TextService, m *Manager) *InstrumentedTextService {
	if m == nil {
		m = NoOpManager()
	}
	return &InstrumentedTextService{inner: inner, m: m}
}

func (s *InstrumentedTextService) record(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.m.RecordCollaboratorCall(operation, status, time.Since(start))
}

func (s *InstrumentedTextService) Classify(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
	start := time.Now()
	res, err := s.inner.Classify(ctx, req)
	s.record("classify", start, err)
	return res, err
}

func (s *InstrumentedTextService) Synthesize(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
	start := time.Now()
	res, err := s.inner.Synthesize(ctx, req)
	s.record("synthesize", start, err)
	return res, err
}

func (s *InstrumentedTextService) CompareMemories(ctx context.Context, newMemory collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error) {
	start := time.Now()
	res, err := s.inner.CompareMemories(ctx, newMemory, candidates)
	s.record("compare", start, err)
	return res, err
}
