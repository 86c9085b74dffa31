package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifedex/lifedex/pkg/collab"
	"github.com/lifedex/lifedex/pkg/collab/mock"
)

func recordEverything(m *Manager) {
	m.RecordClassification("classified")
	m.RecordClassification("fallback")
	m.RecordSupersession()
	m.RecordIngestDuration("ok", 120*time.Millisecond)
	m.RecordCollaboratorCall("classify", "ok", 300*time.Millisecond)
	m.RecordSynthesis("synthesized", 2*time.Second)
	m.RecordSynthesis("placeholder", time.Millisecond)
	m.RecordSweepDuration(10 * time.Second)
	m.RecordRetrieval("direct", 3)
}

func TestManagerEnabled(t *testing.T) {
	m := NewManager(DefaultConfig())
	require.True(t, m.Enabled())
	recordEverything(m)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, metric := range []string{
		"memory_classifications_total",
		"memory_supersessions_total",
		"memory_ingest_duration_seconds",
		"collaborator_calls_total",
		"document_synthesis_total",
		"stale_sweep_duration_seconds",
		"context_retrievals_total",
	} {
		assert.Contains(t, body, metric)
	}
}

func TestManagerDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	m := NewManager(cfg)
	assert.False(t, m.Enabled())

	// Recording on a disabled manager is a no-op, never a panic.
	recordEverything(m)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNoOpManager(t *testing.T) {
	m := NoOpManager()
	assert.False(t, m.Enabled())
	recordEverything(m)
}

func TestInstrumentText(t *testing.T) {
	inner := &mock.TextService{
		ClassifyFunc: func(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
			return &collab.Classification{PrimaryIndex: "C001", Confidence: 0.9}, nil
		},
	}
	m := NewManager(DefaultConfig())
	svc := InstrumentText(inner, m)

	_, err := svc.Classify(context.Background(), collab.ClassifyRequest{})
	require.NoError(t, err)
	_, err = svc.Synthesize(context.Background(), collab.SynthesisRequest{})
	assert.Error(t, err) // no scripted behavior
	_, err = svc.CompareMemories(context.Background(), collab.MemorySnapshot{}, nil)
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `collaborator_calls_total{operation="classify",status="ok"} 1`)
	assert.Contains(t, body, `collaborator_calls_total{operation="synthesize",status="error"} 1`)
	assert.Contains(t, body, `collaborator_calls_total{operation="compare",status="error"} 1`)

	// A nil manager degrades to a no-op rather than a panic.
	_, err = InstrumentText(inner, nil).Classify(context.Background(), collab.ClassifyRequest{})
	assert.NoError(t, err)
}
