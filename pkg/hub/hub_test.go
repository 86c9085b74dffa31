package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifedex/lifedex/pkg/classify"
	"github.com/lifedex/lifedex/pkg/collab"
	"github.com/lifedex/lifedex/pkg/collab/mock"
	"github.com/lifedex/lifedex/pkg/conflict"
	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/retrieval"
	"github.com/lifedex/lifedex/pkg/storage/memory"
	"github.com/lifedex/lifedex/pkg/synthesis"
)

type fixture struct {
	store *memory.MemoryStore
	text  *mock.TextService
	files *mock.FileSync
	hub   *Hub
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := memory.NewMemoryStore()
	text := &mock.TextService{}
	files := &mock.FileSync{}

	classifier := classify.New(store, text, nil)
	resolver := conflict.New(store, text, nil)
	engine := synthesis.New(store, text, &mock.Embedder{}, nil)
	retriever := retrieval.New(store, &mock.Embedder{}, nil)

	opts = append([]Option{WithFileSync(files)}, opts...)
	h := New(store, classifier, resolver, engine, retriever, nil, opts...)
	return &fixture{store: store, text: text, files: files, hub: h}
}

func newMemory(id, userID, content string) *profile.Memory {
	return &profile.Memory{
		ID:         id,
		UserID:     userID,
		Content:    content,
		Category:   profile.CategoryFact,
		Importance: 6,
		CreatedAt:  time.Now(),
	}
}

func TestIngestMemoryPipeline(t *testing.T) {
	f := newFixture(t)
	f.text.ClassifyFunc = func(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
		return &collab.Classification{
			PrimaryIndex:   "C001",
			RelatedIndices: []string{"C002"},
			Confidence:     0.9,
		}, nil
	}
	f.text.CompareFunc = func(ctx context.Context, newMem collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error) {
		return &collab.Comparison{}, nil
	}

	ctx := context.Background()
	res, err := f.hub.IngestMemory(ctx, newMemory("m1", "u1", "works as a nurse"))
	require.NoError(t, err)

	assert.Equal(t, "C001", res.Directive.PrimaryIndexCode)
	assert.Equal(t, []string{"C001", "C002"}, directiveCodes(res.Directive))
	assert.Len(t, res.TouchedDocumentIDs, 2)
	assert.NotNil(t, res.Resolution)

	saved, err := f.store.GetMemory(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "works as a nurse", saved.Content)

	doc, err := f.store.GetDocumentByCode(ctx, "u1", "C001")
	require.NoError(t, err)
	assert.Equal(t, profile.StatusDraft, doc.Status)
	assert.True(t, doc.NeedsRegeneration)

	assert.Contains(t, f.hub.ActiveUsers(), "u1")
}

func directiveCodes(d *profile.IndexDirective) []string {
	return append([]string{d.PrimaryIndexCode}, d.RelatedIndexCodes...)
}

func TestIngestMemorySupersession(t *testing.T) {
	f := newFixture(t)
	f.text.ClassifyFunc = func(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
		return &collab.Classification{PrimaryIndex: "C001", Confidence: 0.8}, nil
	}
	f.text.CompareFunc = func(ctx context.Context, newMem collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error) {
		return &collab.Comparison{Supersedes: []string{"m1"}}, nil
	}

	ctx := context.Background()
	_, err := f.hub.IngestMemory(ctx, newMemory("m1", "u1", "lives in Austin"))
	require.NoError(t, err)

	res, err := f.hub.IngestMemory(ctx, newMemory("m2", "u1", "moved to Denver"))
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, res.Resolution.Supersedes)

	old, err := f.store.GetMemory(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, old.Metadata.Superseded())
	assert.Equal(t, 1, old.Importance)
	assert.Equal(t, "new_memory", old.Metadata.SupersededBy)
	assert.NotNil(t, old.Metadata.SupersededAt)
}

func TestRegenerateDocument(t *testing.T) {
	f := newFixture(t)
	f.text.ClassifyFunc = func(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
		return &collab.Classification{PrimaryIndex: "C001", Confidence: 0.9}, nil
	}
	f.text.CompareFunc = func(ctx context.Context, newMem collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error) {
		return &collab.Comparison{}, nil
	}
	f.text.SynthesizeFunc = func(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
		return &collab.SynthesisResult{
			Title:   "Current Occupation",
			Summary: "Works as a nurse.",
			Content: "The user works as a nurse at a hospital.",
		}, nil
	}

	ctx := context.Background()
	_, err := f.hub.IngestMemory(ctx, newMemory("m1", "u1", "works as a nurse"))
	require.NoError(t, err)

	doc, err := f.hub.RegenerateDocument(ctx, "u1", "C001", false)
	require.NoError(t, err)
	assert.Equal(t, profile.StatusActive, doc.Status)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, 1, doc.MemoryCount)
	assert.False(t, doc.NeedsRegeneration)

	// Export is fire-and-forget.
	assert.Eventually(t, func() bool {
		return f.files.ExportedCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRegenerateDocumentUnknownCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.hub.RegenerateDocument(context.Background(), "u1", "Z999", false)
	assert.Error(t, err)
}

func TestExportDocument(t *testing.T) {
	f := newFixture(t)
	f.text.ClassifyFunc = func(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
		return &collab.Classification{PrimaryIndex: "A001", Confidence: 0.7}, nil
	}
	f.text.CompareFunc = func(ctx context.Context, newMem collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error) {
		return &collab.Comparison{}, nil
	}

	ctx := context.Background()
	_, err := f.hub.IngestMemory(ctx, newMemory("m1", "u1", "born in 1990"))
	require.NoError(t, err)

	res, err := f.hub.ExportDocument(ctx, "u1", "A001")
	require.NoError(t, err)
	assert.Equal(t, "u1/A001", res.FileID)
	assert.Equal(t, 1, f.files.ExportedCount())
}

func TestRetrieveContextRecordsMode(t *testing.T) {
	f := newFixture(t)
	f.text.ClassifyFunc = func(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
		return &collab.Classification{PrimaryIndex: "C001", Confidence: 0.9}, nil
	}
	f.text.CompareFunc = func(ctx context.Context, newMem collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error) {
		return &collab.Comparison{}, nil
	}
	f.text.SynthesizeFunc = func(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
		return &collab.SynthesisResult{Title: "t", Summary: "s", Content: "c"}, nil
	}

	ctx := context.Background()
	_, err := f.hub.IngestMemory(ctx, newMemory("m1", "u1", "works as a nurse"))
	require.NoError(t, err)
	_, err = f.hub.RegenerateDocument(ctx, "u1", "C001", false)
	require.NoError(t, err)

	res, err := f.hub.RetrieveContext(ctx, "u1", retrieval.Request{IndexCodes: []string{"C001"}})
	require.NoError(t, err)
	assert.Equal(t, "direct", res.Mode)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "C001", res.Documents[0].IndexCode)
}

func TestRecordMessageAdvancesPhase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.hub.RecordMessage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalMessageCount)
	assert.Equal(t, profile.PhaseNew, p.OnboardingPhase)

	for i := 0; i < 4; i++ {
		p, err = f.hub.RecordMessage(ctx, "u1")
		require.NoError(t, err)
	}
	assert.Equal(t, 5, p.TotalMessageCount)
	assert.Equal(t, profile.PhaseGettingAcquainted, p.OnboardingPhase)
}

func TestOnboardingSuggestionRecordsQuestion(t *testing.T) {
	f := newFixture(t, WithRand(mock.FixedRand{Value: 0}))
	ctx := context.Background()

	sugg, err := f.hub.OnboardingSuggestion(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, sugg.Question)
	assert.NotEmpty(t, sugg.Area)
	assert.Equal(t, profile.PhaseNew, sugg.Phase)

	p, err := f.store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, p.AskedQuestions, 1)
	assert.Equal(t, sugg.Question, p.AskedQuestions[0].Text)
}

func TestOnboardingSuggestionSuppressed(t *testing.T) {
	f := newFixture(t, WithRand(mock.FixedRand{Value: 1}))
	ctx := context.Background()

	sugg, err := f.hub.OnboardingSuggestion(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sugg.Question)

	// No question means no profile write for a fresh user.
	_, err = f.store.GetProfile(ctx, "u1")
	assert.Error(t, err)
}

func TestRecomputeProfile(t *testing.T) {
	f := newFixture(t)
	f.text.ClassifyFunc = func(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
		return &collab.Classification{PrimaryIndex: "C001", Confidence: 0.9}, nil
	}
	f.text.CompareFunc = func(ctx context.Context, newMem collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error) {
		return &collab.Comparison{}, nil
	}

	ctx := context.Background()
	mem := newMemory("m1", "u1", "works as a nurse at the hospital")
	_, err := f.hub.IngestMemory(ctx, mem)
	require.NoError(t, err)

	p, err := f.hub.RecomputeProfile(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, p.KnowledgeScores)

	stored, err := f.store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.KnowledgeScores, stored.KnowledgeScores)
}

func TestSweepStaleDefaultsToActiveUsers(t *testing.T) {
	f := newFixture(t)
	f.text.ClassifyFunc = func(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
		return &collab.Classification{PrimaryIndex: "C001", Confidence: 0.9}, nil
	}
	f.text.CompareFunc = func(ctx context.Context, newMem collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error) {
		return &collab.Comparison{}, nil
	}
	f.text.SynthesizeFunc = func(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
		return &collab.SynthesisResult{Title: "t", Summary: "s", Content: "c"}, nil
	}

	ctx := context.Background()
	_, err := f.hub.IngestMemory(ctx, newMemory("m1", "u1", "works as a nurse"))
	require.NoError(t, err)

	require.NoError(t, f.hub.SweepStale(ctx, nil))

	doc, err := f.store.GetDocumentByCode(ctx, "u1", "C001")
	require.NoError(t, err)
	assert.Equal(t, profile.StatusActive, doc.Status)
	assert.False(t, doc.NeedsRegeneration)
}
