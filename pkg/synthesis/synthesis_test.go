package synthesis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifedex/lifedex/pkg/collab"
	"github.com/lifedex/lifedex/pkg/collab/mock"
	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/storage/memory"
)

type env struct {
	store *memory.MemoryStore
	text  *mock.TextService
}

func newEnv() *env {
	return &env{store: memory.NewMemoryStore(), text: &mock.TextService{}}
}

func (e *env) engine(opts ...Option) *Engine {
	return New(e.store, e.text, &mock.Embedder{}, nil, opts...)
}

func (e *env) document(t *testing.T, code string) *profile.IndexDocument {
	t.Helper()
	doc := &profile.IndexDocument{
		ID:                uuid.NewString(),
		UserID:            "u1",
		IndexCode:         code,
		Title:             "placeholder",
		Status:            profile.StatusDraft,
		NeedsRegeneration: true,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	require.NoError(t, e.store.CreateDocument(context.Background(), doc))
	return doc
}

func (e *env) attach(t *testing.T, doc *profile.IndexDocument, memID, content string, importance int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.SaveMemory(ctx, &profile.Memory{
		ID:         memID,
		UserID:     doc.UserID,
		Content:    content,
		Category:   profile.CategoryFact,
		Importance: importance,
		CreatedAt:  time.Now(),
	}))
	_, err := e.store.CreateMapping(ctx, &profile.MemoryIndexMapping{
		ID:           uuid.NewString(),
		MemoryID:     memID,
		DocumentID:   doc.ID,
		Contribution: profile.ContributionPrimary,
		Relevance:    0.9,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
}

func TestRegeneratePlaceholder(t *testing.T) {
	e := newEnv()
	doc := e.document(t, "C001")

	updated, err := e.engine().Regenerate(context.Background(), doc, false)
	require.NoError(t, err)

	assert.Equal(t, "Current Occupation", updated.Title)
	assert.Equal(t, "no memories yet", updated.Summary)
	assert.Equal(t, []string{"gather more information"}, updated.Recommendations)
	assert.Equal(t, 0.0, updated.Confidence)
	assert.Equal(t, profile.StatusDraft, updated.Status)
	assert.Equal(t, 0, updated.Version, "placeholder must not bump the version")
	assert.False(t, updated.NeedsRegeneration)
	assert.Equal(t, 0, e.text.SynthesizeCalls, "placeholder must not call the collaborator")
}

func TestRegenerateSynthesizes(t *testing.T) {
	e := newEnv()
	e.text.SynthesizeFunc = func(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
		assert.Equal(t, "Career & Work", req.DomainName)
		assert.Equal(t, "Current Occupation", req.TopicName)
		assert.Empty(t, req.PriorContent)
		return &collab.SynthesisResult{
			Title:           "Current Occupation",
			Summary:         "Works as a nurse.",
			Content:         "The user is a nurse at a city hospital.",
			KeyInsights:     []string{"night shifts"},
			Recommendations: []string{"ask about the new ward"},
			Confidence:      0.8,
		}, nil
	}

	doc := e.document(t, "C001")
	e.attach(t, doc, "m1", "works as a nurse", 6)

	updated, err := e.engine().Regenerate(context.Background(), doc, false)
	require.NoError(t, err)

	assert.Equal(t, profile.StatusActive, updated.Status)
	assert.Equal(t, 1, updated.Version)
	assert.Equal(t, 1, updated.MemoryCount)
	assert.Equal(t, []string{"m1"}, updated.SourceMemoryIDs)
	assert.Equal(t, 0.8, updated.Confidence)
	assert.NotEmpty(t, updated.Embedding)
	assert.False(t, updated.NeedsRegeneration)

	stored, err := e.store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
}

func TestRegenerateGate(t *testing.T) {
	e := newEnv()
	doc := e.document(t, "C001")
	doc.Status = profile.StatusActive
	doc.NeedsRegeneration = false
	require.NoError(t, e.store.UpdateDocument(context.Background(), doc, 0))
	stored, err := e.store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)

	updated, err := e.engine().Regenerate(context.Background(), stored, false)
	require.NoError(t, err)
	assert.Equal(t, stored, updated, "unflagged active document must come back unchanged")
	assert.Equal(t, 0, e.text.SynthesizeCalls)
}

func TestRegenerateForceBypassesGate(t *testing.T) {
	e := newEnv()
	e.text.SynthesizeFunc = func(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
		return &collab.SynthesisResult{Title: "t", Summary: "s", Content: "c", Confidence: 0.5}, nil
	}
	doc := e.document(t, "C001")
	e.attach(t, doc, "m1", "works as a nurse", 6)

	first, err := e.engine().Regenerate(context.Background(), doc, false)
	require.NoError(t, err)
	require.Equal(t, 1, first.Version)

	second, err := e.engine().Regenerate(context.Background(), first, true)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 2, e.text.SynthesizeCalls)
}

func TestRegeneratePassesPriorContent(t *testing.T) {
	e := newEnv()
	var priors []string
	e.text.SynthesizeFunc = func(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
		priors = append(priors, req.PriorContent)
		return &collab.SynthesisResult{Title: "t", Summary: "s", Content: "first version", Confidence: 0.5}, nil
	}
	doc := e.document(t, "C001")
	e.attach(t, doc, "m1", "works as a nurse", 6)

	first, err := e.engine().Regenerate(context.Background(), doc, false)
	require.NoError(t, err)
	_, err = e.engine().Regenerate(context.Background(), first, true)
	require.NoError(t, err)

	require.Len(t, priors, 2)
	assert.Empty(t, priors[0])
	assert.Equal(t, "first version", priors[1])
}

func TestRegenerateCancellationLeavesStateUntouched(t *testing.T) {
	e := newEnv()
	ctx, cancel := context.WithCancel(context.Background())
	e.text.SynthesizeFunc = func(_ context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
		cancel()
		return &collab.SynthesisResult{Title: "t", Summary: "s", Content: "c", Confidence: 0.5}, nil
	}
	doc := e.document(t, "C001")
	e.attach(t, doc, "m1", "works as a nurse", 6)

	_, err := e.engine().Regenerate(ctx, doc, false)
	require.Error(t, err)

	stored, getErr := e.store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 0, stored.Version)
	assert.True(t, stored.NeedsRegeneration)
	assert.Equal(t, profile.StatusDraft, stored.Status)
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Now()
	fresh := func(n int, importance int) []*profile.Memory {
		out := make([]*profile.Memory, n)
		for i := range out {
			out[i] = &profile.Memory{ID: uuid.NewString(), Importance: importance}
		}
		return out
	}
	recent := &profile.IndexDocument{Status: profile.StatusActive, UpdatedAt: now.Add(-time.Hour)}
	old := &profile.IndexDocument{Status: profile.StatusActive, UpdatedAt: now.Add(-8 * 24 * time.Hour)}
	stale := &profile.IndexDocument{Status: profile.StatusStale, UpdatedAt: now}

	tests := []struct {
		name string
		doc  *profile.IndexDocument
		new  []*profile.Memory
		want bool
	}{
		{"stale status alone", stale, nil, true},
		{"three new memories", recent, fresh(3, 5), true},
		{"two new memories recent doc", recent, fresh(2, 5), false},
		{"one high importance memory", recent, fresh(1, 8), true},
		{"one ordinary memory recent doc", recent, fresh(1, 5), false},
		{"one ordinary memory old doc", old, fresh(1, 5), true},
		{"old doc no new memories", old, nil, false},
		{"nothing new", recent, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsRefresh(tt.doc, tt.new, now))
		})
	}
}

func TestSweepUserSkipsFreshDocuments(t *testing.T) {
	e := newEnv()
	e.text.SynthesizeFunc = func(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
		return &collab.SynthesisResult{Title: "t", Summary: "s", Content: "c", Confidence: 0.5}, nil
	}
	eng := e.engine()
	ctx := context.Background()

	flagged := e.document(t, "C001")
	e.attach(t, flagged, "m1", "works as a nurse", 6)

	settled := e.document(t, "A001")
	e.attach(t, settled, "m2", "born in 1990", 5)
	first, err := eng.Regenerate(ctx, settled, false)
	require.NoError(t, err)
	require.Equal(t, 1, first.Version)

	require.NoError(t, eng.SweepUser(ctx, "u1"))

	doc1, err := e.store.GetDocumentByCode(ctx, "u1", "C001")
	require.NoError(t, err)
	assert.Equal(t, profile.StatusActive, doc1.Status)
	assert.Equal(t, 1, doc1.Version)

	doc2, err := e.store.GetDocumentByCode(ctx, "u1", "A001")
	require.NoError(t, err)
	assert.Equal(t, 1, doc2.Version, "settled document must not be regenerated by the sweep")
}

func TestSweepAcrossUsers(t *testing.T) {
	e := newEnv()
	e.text.SynthesizeFunc = func(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
		return &collab.SynthesisResult{Title: "t", Summary: "s", Content: "c", Confidence: 0.5}, nil
	}
	eng := e.engine(WithSweepConcurrency(2))
	ctx := context.Background()

	for _, userID := range []string{"u1", "u2", "u3"} {
		doc := &profile.IndexDocument{
			ID:                uuid.NewString(),
			UserID:            userID,
			IndexCode:         "C001",
			Status:            profile.StatusDraft,
			NeedsRegeneration: true,
			CreatedAt:         time.Now(),
			UpdatedAt:         time.Now(),
		}
		require.NoError(t, e.store.CreateDocument(ctx, doc))
		e.attach(t, doc, "mem-"+userID, "works hard", 6)
	}

	require.NoError(t, eng.Sweep(ctx, []string{"u1", "u2", "u3"}))

	for _, userID := range []string{"u1", "u2", "u3"} {
		doc, err := e.store.GetDocumentByCode(ctx, userID, "C001")
		require.NoError(t, err)
		assert.Equal(t, profile.StatusActive, doc.Status, "user %s", userID)
	}
}
