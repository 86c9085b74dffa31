// Package hub wires the ingestion, synthesis, retrieval, and profiling
// components behind one facade. All public entry points are request
// scoped and safe for concurrent use.
package hub

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/lifedex/lifedex/pkg/classify"
	"github.com/lifedex/lifedex/pkg/collab"
	"github.com/lifedex/lifedex/pkg/conflict"
	"github.com/lifedex/lifedex/pkg/metrics"
	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/retrieval"
	"github.com/lifedex/lifedex/pkg/scoring"
	"github.com/lifedex/lifedex/pkg/storage"
	"github.com/lifedex/lifedex/pkg/synthesis"
	"github.com/lifedex/lifedex/pkg/taxonomy"
)

// recentQuestionWindow bounds which asked questions count as recent for
// gap exclusion.
const recentQuestionWindow = 7 * 24 * time.Hour

// hubLogger is the minimal logger interface used by the Hub.
type hubLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// nopLogger is a no-op logger.
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}

// Option configures a Hub.
type Option func(*Hub)

// WithFileSync attaches a file-sync collaborator for document export.
func WithFileSync(fs collab.FileSync) Option {
	return func(h *Hub) { h.fileSync = fs }
}

// WithMetrics attaches a metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithRand overrides the randomness source gating onboarding questions.
func WithRand(r scoring.Rand) Option {
	return func(h *Hub) { h.rand = r }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// Hub is the facade over the profile pipeline.
type Hub struct {
	store      storage.Store
	classifier *classify.Classifier
	resolver   *conflict.Resolver
	engine     *synthesis.Engine
	retriever  *retrieval.Retriever
	fileSync   collab.FileSync
	metrics    *metrics.Manager
	log        hubLogger
	rand       scoring.Rand
	tracer     trace.Tracer
	now        func() time.Time

	// docMu serializes regeneration per (userID, indexCode). The
	// version CAS in the store is the backstop.
	docMuMu sync.Mutex
	docMu   map[string]*sync.Mutex

	// users tracks which users this process has touched, so the
	// periodic sweep knows whom to visit.
	usersMu sync.Mutex
	users   map[string]struct{}
}

// New creates a Hub.
func New(store storage.Store, classifier *classify.Classifier, resolver *conflict.Resolver,
	engine *synthesis.Engine, retriever *retrieval.Retriever, log hubLogger, opts ...Option) *Hub {
	if log == nil {
		log = nopLogger{}
	}
	h := &Hub{
		store:      store,
		classifier: classifier,
		resolver:   resolver,
		engine:     engine,
		retriever:  retriever,
		metrics:    metrics.NoOpManager(),
		log:        log,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		tracer:     otel.Tracer("lifedex/hub"),
		now:        time.Now,
	}
	h.docMu = make(map[string]*sync.Mutex)
	h.users = make(map[string]struct{})
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) markUser(userID string) {
	h.usersMu.Lock()
	h.users[userID] = struct{}{}
	h.usersMu.Unlock()
}

// ActiveUsers lists every user this process has ingested or messaged
// for since start.
func (h *Hub) ActiveUsers() []string {
	h.usersMu.Lock()
	defer h.usersMu.Unlock()
	ids := make([]string, 0, len(h.users))
	for id := range h.users {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) lockDocument(userID, indexCode string) func() {
	key := userID + "/" + indexCode
	h.docMuMu.Lock()
	mu, ok := h.docMu[key]
	if !ok {
		mu = &sync.Mutex{}
		h.docMu[key] = mu
	}
	h.docMuMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// IngestResult describes the outcome of ingesting one memory.
type IngestResult struct {
	Directive          *profile.IndexDirective
	Resolution         *conflict.Resolution
	TouchedDocumentIDs []string
}

// IngestMemory runs the full pipeline for a new memory: persist,
// classify into the taxonomy, and resolve conflicts against history.
// Touched documents are flagged for regeneration, not regenerated
// inline.
func (h *Hub) IngestMemory(ctx context.Context, mem *profile.Memory) (*IngestResult, error) {
	ctx, span := h.tracer.Start(ctx, "hub.IngestMemory")
	defer span.End()
	start := h.now()

	h.markUser(mem.UserID)
	mem.Importance = profile.ClampImportance(mem.Importance)
	if err := h.store.SaveMemory(ctx, mem); err != nil {
		h.metrics.RecordIngestDuration("error", h.now().Sub(start))
		return nil, fmt.Errorf("hub: save memory %s: %w", mem.ID, err)
	}

	clsResult, err := h.classifier.Classify(ctx, mem)
	if err != nil {
		h.metrics.RecordIngestDuration("error", h.now().Sub(start))
		return nil, err
	}
	if clsResult.Fallback {
		h.metrics.RecordClassification("fallback")
	} else {
		h.metrics.RecordClassification("classified")
	}

	resolution, err := h.resolver.Resolve(ctx, mem)
	if err != nil {
		h.metrics.RecordIngestDuration("error", h.now().Sub(start))
		return nil, err
	}
	for range resolution.Supersedes {
		h.metrics.RecordSupersession()
	}

	h.metrics.RecordIngestDuration("ok", h.now().Sub(start))
	h.log.Info("memory ingested",
		"memory_id", mem.ID,
		"user_id", mem.UserID,
		"primary_index", clsResult.Directive.PrimaryIndexCode,
		"superseded", len(resolution.Supersedes),
	)
	return &IngestResult{
		Directive:          clsResult.Directive,
		Resolution:         resolution,
		TouchedDocumentIDs: clsResult.DocumentIDs,
	}, nil
}

// RegenerateDocument refreshes the document for (userID, indexCode),
// serialized per document identity.
func (h *Hub) RegenerateDocument(ctx context.Context, userID, indexCode string, force bool) (*profile.IndexDocument, error) {
	ctx, span := h.tracer.Start(ctx, "hub.RegenerateDocument")
	defer span.End()

	if !taxonomy.Valid(indexCode) {
		return nil, fmt.Errorf("hub: unknown index code %q", indexCode)
	}
	unlock := h.lockDocument(userID, indexCode)
	defer unlock()

	doc, err := h.store.GetDocumentByCode(ctx, userID, indexCode)
	if err != nil {
		return nil, err
	}

	start := h.now()
	updated, err := h.engine.Regenerate(ctx, doc, force)
	if err != nil {
		h.metrics.RecordSynthesis("error", h.now().Sub(start))
		return nil, err
	}
	switch {
	case updated.Version == doc.Version && updated.Status == doc.Status:
		h.metrics.RecordSynthesis("skipped", h.now().Sub(start))
	case updated.Status == profile.StatusDraft:
		h.metrics.RecordSynthesis("placeholder", h.now().Sub(start))
	default:
		h.metrics.RecordSynthesis("synthesized", h.now().Sub(start))
	}

	h.retriever.Invalidate(userID)
	h.exportAsync(updated)
	return updated, nil
}

// exportAsync pushes a synthesized document to the file-sync
// collaborator. Failures never roll back the write.
func (h *Hub) exportAsync(doc *profile.IndexDocument) {
	if h.fileSync == nil || doc.Status != profile.StatusActive {
		return
	}
	export := collab.ExportDocument{
		UserID:    doc.UserID,
		IndexCode: doc.IndexCode,
		Title:     doc.Title,
		Body:      doc.Content,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := h.fileSync.UpsertDocument(ctx, export); err != nil {
			h.log.Warn("document export failed",
				"user_id", export.UserID, "index_code", export.IndexCode, "error", err)
		}
	}()
}

// ExportDocument synchronously pushes one document to the file-sync
// collaborator.
func (h *Hub) ExportDocument(ctx context.Context, userID, indexCode string) (*collab.SyncResult, error) {
	if h.fileSync == nil {
		return nil, fmt.Errorf("hub: no file-sync collaborator configured")
	}
	doc, err := h.store.GetDocumentByCode(ctx, userID, indexCode)
	if err != nil {
		return nil, err
	}
	return h.fileSync.UpsertDocument(ctx, collab.ExportDocument{
		UserID:    doc.UserID,
		IndexCode: doc.IndexCode,
		Title:     doc.Title,
		Body:      doc.Content,
	})
}

// SweepStale regenerates every flagged or stale document for the given
// users, sequential within a user and parallel across users. A nil
// slice sweeps every user this process has seen.
func (h *Hub) SweepStale(ctx context.Context, userIDs []string) error {
	ctx, span := h.tracer.Start(ctx, "hub.SweepStale")
	defer span.End()

	if userIDs == nil {
		userIDs = h.ActiveUsers()
	}
	start := h.now()
	err := h.engine.Sweep(ctx, userIDs)
	h.metrics.RecordSweepDuration(h.now().Sub(start))
	for _, userID := range userIDs {
		h.retriever.Invalidate(userID)
	}
	return err
}

// RetrieveContext returns ranked profile context for a user.
func (h *Hub) RetrieveContext(ctx context.Context, userID string, req retrieval.Request) (*retrieval.Result, error) {
	ctx, span := h.tracer.Start(ctx, "hub.RetrieveContext")
	defer span.End()

	res, err := h.retriever.Retrieve(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	h.metrics.RecordRetrieval(res.Mode, len(res.Documents))
	return res, nil
}

// loadOrInitProfile returns the stored knowledge profile, or a fresh
// one for a user seen for the first time.
func (h *Hub) loadOrInitProfile(ctx context.Context, userID string) (*profile.KnowledgeProfile, error) {
	p, err := h.store.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !storage.IsNotFound(err) {
		return nil, fmt.Errorf("hub: load profile %s: %w", userID, err)
	}
	return &profile.KnowledgeProfile{
		UserID:          userID,
		OnboardingPhase: profile.PhaseNew,
		KnowledgeScores: make(map[string]profile.AreaScore),
	}, nil
}

// RecordMessage counts one conversation message and recomputes the
// onboarding phase.
func (h *Hub) RecordMessage(ctx context.Context, userID string) (*profile.KnowledgeProfile, error) {
	h.markUser(userID)
	p, err := h.loadOrInitProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.TotalMessageCount++
	p.OnboardingPhase = profile.PhaseForMessageCount(p.TotalMessageCount)
	p.UpdatedAt = h.now()
	if err := h.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("hub: save profile %s: %w", userID, err)
	}
	return p, nil
}

// Suggestion is an onboarding question suggestion.
type Suggestion struct {
	Question              string
	Area                  taxonomy.Area
	Phase                 profile.OnboardingPhase
	TopGaps               []scoring.Gap
	OverallKnowledgeLevel float64
}

// OnboardingSuggestion scores the user's coverage and possibly surfaces
// one question. A surfaced question is recorded as asked.
func (h *Hub) OnboardingSuggestion(ctx context.Context, userID string) (*Suggestion, error) {
	p, err := h.loadOrInitProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	memories, err := h.store.ListMemoriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("hub: list memories for %s: %w", userID, err)
	}

	texts, areas := h.recentQuestions(p)
	out := scoring.Score(scoring.Input{
		TotalMessageCount:   p.TotalMessageCount,
		Memories:            memories,
		RecentQuestionTexts: texts,
		RecentQuestionAreas: areas,
	}, h.rand)

	sugg := &Suggestion{
		Question:              out.SuggestedQuestion,
		Area:                  out.SuggestedArea,
		Phase:                 out.Phase,
		TopGaps:               out.TopGaps,
		OverallKnowledgeLevel: out.OverallKnowledgeLevel,
	}
	if out.SuggestedQuestion != "" {
		p.AskedQuestions = append(p.AskedQuestions, profile.AskedQuestion{
			Text:    out.SuggestedQuestion,
			Area:    string(out.SuggestedArea),
			AskedAt: h.now(),
		})
		p.UpdatedAt = h.now()
		if err := h.store.SaveProfile(ctx, p); err != nil {
			return nil, fmt.Errorf("hub: save profile %s: %w", userID, err)
		}
	}
	return sugg, nil
}

func (h *Hub) recentQuestions(p *profile.KnowledgeProfile) ([]string, []taxonomy.Area) {
	cutoff := h.now().Add(-recentQuestionWindow)
	var texts []string
	var areas []taxonomy.Area
	for _, q := range p.AskedQuestions {
		if q.AskedAt.Before(cutoff) {
			continue
		}
		texts = append(texts, q.Text)
		areas = append(areas, taxonomy.Area(q.Area))
	}
	return texts, areas
}

// RecomputeProfile rebuilds the knowledge scores from the full memory
// set and persists the projection.
func (h *Hub) RecomputeProfile(ctx context.Context, userID string) (*profile.KnowledgeProfile, error) {
	p, err := h.loadOrInitProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	memories, err := h.store.ListMemoriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("hub: list memories for %s: %w", userID, err)
	}

	out := scoring.Score(scoring.Input{
		TotalMessageCount: p.TotalMessageCount,
		Memories:          memories,
	}, nil)
	p.OnboardingPhase = out.Phase
	p.KnowledgeScores = out.KnowledgeScores
	p.UpdatedAt = h.now()
	if err := h.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("hub: save profile %s: %w", userID, err)
	}
	return p, nil
}
