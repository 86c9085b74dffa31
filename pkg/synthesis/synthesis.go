// Package synthesis regenerates profile documents from their mapped
// memories. The engine is a pure regeneration primitive: scheduling
// decisions live in the NeedsRefresh predicate and the sweep helpers.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lifedex/lifedex/pkg/collab"
	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/storage"
	"github.com/lifedex/lifedex/pkg/taxonomy"
)

const (
	// DefaultSweepConcurrency bounds how many users sweep in parallel.
	DefaultSweepConcurrency = 4

	// staleAfter is the document age past which a single new memory
	// justifies regeneration.
	staleAfter = 7 * 24 * time.Hour

	placeholderSummary        = "no memories yet"
	placeholderRecommendation = "gather more information"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLimiter sets a shared rate limiter for collaborator calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithSweepConcurrency overrides the cross-user sweep fan-out.
func WithSweepConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.sweepConcurrency = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine turns a document's mapped memories into a synthesized narrative.
type Engine struct {
	store            storage.Store
	text             collab.TextService
	embedder         collab.Embedder
	log              *slog.Logger
	limiter          *rate.Limiter
	sweepConcurrency int
	now              func() time.Time
}

// New creates an Engine. The embedder may be nil; documents are then
// persisted without embeddings and excluded from semantic retrieval.
func New(store storage.Store, text collab.TextService, embedder collab.Embedder, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:            store,
		text:             text,
		embedder:         embedder,
		log:              log,
		sweepConcurrency: DefaultSweepConcurrency,
		now:              time.Now,
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Regenerate refreshes doc from its mapped memories. Without force it
// proceeds only when the document is flagged or not yet active; an
// up-to-date active document is returned unchanged. Cancellation before
// the persist leaves stored state untouched.
func (e *Engine) Regenerate(ctx context.Context, doc *profile.IndexDocument, force bool) (*profile.IndexDocument, error) {
	if !force && !doc.NeedsRegeneration && doc.Status == profile.StatusActive {
		return doc, nil
	}

	memories, memoryIDs, err := e.loadMemories(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	updated := *doc
	if len(memories) == 0 {
		e.placeholder(&updated)
	} else {
		result, err := e.synthesize(ctx, &updated, memories)
		if err != nil {
			return nil, err
		}
		e.apply(&updated, result, memoryIDs)
		e.embed(ctx, &updated)
		updated.Version++
	}
	updated.NeedsRegeneration = false
	updated.UpdatedAt = e.now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.store.UpdateDocument(ctx, &updated, doc.Version); err != nil {
		return nil, fmt.Errorf("synthesis: persist document %s: %w", doc.ID, err)
	}
	e.log.Info("document regenerated",
		"document_id", doc.ID, "index_code", doc.IndexCode,
		"memory_count", updated.MemoryCount, "version", updated.Version)
	return &updated, nil
}

// loadMemories returns the document's mapped memories sorted by
// importance descending, plus the full mapped id list.
func (e *Engine) loadMemories(ctx context.Context, documentID string) ([]*profile.Memory, []string, error) {
	mappings, err := e.store.ListMappingsByDocument(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("synthesis: list mappings for %s: %w", documentID, err)
	}

	var memories []*profile.Memory
	var ids []string
	for _, m := range mappings {
		mem, err := e.store.GetMemory(ctx, m.MemoryID)
		if err != nil {
			if storage.IsNotFound(err) {
				continue
			}
			return nil, nil, fmt.Errorf("synthesis: load memory %s: %w", m.MemoryID, err)
		}
		memories = append(memories, mem)
		ids = append(ids, mem.ID)
	}
	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Importance > memories[j].Importance
	})
	return memories, ids, nil
}

// placeholder fills a deterministic empty-topic document without any
// collaborator call.
func (e *Engine) placeholder(doc *profile.IndexDocument) {
	cat, _ := taxonomy.Lookup(doc.IndexCode)
	doc.Title = cat.TopicName
	doc.Summary = placeholderSummary
	doc.Content = ""
	doc.KeyInsights = nil
	doc.Patterns = nil
	doc.Recommendations = []string{placeholderRecommendation}
	doc.Confidence = 0
	doc.Status = profile.StatusDraft
	doc.SourceMemoryIDs = nil
	doc.MemoryCount = 0
}

func (e *Engine) synthesize(ctx context.Context, doc *profile.IndexDocument, memories []*profile.Memory) (*collab.SynthesisResult, error) {
	cat, _ := taxonomy.Lookup(doc.IndexCode)
	req := collab.SynthesisRequest{
		DomainName:  cat.DomainName,
		TopicName:   cat.TopicName,
		Description: cat.Description,
	}
	for _, m := range memories {
		req.Memories = append(req.Memories, collab.SynthesisMemory{
			Content:    m.Content,
			Importance: m.Importance,
			Emotion:    m.Metadata.Emotion,
			People:     m.Metadata.People,
			CreatedAt:  m.CreatedAt,
		})
	}
	if doc.Version >= 1 && doc.Content != "" {
		req.PriorContent = doc.Content
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	result, err := e.text.Synthesize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesis: synthesize %s/%s: %w", doc.UserID, doc.IndexCode, err)
	}
	return result, nil
}

func (e *Engine) apply(doc *profile.IndexDocument, result *collab.SynthesisResult, memoryIDs []string) {
	doc.Title = result.Title
	doc.Summary = result.Summary
	doc.Content = result.Content
	doc.KeyInsights = result.KeyInsights
	doc.Patterns = result.Patterns
	doc.Recommendations = result.Recommendations
	doc.Confidence = profile.Clamp01(result.Confidence)
	doc.Status = profile.StatusActive
	doc.SourceMemoryIDs = memoryIDs
	doc.MemoryCount = len(memoryIDs)
}

// embed refreshes the document embedding. A nil embedder or an empty
// vector skips the update rather than failing the regeneration.
func (e *Engine) embed(ctx context.Context, doc *profile.IndexDocument) {
	if e.embedder == nil {
		return
	}
	vec, err := e.embedder.Embed(ctx, doc.Title+"\n"+doc.Summary+"\n"+doc.Content)
	if err != nil {
		e.log.Warn("document embedding failed",
			"document_id", doc.ID, "error", err)
		return
	}
	if len(vec) == 0 {
		return
	}
	doc.Embedding = vec
}

// NeedsRefresh reports whether a document should be regenerated given
// the memories mapped to it since its last synthesis. Pure; used by both
// the on-demand path and the sweep.
func NeedsRefresh(doc *profile.IndexDocument, newSinceSynthesis []*profile.Memory, now time.Time) bool {
	if doc.Status == profile.StatusStale {
		return true
	}
	if len(newSinceSynthesis) >= 3 {
		return true
	}
	for _, m := range newSinceSynthesis {
		if m.Importance >= 8 {
			return true
		}
	}
	return now.Sub(doc.UpdatedAt) > staleAfter && len(newSinceSynthesis) >= 1
}

// SweepUser regenerates every document of one user that needs it,
// sequentially: synthesis calls are rate and order sensitive.
func (e *Engine) SweepUser(ctx context.Context, userID string) error {
	docs, err := e.store.ListDocumentsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("synthesis: list documents for user %s: %w", userID, err)
	}

	now := e.now()
	for _, doc := range docs {
		fresh, err := e.newSinceSynthesis(ctx, doc)
		if err != nil {
			return err
		}
		if !doc.NeedsRegeneration && !NeedsRefresh(doc, fresh, now) {
			continue
		}
		if _, err := e.Regenerate(ctx, doc, true); err != nil {
			if storage.IsConflict(err) {
				// Another writer got there first; its result stands.
				e.log.Debug("sweep lost regeneration race", "document_id", doc.ID)
				continue
			}
			return err
		}
	}
	return nil
}

// newSinceSynthesis returns mapped memories not yet folded into the
// document's last synthesis.
func (e *Engine) newSinceSynthesis(ctx context.Context, doc *profile.IndexDocument) ([]*profile.Memory, error) {
	mappings, err := e.store.ListMappingsByDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("synthesis: list mappings for %s: %w", doc.ID, err)
	}
	synthesized := make(map[string]bool, len(doc.SourceMemoryIDs))
	for _, id := range doc.SourceMemoryIDs {
		synthesized[id] = true
	}

	var fresh []*profile.Memory
	for _, m := range mappings {
		if synthesized[m.MemoryID] {
			continue
		}
		mem, err := e.store.GetMemory(ctx, m.MemoryID)
		if err != nil {
			if storage.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("synthesis: load memory %s: %w", m.MemoryID, err)
		}
		fresh = append(fresh, mem)
	}
	return fresh, nil
}

// Sweep runs SweepUser across users with bounded parallelism. State is
// partitioned by user, so cross-user fan-out is safe.
func (e *Engine) Sweep(ctx context.Context, userIDs []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.sweepConcurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			return e.SweepUser(gctx, userID)
		})
	}
	return g.Wait()
}
