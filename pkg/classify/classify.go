// Package classify assigns memories to taxonomy codes and persists the
// resulting directives, documents, and mappings.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lifedex/lifedex/pkg/collab"
	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/storage"
	"github.com/lifedex/lifedex/pkg/taxonomy"
)

// DefaultBatchConcurrency bounds concurrent classifications in a batch.
const DefaultBatchConcurrency = 10

// fallbackConfidence is assigned when the static table decides the code.
const fallbackConfidence = 0.25

// fallbackCodes maps memory categories to taxonomy codes when the
// collaborator is unavailable or returns an invalid primary.
var fallbackCodes = map[profile.MemoryCategory]string{
	profile.CategoryFact:         "A003",
	profile.CategoryPreference:   "H001",
	profile.CategoryGoal:         "E002",
	profile.CategoryEvent:        "G005",
	profile.CategoryRelationship: "B003",
	profile.CategoryEmotion:      "F001",
	profile.CategoryInsight:      "J004",
}

// Result describes the outcome of classifying one memory.
type Result struct {
	Directive   *profile.IndexDirective
	DocumentIDs []string
	Fallback    bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLimiter sets a shared rate limiter for collaborator calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Classifier) { c.limiter = l }
}

// WithBatchConcurrency overrides the batch fan-out limit.
func WithBatchConcurrency(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// Classifier routes memories into the taxonomy.
type Classifier struct {
	store       storage.Store
	text        collab.TextService
	log         *slog.Logger
	limiter     *rate.Limiter
	concurrency int
	now         func() time.Time
}

// New creates a Classifier. The text service may be nil, in which case
// every classification uses the fallback table.
func New(store storage.Store, text collab.TextService, log *slog.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		store:       store,
		text:        text,
		log:         log,
		concurrency: DefaultBatchConcurrency,
		now:         time.Now,
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// candidates exposes the taxonomy to the collaborator, highest priority
// first.
func candidates() []collab.CandidateLabel {
	cats := taxonomy.ByPriority()
	out := make([]collab.CandidateLabel, 0, len(cats))
	for _, cat := range cats {
		out = append(out, collab.CandidateLabel{
			Code:        cat.Code,
			Name:        cat.TopicName,
			Description: cat.Description,
		})
	}
	return out
}

// Classify assigns a taxonomy code to the memory and persists the
// directive, draft documents, and mappings. Re-running on an already
// classified memory refreshes the directive and is otherwise a no-op.
func (c *Classifier) Classify(ctx context.Context, mem *profile.Memory) (*Result, error) {
	primary, related, confidence, fellBack := c.resolve(ctx, mem)

	directive := &profile.IndexDirective{
		MemoryID:          mem.ID,
		UserID:            mem.UserID,
		PrimaryIndexCode:  primary,
		RelatedIndexCodes: related,
		Confidence:        confidence,
		RetrievalPriority: profile.PriorityForImportance(mem.Importance),
		UpdatedAt:         c.now(),
	}
	if err := c.store.UpsertDirective(ctx, directive); err != nil {
		return nil, fmt.Errorf("classify: upsert directive for memory %s: %w", mem.ID, err)
	}

	result := &Result{Directive: directive, Fallback: fellBack}

	codes := append([]string{primary}, related...)
	for i, code := range codes {
		contribution := profile.ContributionSupporting
		relevance := profile.Clamp01(confidence * 0.8)
		if i == 0 {
			contribution = profile.ContributionPrimary
			relevance = profile.Clamp01(confidence)
		}
		docID, err := c.attach(ctx, mem, code, contribution, relevance)
		if err != nil {
			return nil, err
		}
		result.DocumentIDs = append(result.DocumentIDs, docID)
	}
	return result, nil
}

// resolve picks the primary code, related codes, and confidence, using
// the collaborator when possible and the static table otherwise.
func (c *Classifier) resolve(ctx context.Context, mem *profile.Memory) (string, []string, float64, bool) {
	if c.text == nil {
		return fallbackFor(mem.Category), nil, fallbackConfidence, true
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fallbackFor(mem.Category), nil, fallbackConfidence, true
		}
	}

	resp, err := c.text.Classify(ctx, collab.ClassifyRequest{
		Content:    mem.Content,
		Category:   string(mem.Category),
		Importance: mem.Importance,
		People:     mem.Metadata.People,
		Emotion:    mem.Metadata.Emotion,
		Candidates: candidates(),
	})
	if err != nil {
		c.log.Warn("classification call failed, using fallback",
			"memory_id", mem.ID, "category", mem.Category, "error", err)
		return fallbackFor(mem.Category), nil, fallbackConfidence, true
	}
	if !taxonomy.Valid(resp.PrimaryIndex) {
		c.log.Warn("classification returned unknown code, using fallback",
			"memory_id", mem.ID, "code", resp.PrimaryIndex)
		return fallbackFor(mem.Category), nil, fallbackConfidence, true
	}
	related := filterRelated(resp.PrimaryIndex, resp.RelatedIndices)
	return resp.PrimaryIndex, related, profile.Clamp01(resp.Confidence), false
}

func fallbackFor(category profile.MemoryCategory) string {
	if code, ok := fallbackCodes[category]; ok {
		return code
	}
	return fallbackCodes[profile.CategoryFact]
}

// filterRelated keeps valid registry codes, drops the primary and
// duplicates, and truncates to three.
func filterRelated(primary string, codes []string) []string {
	var out []string
	seen := map[string]bool{primary: true}
	for _, code := range codes {
		if seen[code] || !taxonomy.Valid(code) {
			continue
		}
		seen[code] = true
		out = append(out, code)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// attach makes sure a document exists for the code, links the memory to
// it, and flags it for regeneration.
func (c *Classifier) attach(ctx context.Context, mem *profile.Memory, code string, contribution profile.Contribution, relevance float64) (string, error) {
	doc, err := c.ensureDocument(ctx, mem.UserID, code)
	if err != nil {
		return "", err
	}

	mapping := &profile.MemoryIndexMapping{
		ID:           uuid.NewString(),
		MemoryID:     mem.ID,
		DocumentID:   doc.ID,
		Contribution: contribution,
		Relevance:    relevance,
		CreatedAt:    c.now(),
	}
	created, err := c.store.CreateMapping(ctx, mapping)
	if err != nil {
		return "", fmt.Errorf("classify: create mapping %s -> %s: %w", mem.ID, doc.ID, err)
	}
	if created {
		if err := c.store.MarkForRegeneration(ctx, doc.ID); err != nil {
			return "", fmt.Errorf("classify: mark document %s: %w", doc.ID, err)
		}
	}
	return doc.ID, nil
}

// ensureDocument lazily creates the draft document for (userID, code).
// A concurrent creation loses the race cleanly and re-reads.
func (c *Classifier) ensureDocument(ctx context.Context, userID, code string) (*profile.IndexDocument, error) {
	doc, err := c.store.GetDocumentByCode(ctx, userID, code)
	if err == nil {
		return doc, nil
	}
	if !storage.IsNotFound(err) {
		return nil, fmt.Errorf("classify: get document %s/%s: %w", userID, code, err)
	}

	cat, _ := taxonomy.Lookup(code)
	now := c.now()
	doc = &profile.IndexDocument{
		ID:        uuid.NewString(),
		UserID:    userID,
		IndexCode: code,
		Title:     cat.TopicName,
		Status:    profile.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = c.store.CreateDocument(ctx, doc)
	if storage.IsDuplicate(err) {
		return c.store.GetDocumentByCode(ctx, userID, code)
	}
	if err != nil {
		return nil, fmt.Errorf("classify: create document %s/%s: %w", userID, code, err)
	}
	return doc, nil
}

// ClassifyBatch classifies memories with bounded concurrency. Results
// are positionally aligned with the input.
func (c *Classifier) ClassifyBatch(ctx context.Context, mems []*profile.Memory) ([]*Result, error) {
	results := make([]*Result, len(mems))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, mem := range mems {
		g.Go(func() error {
			res, err := c.Classify(gctx, mem)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
