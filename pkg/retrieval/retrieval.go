// Package retrieval ranks synthesized profile documents for context
// assembly. Three mutually exclusive modes are selected by request
// shape: direct code lookup, semantic similarity, and priority default.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/lifedex/lifedex/pkg/collab"
	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/storage"
	"github.com/lifedex/lifedex/pkg/taxonomy"
)

const (
	// DefaultMaxDocuments bounds every retrieval mode.
	DefaultMaxDocuments = 5

	// similarityFloor drops weak semantic matches.
	similarityFloor = 0.3

	cacheTTL = 30 * time.Second
)

// Request selects the retrieval mode by shape: IndexCodes wins, then
// Query/Embedding, then the priority default.
type Request struct {
	IndexCodes   []string
	Query        string
	Embedding    []float32
	Domains      []string
	MaxDocuments int
}

// Result is the ranked context for one retrieval.
type Result struct {
	Mode       string
	Documents  []*profile.IndexDocument
	Directives map[string]*profile.IndexDirective
	Relevance  map[string]float64
	Context    string
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithCache fronts document listing with a ristretto cache.
func WithCache(c *ristretto.Cache) Option {
	return func(r *Retriever) { r.cache = c }
}

// NewCache builds a ristretto cache sized for per-user document lists.
func NewCache() (*ristretto.Cache, error) {
	return ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
}

// Retriever ranks active documents for a user.
type Retriever struct {
	store    storage.Store
	embedder collab.Embedder
	log      *slog.Logger
	cache    *ristretto.Cache
}

// New creates a Retriever. The embedder may be nil, which disables the
// semantic mode (such requests fall through to the default mode).
func New(store storage.Store, embedder collab.Embedder, log *slog.Logger, opts ...Option) *Retriever {
	r := &Retriever{store: store, embedder: embedder, log: log}
	if r.log == nil {
		r.log = slog.Default()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns ranked context for a user. Unknown index codes are
// silently dropped; collaborator trouble degrades the mode, never the
// call.
func (r *Retriever) Retrieve(ctx context.Context, userID string, req Request) (*Result, error) {
	limit := req.MaxDocuments
	if limit <= 0 {
		limit = DefaultMaxDocuments
	}

	active, err := r.activeDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}

	mode := "default"
	var ranked []*profile.IndexDocument
	switch {
	case len(req.IndexCodes) > 0:
		mode = "direct"
		ranked = direct(active, req.IndexCodes)
	case req.Query != "" || len(req.Embedding) > 0:
		mode = "semantic"
		ranked = r.semantic(ctx, active, req)
		if ranked == nil {
			mode = "default"
			ranked = byPriority(active)
		}
	default:
		ranked = byPriority(active)
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return r.assemble(ctx, mode, ranked)
}

// activeDocuments lists the user's active documents, cache-aside.
func (r *Retriever) activeDocuments(ctx context.Context, userID string) ([]*profile.IndexDocument, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(userID); ok {
			if docs, ok := v.([]*profile.IndexDocument); ok {
				return docs, nil
			}
		}
	}

	all, err := r.store.ListDocumentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("retrieval: list documents for user %s: %w", userID, err)
	}
	var active []*profile.IndexDocument
	for _, d := range all {
		if d.Status == profile.StatusActive {
			active = append(active, d)
		}
	}

	if r.cache != nil {
		r.cache.SetWithTTL(userID, active, 1, cacheTTL)
	}
	return active, nil
}

// Invalidate drops the cached document list for a user. Called after
// synthesis writes.
func (r *Retriever) Invalidate(userID string) {
	if r.cache != nil {
		r.cache.Del(userID)
	}
}

// direct keeps documents matching the requested codes, in request order.
func direct(active []*profile.IndexDocument, codes []string) []*profile.IndexDocument {
	byCode := make(map[string]*profile.IndexDocument, len(active))
	for _, d := range active {
		byCode[d.IndexCode] = d
	}
	var out []*profile.IndexDocument
	seen := make(map[string]bool)
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		if d, ok := byCode[code]; ok {
			out = append(out, d)
		}
	}
	return out
}

// semantic ranks by cosine similarity against the query embedding.
// Returns nil when no usable query embedding exists, signalling the
// caller to fall back to the default mode.
func (r *Retriever) semantic(ctx context.Context, active []*profile.IndexDocument, req Request) []*profile.IndexDocument {
	query := req.Embedding
	if len(query) == 0 {
		if r.embedder == nil {
			return nil
		}
		vec, err := r.embedder.Embed(ctx, req.Query)
		if err != nil {
			r.log.Warn("query embedding failed, using priority mode", "error", err)
			return nil
		}
		query = vec
	}
	if len(query) == 0 {
		return nil
	}

	domains := make(map[string]bool, len(req.Domains))
	for _, d := range req.Domains {
		domains[strings.ToUpper(d)] = true
	}

	type scored struct {
		doc *profile.IndexDocument
		sim float64
	}
	var results []scored
	for _, d := range active {
		if len(d.Embedding) == 0 {
			continue
		}
		if len(domains) > 0 && !domains[d.IndexCode[:1]] {
			continue
		}
		sim := Cosine(query, d.Embedding)
		if sim <= similarityFloor {
			continue
		}
		results = append(results, scored{d, sim})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].sim > results[j].sim
	})

	out := make([]*profile.IndexDocument, 0, len(results))
	for _, s := range results {
		out = append(out, s.doc)
	}
	return out
}

// byPriority orders by the static registry priority of each code,
// highest first, ties broken by code.
func byPriority(active []*profile.IndexDocument) []*profile.IndexDocument {
	out := make([]*profile.IndexDocument, len(active))
	copy(out, active)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := codePriority(out[i].IndexCode), codePriority(out[j].IndexCode)
		if pi != pj {
			return pi > pj
		}
		return out[i].IndexCode < out[j].IndexCode
	})
	return out
}

func codePriority(code string) int {
	cat, ok := taxonomy.Lookup(code)
	if !ok {
		return 0
	}
	return cat.Priority
}

// assemble attaches directives, rank scores, and the flattened context
// block to the ranked documents.
func (r *Retriever) assemble(ctx context.Context, mode string, ranked []*profile.IndexDocument) (*Result, error) {
	res := &Result{
		Mode:       mode,
		Documents:  ranked,
		Directives: make(map[string]*profile.IndexDirective),
		Relevance:  make(map[string]float64, len(ranked)),
	}
	for i, doc := range ranked {
		res.Relevance[doc.ID] = rankScore(i)
		for _, memID := range doc.SourceMemoryIDs {
			if _, ok := res.Directives[memID]; ok {
				continue
			}
			dir, err := r.store.GetDirective(ctx, memID)
			if err != nil {
				if storage.IsNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("retrieval: load directive for memory %s: %w", memID, err)
			}
			res.Directives[memID] = dir
		}
	}
	res.Context = contextBlock(ranked)
	return res, nil
}

// rankScore decays linearly with 0-indexed rank and floors at 0.
func rankScore(i int) float64 {
	return math.Max(0, 1-0.1*float64(i))
}

// contextBlock flattens the ranked documents into a readable block:
// each document's summary plus its top two insights and
// recommendations.
func contextBlock(ranked []*profile.IndexDocument) string {
	var b strings.Builder
	for i, doc := range ranked {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s (%s)\n", doc.Title, doc.IndexCode)
		if doc.Summary != "" {
			b.WriteString(doc.Summary + "\n")
		}
		for _, s := range topN(doc.KeyInsights, 2) {
			b.WriteString("- insight: " + s + "\n")
		}
		for _, s := range topN(doc.Recommendations, 2) {
			b.WriteString("- recommendation: " + s + "\n")
		}
	}
	return b.String()
}

func topN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// Cosine computes cosine similarity. Mismatched lengths or a zero
// magnitude on either side yield 0, never a panic.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
