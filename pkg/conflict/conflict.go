// Package conflict detects and resolves contradictions between a newly
// ingested memory and the user's existing memories.
package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/lifedex/lifedex/pkg/collab"
	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/storage"
)

// DefaultCandidateLimit bounds how many prior memories are compared.
const DefaultCandidateLimit = 50

// supersededMarker is stamped into metadata on soft-delete.
const supersededMarker = "new_memory"

// Resolution is the outcome of comparing a new memory against history.
type Resolution struct {
	Supersedes  []string
	Contradicts []string
	RelatedTo   []string
}

// Empty reports whether no relationship was found.
func (r *Resolution) Empty() bool {
	return len(r.Supersedes) == 0 && len(r.Contradicts) == 0 && len(r.RelatedTo) == 0
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLimiter sets a shared rate limiter for collaborator calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(r *Resolver) { r.limiter = l }
}

// WithCandidateLimit overrides the comparison window size.
func WithCandidateLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.candidateLimit = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// Resolver compares new memories against stored ones and applies
// supersession.
type Resolver struct {
	store          storage.Store
	text           collab.TextService
	log            *slog.Logger
	limiter        *rate.Limiter
	candidateLimit int
	now            func() time.Time
}

// New creates a Resolver.
func New(store storage.Store, text collab.TextService, log *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		store:          store,
		text:           text,
		log:            log,
		candidateLimit: DefaultCandidateLimit,
		now:            time.Now,
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve compares newMem against the user's most important prior
// memories and soft-deletes any superseded ones. A collaborator failure
// degrades to an empty resolution; ingestion is never blocked.
func (r *Resolver) Resolve(ctx context.Context, newMem *profile.Memory) (*Resolution, error) {
	prior, err := r.store.TopMemoriesByImportance(ctx, newMem.UserID, r.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("conflict: load candidates for user %s: %w", newMem.UserID, err)
	}

	candidates := make([]collab.MemorySnapshot, 0, len(prior))
	for _, m := range prior {
		if m.ID == newMem.ID || m.Metadata.Superseded() {
			continue
		}
		candidates = append(candidates, collab.MemorySnapshot{ID: m.ID, Content: m.Content})
	}
	if len(candidates) == 0 {
		return &Resolution{}, nil
	}

	if r.text == nil {
		return &Resolution{}, nil
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return &Resolution{}, nil
		}
	}
	cmp, err := r.text.CompareMemories(ctx,
		collab.MemorySnapshot{ID: newMem.ID, Content: newMem.Content}, candidates)
	if err != nil {
		r.log.Warn("memory comparison failed, treating as no conflicts",
			"memory_id", newMem.ID, "candidates", len(candidates), "error", err)
		return &Resolution{}, nil
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}
	res := &Resolution{
		Supersedes:  keepKnown(cmp.Supersedes, known),
		Contradicts: keepKnown(cmp.Contradicts, known),
		RelatedTo:   keepKnown(cmp.RelatedTo, known),
	}

	for _, id := range res.Supersedes {
		if err := r.supersede(ctx, id); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// keepKnown drops ids the collaborator invented.
func keepKnown(ids []string, known map[string]bool) []string {
	var out []string
	for _, id := range ids {
		if known[id] {
			out = append(out, id)
		}
	}
	return out
}

// supersede soft-deletes a memory: importance pinned to 1 and metadata
// stamped, record preserved.
func (r *Resolver) supersede(ctx context.Context, id string) error {
	mem, err := r.store.GetMemory(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("conflict: load superseded memory %s: %w", id, err)
	}

	now := r.now()
	mem.Importance = 1
	mem.Metadata.SupersededBy = supersededMarker
	mem.Metadata.SupersededAt = &now
	if err := r.store.SaveMemory(ctx, mem); err != nil {
		return fmt.Errorf("conflict: persist supersession of %s: %w", id, err)
	}
	r.log.Info("memory superseded", "memory_id", id)
	return nil
}
