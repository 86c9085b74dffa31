// Package mock provides scripted collaborator doubles for tests.
package mock

import (
	"context"
	"sync"

	"github.com/lifedex/lifedex/pkg/collab"
)

// TextService is a scripted collab.TextService. Unset funcs return
// collab.ErrUnavailable. Call counts are safe for concurrent use.
type TextService struct {
	mu sync.Mutex

	ClassifyFunc   func(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error)
	SynthesizeFunc func(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error)
	CompareFunc    func(ctx context.Context, newMemory collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error)

	ClassifyCalls   int
	SynthesizeCalls int
	CompareCalls    int
}

func (s *TextService) Classify(ctx context.Context, req collab.ClassifyRequest) (*collab.Classification, error) {
	s.mu.Lock()
	s.ClassifyCalls++
	fn := s.ClassifyFunc
	s.mu.Unlock()
	if fn == nil {
		return nil, collab.ErrUnavailable
	}
	return fn(ctx, req)
}

func (s *TextService) Synthesize(ctx context.Context, req collab.SynthesisRequest) (*collab.SynthesisResult, error) {
	s.mu.Lock()
	s.SynthesizeCalls++
	fn := s.SynthesizeFunc
	s.mu.Unlock()
	if fn == nil {
		return nil, collab.ErrUnavailable
	}
	return fn(ctx, req)
}

func (s *TextService) CompareMemories(ctx context.Context, newMemory collab.MemorySnapshot, candidates []collab.MemorySnapshot) (*collab.Comparison, error) {
	s.mu.Lock()
	s.CompareCalls++
	fn := s.CompareFunc
	s.mu.Unlock()
	if fn == nil {
		return nil, collab.ErrUnavailable
	}
	return fn(ctx, newMemory, candidates)
}

// Calls returns the total number of collaborator calls made.
func (s *TextService) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ClassifyCalls + s.SynthesizeCalls + s.CompareCalls
}

// Embedder is a scripted collab.Embedder. With no EmbedFunc it returns
// a deterministic vector derived from the text length.
type Embedder struct {
	mu         sync.Mutex
	EmbedFunc  func(ctx context.Context, text string) ([]float32, error)
	Dims       int
	EmbedCalls int
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.EmbedCalls++
	fn := e.EmbedFunc
	e.mu.Unlock()
	if fn != nil {
		return fn(ctx, text)
	}
	dims := e.Dims
	if dims == 0 {
		dims = 4
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = float32((len(text)+i)%7) + 1
	}
	return vec, nil
}

func (e *Embedder) Dimensions() int {
	if e.Dims == 0 {
		return 4
	}
	return e.Dims
}

// FileSync records exported documents.
type FileSync struct {
	mu         sync.Mutex
	UpsertFunc func(ctx context.Context, doc collab.ExportDocument) (*collab.SyncResult, error)
	Exported   []collab.ExportDocument
}

func (f *FileSync) UpsertDocument(ctx context.Context, doc collab.ExportDocument) (*collab.SyncResult, error) {
	f.mu.Lock()
	f.Exported = append(f.Exported, doc)
	fn := f.UpsertFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, doc)
	}
	return &collab.SyncResult{FileID: doc.UserID + "/" + doc.IndexCode}, nil
}

// ExportedCount returns how many documents were exported.
func (f *FileSync) ExportedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Exported)
}

// FixedRand is a deterministic random source for question gating.
type FixedRand struct {
	Value float64
}

func (r FixedRand) Float64() float64 { return r.Value }
