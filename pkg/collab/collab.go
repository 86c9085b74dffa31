// Package collab declares the external collaborator interfaces the lifedex
// core consumes: the text-generation service (classification, synthesis,
// memory comparison), the embedding service, and the file-sync exporter.
// Implementations live in subpackages and are injected at construction
// time; the core never reaches for a global client.
package collab

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable signals that a collaborator could not be reached or
// refused the call. Callers resolve it with their defined fallback and
// never propagate it to the ingestion pipeline.
var ErrUnavailable = errors.New("collab: service unavailable")

// CandidateLabel is one taxonomy entry offered to the classifier.
type CandidateLabel struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ClassifyRequest asks the text service to pick index codes for a memory.
type ClassifyRequest struct {
	Content    string           `json:"content"`
	Category   string           `json:"category"`
	Importance int              `json:"importance"`
	People     []string         `json:"people,omitempty"`
	Emotion    string           `json:"emotion,omitempty"`
	Candidates []CandidateLabel `json:"candidates"`
}

// Classification is the classifier's verdict. Confidence is the service's
// self-reported trust in [0,1]; callers clamp and validate codes.
type Classification struct {
	PrimaryIndex   string   `json:"primary_index"`
	RelatedIndices []string `json:"related_indices,omitempty"`
	Confidence     float64  `json:"confidence"`
}

// SynthesisMemory is one memory presented to the synthesizer.
type SynthesisMemory struct {
	Content    string    `json:"content"`
	Importance int       `json:"importance"`
	Emotion    string    `json:"emotion,omitempty"`
	People     []string  `json:"people,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SynthesisRequest asks the text service to write one profile document.
// PriorContent anchors incremental re-synthesis and is empty on first
// synthesis.
type SynthesisRequest struct {
	DomainName   string            `json:"domain_name"`
	TopicName    string            `json:"topic_name"`
	Description  string            `json:"description"`
	Memories     []SynthesisMemory `json:"memories"`
	PriorContent string            `json:"prior_content,omitempty"`
}

// SynthesisResult is the structured document returned by the service.
type SynthesisResult struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Content         string   `json:"content"`
	KeyInsights     []string `json:"key_insights,omitempty"`
	Patterns        []string `json:"patterns,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Confidence      float64  `json:"confidence"`
}

// MemorySnapshot is the id+content view of a memory used for comparison.
// Bounded candidate sets keep the external call affordable.
type MemorySnapshot struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Comparison buckets candidate memories relative to a new memory. Each
// candidate appears in at most one bucket.
type Comparison struct {
	Supersedes  []string `json:"supersedes,omitempty"`
	Contradicts []string `json:"contradicts,omitempty"`
	RelatedTo   []string `json:"related_to,omitempty"`
}

// TextService is the text-generation/classification collaborator. All
// calls are synchronous request/response honoring ctx cancellation.
type TextService interface {
	Classify(ctx context.Context, req ClassifyRequest) (*Classification, error)
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
	CompareMemories(ctx context.Context, newMemory MemorySnapshot, candidates []MemorySnapshot) (*Comparison, error)
}

// Embedder converts text to a fixed-length vector. An empty slice means
// "unavailable": callers skip semantic features rather than erroring.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// ExportDocument is the subset of a synthesized document sent to the
// file-sync collaborator.
type ExportDocument struct {
	UserID    string `json:"user_id"`
	IndexCode string `json:"index_code"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// SyncResult identifies the exported file.
type SyncResult struct {
	FileID string `json:"file_id"`
	URL    string `json:"url"`
}

// FileSync exports documents to an external drive. Entirely decoupled
// from synthesis: failures are logged and never roll back a write.
type FileSync interface {
	UpsertDocument(ctx context.Context, doc ExportDocument) (*SyncResult, error)
}
