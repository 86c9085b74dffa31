// Package profile defines the lifedex domain model - user memories, the
// synthesized index documents derived from them, and the knowledge profile
// used to pace onboarding - plus the Hub facade that coordinates
// classification, conflict resolution, synthesis, and retrieval.
package profile

import (
	"time"
)

// MemoryCategory is the coarse kind of a memory fact.
type MemoryCategory string

const (
	CategoryFact         MemoryCategory = "fact"
	CategoryPreference   MemoryCategory = "preference"
	CategoryGoal         MemoryCategory = "goal"
	CategoryEvent        MemoryCategory = "event"
	CategoryRelationship MemoryCategory = "relationship"
	CategoryEmotion      MemoryCategory = "emotion"
	CategoryInsight      MemoryCategory = "insight"
)

// Categories lists every valid memory category.
func Categories() []MemoryCategory {
	return []MemoryCategory{
		CategoryFact, CategoryPreference, CategoryGoal, CategoryEvent,
		CategoryRelationship, CategoryEmotion, CategoryInsight,
	}
}

// MemoryMetadata is the typed metadata attached to a memory. Known uses
// get explicit fields; Extra carries forward-compatible unknowns.
type MemoryMetadata struct {
	// People mentioned in the memory.
	People []string `json:"people,omitempty"`

	// Emotion is the dominant emotion label, if any.
	Emotion string `json:"emotion,omitempty"`

	// SupersededBy marks this memory as obsoleted by a newer one.
	SupersededBy string `json:"superseded_by,omitempty"`

	// SupersededAt is when supersession was recorded.
	SupersededAt *time.Time `json:"superseded_at,omitempty"`

	// Extra holds unrecognized metadata for forward compatibility.
	Extra map[string]string `json:"extra,omitempty"`
}

// Superseded reports whether the memory carries a supersession marker.
func (m MemoryMetadata) Superseded() bool {
	return m.SupersededBy != ""
}

// Memory is a single atomic natural-language fact about a user. The
// ingestion pipeline owns creation; this core only updates importance and
// metadata on supersession, never deletes.
type Memory struct {
	// ID is the unique identifier for this memory.
	ID string `json:"id"`

	// UserID owns the memory. All state is partitioned by user.
	UserID string `json:"user_id"`

	// Content is the raw natural-language fact.
	Content string `json:"content"`

	// Category is the coarse kind of fact.
	Category MemoryCategory `json:"category"`

	// Importance ranges 1-10. Supersession forces it to 1.
	Importance int `json:"importance"`

	// Embedding is an optional fixed-length vector for semantic features.
	Embedding []float32 `json:"embedding,omitempty"`

	// Metadata carries people, emotion, and supersession markers.
	Metadata MemoryMetadata `json:"metadata"`

	// CreatedAt is the ingestion timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// DocumentStatus is the lifecycle state of an index document.
type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "draft"
	StatusActive   DocumentStatus = "active"
	StatusStale    DocumentStatus = "stale"
	StatusArchived DocumentStatus = "archived"
)

// IndexDocument is one synthesized narrative profile per (UserID,
// IndexCode). Created lazily as a draft the first time a memory classifies
// into its code; mutated only by the synthesis engine; never deleted in
// normal operation.
type IndexDocument struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	IndexCode string `json:"index_code"`

	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Content         string   `json:"content"`
	KeyInsights     []string `json:"key_insights,omitempty"`
	Patterns        []string `json:"patterns,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`

	// Embedding covers title + summary + content of the last synthesis.
	Embedding []float32 `json:"embedding,omitempty"`

	// SourceMemoryIDs is the full mapped memory id list at last synthesis.
	SourceMemoryIDs []string `json:"source_memory_ids,omitempty"`

	// MemoryCount is len(SourceMemoryIDs) at last synthesis.
	MemoryCount int `json:"memory_count"`

	// Confidence is the synthesis confidence, clamped to [0,1].
	Confidence float64 `json:"confidence"`

	// Version is monotonic, starting at 1 on first synthesis. A freshly
	// created draft has Version 0.
	Version int `json:"version"`

	Status            DocumentStatus `json:"status"`
	NeedsRegeneration bool           `json:"needs_regeneration"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contribution describes how strongly a memory feeds a document.
type Contribution string

const (
	ContributionPrimary    Contribution = "primary"
	ContributionSupporting Contribution = "supporting"
	ContributionMinor      Contribution = "minor"
)

// MemoryIndexMapping is a (memory, document) edge. Creating an edge that
// already exists is a no-op; every effective creation flags the target
// document for regeneration.
type MemoryIndexMapping struct {
	ID           string       `json:"id"`
	MemoryID     string       `json:"memory_id"`
	DocumentID   string       `json:"document_id"`
	Contribution Contribution `json:"contribution"`

	// Relevance ranges 0-1.
	Relevance float64 `json:"relevance"`

	CreatedAt time.Time `json:"created_at"`
}

// RetrievalPriority buckets a memory's importance for retrieval.
type RetrievalPriority string

const (
	PriorityHigh   RetrievalPriority = "high"
	PriorityMedium RetrievalPriority = "medium"
	PriorityLow    RetrievalPriority = "low"
)

// PriorityForImportance derives a retrieval priority from importance:
// >=8 high, >=5 medium, else low.
func PriorityForImportance(importance int) RetrievalPriority {
	switch {
	case importance >= 8:
		return PriorityHigh
	case importance >= 5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// IndexDirective records how a memory was classified. Exactly one per
// memory, upserted on re-classification.
type IndexDirective struct {
	MemoryID         string `json:"memory_id"`
	UserID           string `json:"user_id"`
	PrimaryIndexCode string `json:"primary_index_code"`

	// RelatedIndexCodes holds at most 3 codes and never the primary.
	RelatedIndexCodes []string `json:"related_index_codes,omitempty"`

	Confidence        float64           `json:"confidence"`
	RetrievalPriority RetrievalPriority `json:"retrieval_priority"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// OnboardingPhase is the coarse acquaintance stage for a user.
type OnboardingPhase string

const (
	PhaseNew               OnboardingPhase = "new"
	PhaseGettingAcquainted OnboardingPhase = "getting_acquainted"
	PhaseFamiliar          OnboardingPhase = "familiar"
	PhaseEstablished       OnboardingPhase = "established"
)

// PhaseForMessageCount is the step function over lifetime message count:
// <5 new, <25 getting_acquainted, <100 familiar, else established.
func PhaseForMessageCount(n int) OnboardingPhase {
	switch {
	case n < 5:
		return PhaseNew
	case n < 25:
		return PhaseGettingAcquainted
	case n < 100:
		return PhaseFamiliar
	default:
		return PhaseEstablished
	}
}

// AreaScore is the coverage score for one knowledge area.
type AreaScore struct {
	// Score ranges 0-100.
	Score float64 `json:"score"`

	// MemoryCount is how many memories contributed.
	MemoryCount int `json:"memory_count"`

	// LastUpdated is the timestamp of the latest contributing memory.
	LastUpdated time.Time `json:"last_updated"`

	// Confidence ranges 0-1, min(1, MemoryCount/5).
	Confidence float64 `json:"confidence"`
}

// AskedQuestion is one onboarding question surfaced to the user.
type AskedQuestion struct {
	Text    string    `json:"text"`
	Area    string    `json:"area"`
	AskedAt time.Time `json:"asked_at"`
}

// KnowledgeProfile is the per-user coverage profile. The score map is a
// projection fully derivable from the memory set, not an independent
// ledger.
type KnowledgeProfile struct {
	UserID            string                `json:"user_id"`
	OnboardingPhase   OnboardingPhase       `json:"onboarding_phase"`
	TotalMessageCount int                   `json:"total_message_count"`
	KnowledgeScores   map[string]AreaScore  `json:"knowledge_scores,omitempty"`
	AskedQuestions    []AskedQuestion       `json:"asked_questions,omitempty"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// Clamp01 clamps v to [0,1]. Confidence and relevance values pass through
// this on every write.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampScore clamps v to [0,100].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampImportance clamps v to [1,10].
func ClampImportance(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
