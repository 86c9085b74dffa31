// Package storage provides the persistence abstraction for the lifedex
// core: repository-style operations per entity, typed errors, and a
// conformance suite every backend must pass.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/lifedex/lifedex/pkg/profile"
)

// Store is the persistence interface consumed by the core. All state is
// partitioned by user; implementations must be safe for concurrent use.
type Store interface {
	// Memory operations. The ingestion pipeline owns memory creation;
	// SaveMemory upserts so supersession updates reuse it.
	SaveMemory(ctx context.Context, mem *profile.Memory) error
	GetMemory(ctx context.Context, id string) (*profile.Memory, error)
	ListMemoriesByUser(ctx context.Context, userID string) ([]*profile.Memory, error)
	// TopMemoriesByImportance returns up to limit memories sorted by
	// importance descending, newest first within a tier.
	TopMemoriesByImportance(ctx context.Context, userID string, limit int) ([]*profile.Memory, error)

	// Document operations. CreateDocument returns a DuplicateKeyError when
	// a document for (UserID, IndexCode) already exists - the one storage
	// invariant that must be fatal. UpdateDocument is an optimistic
	// compare-and-swap on the version the caller read.
	CreateDocument(ctx context.Context, doc *profile.IndexDocument) error
	GetDocument(ctx context.Context, id string) (*profile.IndexDocument, error)
	GetDocumentByCode(ctx context.Context, userID, indexCode string) (*profile.IndexDocument, error)
	UpdateDocument(ctx context.Context, doc *profile.IndexDocument, expectedVersion int) error
	// MarkForRegeneration atomically sets NeedsRegeneration on a document.
	MarkForRegeneration(ctx context.Context, documentID string) error
	ListDocumentsByUser(ctx context.Context, userID string) ([]*profile.IndexDocument, error)

	// Mapping operations. CreateMapping is idempotent on
	// (MemoryID, DocumentID) and reports whether a new edge was written.
	CreateMapping(ctx context.Context, m *profile.MemoryIndexMapping) (bool, error)
	ListMappingsByDocument(ctx context.Context, documentID string) ([]*profile.MemoryIndexMapping, error)
	ListMappingsByMemory(ctx context.Context, memoryID string) ([]*profile.MemoryIndexMapping, error)

	// Directive operations, keyed by memory id.
	UpsertDirective(ctx context.Context, d *profile.IndexDirective) error
	GetDirective(ctx context.Context, memoryID string) (*profile.IndexDirective, error)

	// Knowledge profile operations, one per user.
	SaveProfile(ctx context.Context, p *profile.KnowledgeProfile) error
	GetProfile(ctx context.Context, userID string) (*profile.KnowledgeProfile, error)

	Close() error
}

// NotFoundError indicates the requested entity does not exist.
type NotFoundError struct {
	EntityType string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.EntityType, e.ID)
}

// DuplicateKeyError indicates a uniqueness constraint was violated.
type DuplicateKeyError struct {
	EntityType string
	Key        string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.EntityType, e.Key)
}

// ConflictError indicates an optimistic version check failed.
type ConflictError struct {
	EntityType      string
	ID              string
	ExpectedVersion int
	ActualVersion   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s version conflict on %s: expected %d, found %d",
		e.EntityType, e.ID, e.ExpectedVersion, e.ActualVersion)
}

// SerializationError indicates a marshal/unmarshal failure.
type SerializationError struct {
	Operation string
	Cause     error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error during %s: %v", e.Operation, e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDuplicate reports whether err is a DuplicateKeyError.
func IsDuplicate(err error) bool {
	var d *DuplicateKeyError
	return errors.As(err, &d)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
