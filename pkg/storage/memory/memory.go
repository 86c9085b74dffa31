// Package memory provides an in-memory implementation of the storage
// interface, used in tests and single-process development setups.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/storage"
)

// MemoryStore implements storage.Store using mutex-guarded maps. All
// reads and writes deep-copy entities so callers can never mutate stored
// state through a shared pointer.
type MemoryStore struct {
	mu sync.RWMutex

	memories   map[string]*profile.Memory
	documents  map[string]*profile.IndexDocument
	docByCode  map[string]string // userID+"/"+indexCode -> documentID
	mappings   map[string]*profile.MemoryIndexMapping
	mapByEdge  map[string]string // memoryID+"/"+documentID -> mappingID
	directives map[string]*profile.IndexDirective // memoryID -> directive
	profiles   map[string]*profile.KnowledgeProfile
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		memories:   make(map[string]*profile.Memory),
		documents:  make(map[string]*profile.IndexDocument),
		docByCode:  make(map[string]string),
		mappings:   make(map[string]*profile.MemoryIndexMapping),
		mapByEdge:  make(map[string]string),
		directives: make(map[string]*profile.IndexDirective),
		profiles:   make(map[string]*profile.KnowledgeProfile),
	}
}

func codeKey(userID, indexCode string) string { return userID + "/" + indexCode }
func edgeKey(memoryID, documentID string) string { return memoryID + "/" + documentID }

func copyMemory(m *profile.Memory) *profile.Memory {
	c := *m
	c.Embedding = append([]float32(nil), m.Embedding...)
	c.Metadata.People = append([]string(nil), m.Metadata.People...)
	if m.Metadata.SupersededAt != nil {
		t := *m.Metadata.SupersededAt
		c.Metadata.SupersededAt = &t
	}
	if m.Metadata.Extra != nil {
		c.Metadata.Extra = make(map[string]string, len(m.Metadata.Extra))
		for k, v := range m.Metadata.Extra {
			c.Metadata.Extra[k] = v
		}
	}
	return &c
}

func copyDocument(d *profile.IndexDocument) *profile.IndexDocument {
	c := *d
	c.KeyInsights = append([]string(nil), d.KeyInsights...)
	c.Patterns = append([]string(nil), d.Patterns...)
	c.Recommendations = append([]string(nil), d.Recommendations...)
	c.Embedding = append([]float32(nil), d.Embedding...)
	c.SourceMemoryIDs = append([]string(nil), d.SourceMemoryIDs...)
	return &c
}

func copyMapping(m *profile.MemoryIndexMapping) *profile.MemoryIndexMapping {
	c := *m
	return &c
}

func copyDirective(d *profile.IndexDirective) *profile.IndexDirective {
	c := *d
	c.RelatedIndexCodes = append([]string(nil), d.RelatedIndexCodes...)
	return &c
}

func copyProfile(p *profile.KnowledgeProfile) *profile.KnowledgeProfile {
	c := *p
	if p.KnowledgeScores != nil {
		c.KnowledgeScores = make(map[string]profile.AreaScore, len(p.KnowledgeScores))
		for k, v := range p.KnowledgeScores {
			c.KnowledgeScores[k] = v
		}
	}
	c.AskedQuestions = append([]profile.AskedQuestion(nil), p.AskedQuestions...)
	return &c
}

// SaveMemory upserts a memory.
func (s *MemoryStore) SaveMemory(ctx context.Context, mem *profile.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[mem.ID] = copyMemory(mem)
	return nil
}

// GetMemory retrieves a memory by id.
func (s *MemoryStore) GetMemory(ctx context.Context, id string) (*profile.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memories[id]
	if !ok {
		return nil, &storage.NotFoundError{EntityType: "memory", ID: id}
	}
	return copyMemory(m), nil
}

// ListMemoriesByUser returns all memories for a user, newest first.
func (s *MemoryStore) ListMemoriesByUser(ctx context.Context, userID string) ([]*profile.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*profile.Memory
	for _, m := range s.memories {
		if m.UserID == userID {
			out = append(out, copyMemory(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// TopMemoriesByImportance returns up to limit memories sorted by
// importance descending, newest first within a tier.
func (s *MemoryStore) TopMemoriesByImportance(ctx context.Context, userID string, limit int) ([]*profile.Memory, error) {
	all, err := s.ListMemoriesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Importance > all[j].Importance
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// CreateDocument inserts a document, rejecting duplicates on
// (UserID, IndexCode).
func (s *MemoryStore) CreateDocument(ctx context.Context, doc *profile.IndexDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := codeKey(doc.UserID, doc.IndexCode)
	if _, exists := s.docByCode[key]; exists {
		return &storage.DuplicateKeyError{EntityType: "document", Key: key}
	}
	if _, exists := s.documents[doc.ID]; exists {
		return &storage.DuplicateKeyError{EntityType: "document", Key: doc.ID}
	}
	s.documents[doc.ID] = copyDocument(doc)
	s.docByCode[key] = doc.ID
	return nil
}

// GetDocument retrieves a document by id.
func (s *MemoryStore) GetDocument(ctx context.Context, id string) (*profile.IndexDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, &storage.NotFoundError{EntityType: "document", ID: id}
	}
	return copyDocument(d), nil
}

// GetDocumentByCode retrieves the unique document for (userID, indexCode).
func (s *MemoryStore) GetDocumentByCode(ctx context.Context, userID, indexCode string) (*profile.IndexDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.docByCode[codeKey(userID, indexCode)]
	if !ok {
		return nil, &storage.NotFoundError{EntityType: "document", ID: codeKey(userID, indexCode)}
	}
	return copyDocument(s.documents[id]), nil
}

// UpdateDocument writes doc if the stored version matches expectedVersion.
func (s *MemoryStore) UpdateDocument(ctx context.Context, doc *profile.IndexDocument, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.documents[doc.ID]
	if !ok {
		return &storage.NotFoundError{EntityType: "document", ID: doc.ID}
	}
	if cur.Version != expectedVersion {
		return &storage.ConflictError{
			EntityType:      "document",
			ID:              doc.ID,
			ExpectedVersion: expectedVersion,
			ActualVersion:   cur.Version,
		}
	}
	s.documents[doc.ID] = copyDocument(doc)
	return nil
}

// MarkForRegeneration sets NeedsRegeneration without touching the version.
func (s *MemoryStore) MarkForRegeneration(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[documentID]
	if !ok {
		return &storage.NotFoundError{EntityType: "document", ID: documentID}
	}
	d.NeedsRegeneration = true
	return nil
}

// ListDocumentsByUser returns all documents for a user ordered by code.
func (s *MemoryStore) ListDocumentsByUser(ctx context.Context, userID string) ([]*profile.IndexDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*profile.IndexDocument
	for _, d := range s.documents {
		if d.UserID == userID {
			out = append(out, copyDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IndexCode < out[j].IndexCode
	})
	return out, nil
}

// CreateMapping inserts a mapping edge, no-op when it already exists.
func (s *MemoryStore) CreateMapping(ctx context.Context, m *profile.MemoryIndexMapping) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey(m.MemoryID, m.DocumentID)
	if _, exists := s.mapByEdge[key]; exists {
		return false, nil
	}
	s.mappings[m.ID] = copyMapping(m)
	s.mapByEdge[key] = m.ID
	return true, nil
}

// ListMappingsByDocument returns all edges into a document.
func (s *MemoryStore) ListMappingsByDocument(ctx context.Context, documentID string) ([]*profile.MemoryIndexMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*profile.MemoryIndexMapping
	for _, m := range s.mappings {
		if m.DocumentID == documentID {
			out = append(out, copyMapping(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListMappingsByMemory returns all edges out of a memory.
func (s *MemoryStore) ListMappingsByMemory(ctx context.Context, memoryID string) ([]*profile.MemoryIndexMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*profile.MemoryIndexMapping
	for _, m := range s.mappings {
		if m.MemoryID == memoryID {
			out = append(out, copyMapping(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpsertDirective writes the directive for a memory, replacing any prior.
func (s *MemoryStore) UpsertDirective(ctx context.Context, d *profile.IndexDirective) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directives[d.MemoryID] = copyDirective(d)
	return nil
}

// GetDirective retrieves the directive for a memory.
func (s *MemoryStore) GetDirective(ctx context.Context, memoryID string) (*profile.IndexDirective, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.directives[memoryID]
	if !ok {
		return nil, &storage.NotFoundError{EntityType: "directive", ID: memoryID}
	}
	return copyDirective(d), nil
}

// SaveProfile upserts the knowledge profile for a user.
func (s *MemoryStore) SaveProfile(ctx context.Context, p *profile.KnowledgeProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = copyProfile(p)
	return nil
}

// GetProfile retrieves the knowledge profile for a user.
func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*profile.KnowledgeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, &storage.NotFoundError{EntityType: "profile", ID: userID}
	}
	return copyProfile(p), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
