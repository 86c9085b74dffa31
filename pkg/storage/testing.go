package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lifedex/lifedex/pkg/profile"
)

// StoreTestSuite defines a test suite that can be run against any Store
// implementation.
type StoreTestSuite struct {
	NewStore func(t *testing.T) Store
}

// RunAllTests runs all storage tests against the provided implementation.
func (s *StoreTestSuite) RunAllTests(t *testing.T) {
	t.Run("MemoryRoundTrip", s.TestMemoryRoundTrip)
	t.Run("MemoryNotFound", s.TestMemoryNotFound)
	t.Run("ListMemoriesByUser", s.TestListMemoriesByUser)
	t.Run("TopMemoriesByImportance", s.TestTopMemoriesByImportance)
	t.Run("DocumentCRUD", s.TestDocumentCRUD)
	t.Run("DocumentDuplicateCode", s.TestDocumentDuplicateCode)
	t.Run("DocumentVersionConflict", s.TestDocumentVersionConflict)
	t.Run("MarkForRegeneration", s.TestMarkForRegeneration)
	t.Run("MappingIdempotence", s.TestMappingIdempotence)
	t.Run("MappingLists", s.TestMappingLists)
	t.Run("DirectiveUpsert", s.TestDirectiveUpsert)
	t.Run("ProfileRoundTrip", s.TestProfileRoundTrip)
	t.Run("ConcurrentSaves", s.TestConcurrentSaves)
}

func testMemory(id, userID string, importance int) *profile.Memory {
	return &profile.Memory{
		ID:         id,
		UserID:     userID,
		Content:    "memory " + id,
		Category:   profile.CategoryFact,
		Importance: importance,
		Embedding:  []float32{0.1, 0.2, 0.3},
		Metadata: profile.MemoryMetadata{
			People:  []string{"Sam"},
			Emotion: "neutral",
		},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func testDocument(id, userID, code string) *profile.IndexDocument {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &profile.IndexDocument{
		ID:        id,
		UserID:    userID,
		IndexCode: code,
		Title:     "Doc " + code,
		Status:    profile.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestMemoryRoundTrip verifies a memory survives a save and load.
func (s *StoreTestSuite) TestMemoryRoundTrip(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	mem := testMemory("mem-1", "user-1", 7)
	if err := store.SaveMemory(ctx, mem); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}

	got, err := store.GetMemory(ctx, "mem-1")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if got.Content != mem.Content {
		t.Errorf("expected content %q, got %q", mem.Content, got.Content)
	}
	if got.Importance != 7 {
		t.Errorf("expected importance 7, got %d", got.Importance)
	}
	if len(got.Embedding) != 3 {
		t.Errorf("expected 3 embedding dims, got %d", len(got.Embedding))
	}
	if len(got.Metadata.People) != 1 || got.Metadata.People[0] != "Sam" {
		t.Errorf("metadata people not preserved: %v", got.Metadata.People)
	}

	// Re-save with new content; same id overwrites.
	mem.Content = "updated"
	if err := store.SaveMemory(ctx, mem); err != nil {
		t.Fatalf("SaveMemory (update) failed: %v", err)
	}
	got, err = store.GetMemory(ctx, "mem-1")
	if err != nil {
		t.Fatalf("GetMemory after update failed: %v", err)
	}
	if got.Content != "updated" {
		t.Errorf("expected updated content, got %q", got.Content)
	}
}

// TestMemoryNotFound verifies a typed not-found error for unknown ids.
func (s *StoreTestSuite) TestMemoryNotFound(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()

	_, err := store.GetMemory(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

// TestListMemoriesByUser verifies per-user isolation and newest-first order.
func (s *StoreTestSuite) TestListMemoriesByUser(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		mem := testMemory(fmt.Sprintf("mem-%d", i), "user-1", 5)
		mem.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := store.SaveMemory(ctx, mem); err != nil {
			t.Fatalf("SaveMemory failed: %v", err)
		}
	}
	other := testMemory("mem-other", "user-2", 5)
	if err := store.SaveMemory(ctx, other); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}

	list, err := store.ListMemoriesByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListMemoriesByUser failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 memories, got %d", len(list))
	}
	if list[0].ID != "mem-2" {
		t.Errorf("expected newest first, got %s", list[0].ID)
	}
}

// TestTopMemoriesByImportance verifies the importance ordering and limit.
func (s *StoreTestSuite) TestTopMemoriesByImportance(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	for i, imp := range []int{3, 9, 6, 1, 8} {
		if err := store.SaveMemory(ctx, testMemory(fmt.Sprintf("mem-%d", i), "user-1", imp)); err != nil {
			t.Fatalf("SaveMemory failed: %v", err)
		}
	}

	top, err := store.TopMemoriesByImportance(ctx, "user-1", 3)
	if err != nil {
		t.Fatalf("TopMemoriesByImportance failed: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 memories, got %d", len(top))
	}
	if top[0].Importance != 9 || top[1].Importance != 8 || top[2].Importance != 6 {
		t.Errorf("unexpected importance order: %d, %d, %d",
			top[0].Importance, top[1].Importance, top[2].Importance)
	}
}

// TestDocumentCRUD verifies create, lookup by id and by code, and update.
func (s *StoreTestSuite) TestDocumentCRUD(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	doc := testDocument("doc-1", "user-1", "C001")
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	byID, err := store.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if byID.IndexCode != "C001" {
		t.Errorf("expected code C001, got %s", byID.IndexCode)
	}

	byCode, err := store.GetDocumentByCode(ctx, "user-1", "C001")
	if err != nil {
		t.Fatalf("GetDocumentByCode failed: %v", err)
	}
	if byCode.ID != "doc-1" {
		t.Errorf("expected doc-1, got %s", byCode.ID)
	}

	byCode.Title = "Current Occupation"
	byCode.Status = profile.StatusActive
	byCode.Version = 1
	byCode.KeyInsights = []string{"works nights"}
	if err := store.UpdateDocument(ctx, byCode, 0); err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}

	got, err := store.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetDocument after update failed: %v", err)
	}
	if got.Version != 1 || got.Status != profile.StatusActive {
		t.Errorf("update not persisted: version=%d status=%s", got.Version, got.Status)
	}
	if len(got.KeyInsights) != 1 {
		t.Errorf("insights not persisted: %v", got.KeyInsights)
	}

	docs, err := store.ListDocumentsByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListDocumentsByUser failed: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 document, got %d", len(docs))
	}
}

// TestDocumentDuplicateCode verifies the (user, code) uniqueness guarantee.
func (s *StoreTestSuite) TestDocumentDuplicateCode(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	if err := store.CreateDocument(ctx, testDocument("doc-1", "user-1", "A001")); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	err := store.CreateDocument(ctx, testDocument("doc-2", "user-1", "A001"))
	if !IsDuplicate(err) {
		t.Errorf("expected DuplicateKeyError, got %v", err)
	}

	// Same code for a different user is fine.
	if err := store.CreateDocument(ctx, testDocument("doc-3", "user-2", "A001")); err != nil {
		t.Errorf("CreateDocument for other user failed: %v", err)
	}
}

// TestDocumentVersionConflict verifies the compare-and-swap update guard.
func (s *StoreTestSuite) TestDocumentVersionConflict(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	doc := testDocument("doc-1", "user-1", "B003")
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	doc.Version = 1
	if err := store.UpdateDocument(ctx, doc, 0); err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}

	// Stale writer still expects version 0.
	stale := testDocument("doc-1", "user-1", "B003")
	stale.Version = 1
	err := store.UpdateDocument(ctx, stale, 0)
	if !IsConflict(err) {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

// TestMarkForRegeneration verifies the regeneration flag is set in place.
func (s *StoreTestSuite) TestMarkForRegeneration(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	if err := store.CreateDocument(ctx, testDocument("doc-1", "user-1", "E002")); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if err := store.MarkForRegeneration(ctx, "doc-1"); err != nil {
		t.Fatalf("MarkForRegeneration failed: %v", err)
	}

	got, err := store.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if !got.NeedsRegeneration {
		t.Error("expected NeedsRegeneration to be set")
	}

	if err := store.MarkForRegeneration(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError for unknown document, got %v", err)
	}
}

// TestMappingIdempotence verifies re-creating an edge is a no-op.
func (s *StoreTestSuite) TestMappingIdempotence(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	m := &profile.MemoryIndexMapping{
		ID:           "map-1",
		MemoryID:     "mem-1",
		DocumentID:   "doc-1",
		Contribution: profile.ContributionPrimary,
		Relevance:    1.0,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	created, err := store.CreateMapping(ctx, m)
	if err != nil {
		t.Fatalf("CreateMapping failed: %v", err)
	}
	if !created {
		t.Error("expected first CreateMapping to report created")
	}

	dup := *m
	dup.ID = "map-2"
	created, err = store.CreateMapping(ctx, &dup)
	if err != nil {
		t.Fatalf("CreateMapping (duplicate) failed: %v", err)
	}
	if created {
		t.Error("expected duplicate CreateMapping to be a no-op")
	}

	list, err := store.ListMappingsByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ListMappingsByDocument failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 mapping, got %d", len(list))
	}
}

// TestMappingLists verifies both traversal directions.
func (s *StoreTestSuite) TestMappingLists(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	edges := []struct{ mem, doc string }{
		{"mem-1", "doc-1"},
		{"mem-1", "doc-2"},
		{"mem-2", "doc-1"},
	}
	for i, e := range edges {
		m := &profile.MemoryIndexMapping{
			ID:           fmt.Sprintf("map-%d", i),
			MemoryID:     e.mem,
			DocumentID:   e.doc,
			Contribution: profile.ContributionSupporting,
			CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
		}
		if _, err := store.CreateMapping(ctx, m); err != nil {
			t.Fatalf("CreateMapping failed: %v", err)
		}
	}

	byDoc, err := store.ListMappingsByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ListMappingsByDocument failed: %v", err)
	}
	if len(byDoc) != 2 {
		t.Errorf("expected 2 mappings into doc-1, got %d", len(byDoc))
	}

	byMem, err := store.ListMappingsByMemory(ctx, "mem-1")
	if err != nil {
		t.Fatalf("ListMappingsByMemory failed: %v", err)
	}
	if len(byMem) != 2 {
		t.Errorf("expected 2 mappings out of mem-1, got %d", len(byMem))
	}
}

// TestDirectiveUpsert verifies directive writes replace prior values.
func (s *StoreTestSuite) TestDirectiveUpsert(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	d := &profile.IndexDirective{
		MemoryID:          "mem-1",
		UserID:            "user-1",
		PrimaryIndexCode:  "A003",
		RelatedIndexCodes: []string{"B003"},
		Confidence:        0.25,
		RetrievalPriority: profile.PriorityMedium,
		UpdatedAt:         time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.UpsertDirective(ctx, d); err != nil {
		t.Fatalf("UpsertDirective failed: %v", err)
	}

	d.PrimaryIndexCode = "C001"
	d.Confidence = 0.9
	d.RetrievalPriority = profile.PriorityHigh
	if err := store.UpsertDirective(ctx, d); err != nil {
		t.Fatalf("UpsertDirective (update) failed: %v", err)
	}

	got, err := store.GetDirective(ctx, "mem-1")
	if err != nil {
		t.Fatalf("GetDirective failed: %v", err)
	}
	if got.PrimaryIndexCode != "C001" {
		t.Errorf("expected C001, got %s", got.PrimaryIndexCode)
	}
	if got.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", got.Confidence)
	}

	if _, err := store.GetDirective(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

// TestProfileRoundTrip verifies the knowledge profile blob survives.
func (s *StoreTestSuite) TestProfileRoundTrip(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	p := &profile.KnowledgeProfile{
		UserID:            "user-1",
		OnboardingPhase:   profile.PhaseGettingAcquainted,
		TotalMessageCount: 12,
		KnowledgeScores: map[string]profile.AreaScore{
			"career": {Score: 35, MemoryCount: 4, Confidence: 0.8},
		},
		AskedQuestions: []profile.AskedQuestion{
			{Text: "What do you do for work?", Area: "career", AskedAt: time.Now().UTC().Truncate(time.Millisecond)},
		},
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	got, err := store.GetProfile(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.OnboardingPhase != profile.PhaseGettingAcquainted {
		t.Errorf("expected phase getting_acquainted, got %s", got.OnboardingPhase)
	}
	if got.KnowledgeScores["career"].Score != 35 {
		t.Errorf("expected career score 35, got %v", got.KnowledgeScores["career"].Score)
	}
	if len(got.AskedQuestions) != 1 {
		t.Errorf("expected 1 asked question, got %d", len(got.AskedQuestions))
	}

	if _, err := store.GetProfile(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

// TestConcurrentSaves verifies parallel writers do not corrupt state.
func (s *StoreTestSuite) TestConcurrentSaves(t *testing.T) {
	store := s.NewStore(t)
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			mem := testMemory(fmt.Sprintf("mem-%d", n), "user-1", 5)
			if err := store.SaveMemory(ctx, mem); err != nil {
				t.Errorf("SaveMemory failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	list, err := store.ListMemoriesByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListMemoriesByUser failed: %v", err)
	}
	if len(list) != 10 {
		t.Errorf("expected 10 memories, got %d", len(list))
	}
}
