// Package sqlite provides a SQLite-backed implementation of the storage
// interface using the pure-Go modernc.org driver. It is the relational
// backend: uniqueness is enforced by real UNIQUE constraints and
// directives are written with ON CONFLICT upserts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/storage"
)

// SQLiteStore implements storage.Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath and applies the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		content     TEXT NOT NULL,
		category    TEXT NOT NULL,
		importance  INTEGER NOT NULL,
		embedding   TEXT,
		metadata    TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);
	CREATE INDEX IF NOT EXISTS idx_memories_user_importance ON memories(user_id, importance DESC);

	CREATE TABLE IF NOT EXISTS documents (
		id                 TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL,
		index_code         TEXT NOT NULL,
		title              TEXT NOT NULL DEFAULT '',
		summary            TEXT NOT NULL DEFAULT '',
		content            TEXT NOT NULL DEFAULT '',
		key_insights       TEXT,
		patterns           TEXT,
		recommendations    TEXT,
		embedding          TEXT,
		source_memory_ids  TEXT,
		memory_count       INTEGER NOT NULL DEFAULT 0,
		confidence         REAL NOT NULL DEFAULT 0,
		version            INTEGER NOT NULL DEFAULT 0,
		status             TEXT NOT NULL DEFAULT 'draft',
		needs_regeneration INTEGER NOT NULL DEFAULT 0,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL,
		UNIQUE(user_id, index_code)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(user_id);

	CREATE TABLE IF NOT EXISTS mappings (
		id           TEXT PRIMARY KEY,
		memory_id    TEXT NOT NULL,
		document_id  TEXT NOT NULL,
		contribution TEXT NOT NULL,
		relevance    REAL NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL,
		UNIQUE(memory_id, document_id)
	);
	CREATE INDEX IF NOT EXISTS idx_mappings_document ON mappings(document_id);
	CREATE INDEX IF NOT EXISTS idx_mappings_memory ON mappings(memory_id);

	CREATE TABLE IF NOT EXISTS directives (
		memory_id           TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL,
		primary_index_code  TEXT NOT NULL,
		related_index_codes TEXT,
		confidence          REAL NOT NULL DEFAULT 0,
		retrieval_priority  TEXT NOT NULL DEFAULT 'low',
		updated_at          TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id    TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const timeLayout = time.RFC3339Nano

func marshalJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", &storage.SerializationError{Operation: "marshal", Cause: err}
	}
	return string(data), nil
}

func unmarshalJSON(data string, v any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return &storage.SerializationError{Operation: "unmarshal", Cause: err}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// SaveMemory upserts a memory row.
func (s *SQLiteStore) SaveMemory(ctx context.Context, mem *profile.Memory) error {
	embedding, err := marshalJSON(mem.Embedding)
	if err != nil {
		return err
	}
	metadata, err := marshalJSON(mem.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, user_id, content, category, importance, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			category = excluded.category,
			importance = excluded.importance,
			embedding = excluded.embedding,
			metadata = excluded.metadata`,
		mem.ID, mem.UserID, mem.Content, string(mem.Category), mem.Importance,
		embedding, metadata, mem.CreatedAt.Format(timeLayout))
	return err
}

func scanMemory(row interface{ Scan(...any) error }) (*profile.Memory, error) {
	var m profile.Memory
	var category, embedding, metadata, createdAt string
	if err := row.Scan(&m.ID, &m.UserID, &m.Content, &category, &m.Importance,
		&embedding, &metadata, &createdAt); err != nil {
		return nil, err
	}
	m.Category = profile.MemoryCategory(category)
	if err := unmarshalJSON(embedding, &m.Embedding); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(metadata, &m.Metadata); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, &storage.SerializationError{Operation: "parse memory created_at", Cause: err}
	}
	m.CreatedAt = t
	return &m, nil
}

const memoryColumns = "id, user_id, content, category, importance, embedding, metadata, created_at"

// GetMemory retrieves a memory by id.
func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*profile.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+memoryColumns+" FROM memories WHERE id = ?", id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, &storage.NotFoundError{EntityType: "memory", ID: id}
	}
	return m, err
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...any) ([]*profile.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*profile.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMemoriesByUser returns all memories for a user, newest first.
func (s *SQLiteStore) ListMemoriesByUser(ctx context.Context, userID string) ([]*profile.Memory, error) {
	return s.queryMemories(ctx,
		"SELECT "+memoryColumns+" FROM memories WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// TopMemoriesByImportance returns up to limit memories by importance desc.
func (s *SQLiteStore) TopMemoriesByImportance(ctx context.Context, userID string, limit int) ([]*profile.Memory, error) {
	if limit <= 0 {
		return s.queryMemories(ctx,
			"SELECT "+memoryColumns+" FROM memories WHERE user_id = ? ORDER BY importance DESC, created_at DESC", userID)
	}
	return s.queryMemories(ctx,
		"SELECT "+memoryColumns+" FROM memories WHERE user_id = ? ORDER BY importance DESC, created_at DESC LIMIT ?",
		userID, limit)
}

const documentColumns = `id, user_id, index_code, title, summary, content,
	key_insights, patterns, recommendations, embedding, source_memory_ids,
	memory_count, confidence, version, status, needs_regeneration, created_at, updated_at`

func (s *SQLiteStore) documentArgs(doc *profile.IndexDocument) ([]any, error) {
	insights, err := marshalJSON(doc.KeyInsights)
	if err != nil {
		return nil, err
	}
	patterns, err := marshalJSON(doc.Patterns)
	if err != nil {
		return nil, err
	}
	recs, err := marshalJSON(doc.Recommendations)
	if err != nil {
		return nil, err
	}
	embedding, err := marshalJSON(doc.Embedding)
	if err != nil {
		return nil, err
	}
	sources, err := marshalJSON(doc.SourceMemoryIDs)
	if err != nil {
		return nil, err
	}
	needsRegen := 0
	if doc.NeedsRegeneration {
		needsRegen = 1
	}
	return []any{
		doc.ID, doc.UserID, doc.IndexCode, doc.Title, doc.Summary, doc.Content,
		insights, patterns, recs, embedding, sources,
		doc.MemoryCount, doc.Confidence, doc.Version, string(doc.Status),
		needsRegen, doc.CreatedAt.Format(timeLayout), doc.UpdatedAt.Format(timeLayout),
	}, nil
}

// CreateDocument inserts a document; the UNIQUE(user_id, index_code)
// constraint rejects duplicates.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *profile.IndexDocument) error {
	args, err := s.documentArgs(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if isUniqueViolation(err) {
		return &storage.DuplicateKeyError{EntityType: "document", Key: doc.UserID + "/" + doc.IndexCode}
	}
	return err
}

func scanDocument(row interface{ Scan(...any) error }) (*profile.IndexDocument, error) {
	var d profile.IndexDocument
	var insights, patterns, recs, embedding, sources, status, createdAt, updatedAt string
	var needsRegen int
	if err := row.Scan(&d.ID, &d.UserID, &d.IndexCode, &d.Title, &d.Summary, &d.Content,
		&insights, &patterns, &recs, &embedding, &sources,
		&d.MemoryCount, &d.Confidence, &d.Version, &status, &needsRegen,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.Status = profile.DocumentStatus(status)
	d.NeedsRegeneration = needsRegen != 0
	if err := unmarshalJSON(insights, &d.KeyInsights); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(patterns, &d.Patterns); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(recs, &d.Recommendations); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(embedding, &d.Embedding); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(sources, &d.SourceMemoryIDs); err != nil {
		return nil, err
	}
	var err error
	if d.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, &storage.SerializationError{Operation: "parse document created_at", Cause: err}
	}
	if d.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, &storage.SerializationError{Operation: "parse document updated_at", Cause: err}
	}
	return &d, nil
}

// GetDocument retrieves a document by id.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*profile.IndexDocument, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, &storage.NotFoundError{EntityType: "document", ID: id}
	}
	return d, err
}

// GetDocumentByCode retrieves the unique document for (userID, indexCode).
func (s *SQLiteStore) GetDocumentByCode(ctx context.Context, userID, indexCode string) (*profile.IndexDocument, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE user_id = ? AND index_code = ?",
		userID, indexCode)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, &storage.NotFoundError{EntityType: "document", ID: userID + "/" + indexCode}
	}
	return d, err
}

// UpdateDocument writes doc guarded by a version check in the WHERE
// clause; zero rows affected means either a missing row or a lost race.
func (s *SQLiteStore) UpdateDocument(ctx context.Context, doc *profile.IndexDocument, expectedVersion int) error {
	args, err := s.documentArgs(doc)
	if err != nil {
		return err
	}
	// Shift id to the end for the WHERE clause.
	args = append(args[1:], doc.ID, expectedVersion)
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET
			user_id = ?, index_code = ?, title = ?, summary = ?, content = ?,
			key_insights = ?, patterns = ?, recommendations = ?, embedding = ?,
			source_memory_ids = ?, memory_count = ?, confidence = ?, version = ?,
			status = ?, needs_regeneration = ?, created_at = ?, updated_at = ?
		WHERE id = ? AND version = ?`, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		cur, getErr := s.GetDocument(ctx, doc.ID)
		if getErr != nil {
			return getErr
		}
		return &storage.ConflictError{
			EntityType:      "document",
			ID:              doc.ID,
			ExpectedVersion: expectedVersion,
			ActualVersion:   cur.Version,
		}
	}
	return nil
}

// MarkForRegeneration atomically sets needs_regeneration on a document.
func (s *SQLiteStore) MarkForRegeneration(ctx context.Context, documentID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET needs_regeneration = 1 WHERE id = ?", documentID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &storage.NotFoundError{EntityType: "document", ID: documentID}
	}
	return nil
}

// ListDocumentsByUser returns all documents for a user ordered by code.
func (s *SQLiteStore) ListDocumentsByUser(ctx context.Context, userID string) ([]*profile.IndexDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE user_id = ? ORDER BY index_code", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*profile.IndexDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateMapping inserts a mapping edge; the UNIQUE(memory_id, document_id)
// constraint makes re-creation a no-op.
func (s *SQLiteStore) CreateMapping(ctx context.Context, m *profile.MemoryIndexMapping) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO mappings (id, memory_id, document_id, contribution, relevance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(memory_id, document_id) DO NOTHING`,
		m.ID, m.MemoryID, m.DocumentID, string(m.Contribution), m.Relevance,
		m.CreatedAt.Format(timeLayout))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQLiteStore) queryMappings(ctx context.Context, query string, args ...any) ([]*profile.MemoryIndexMapping, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*profile.MemoryIndexMapping
	for rows.Next() {
		var m profile.MemoryIndexMapping
		var contribution, createdAt string
		if err := rows.Scan(&m.ID, &m.MemoryID, &m.DocumentID, &contribution,
			&m.Relevance, &createdAt); err != nil {
			return nil, err
		}
		m.Contribution = profile.Contribution(contribution)
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, &storage.SerializationError{Operation: "parse mapping created_at", Cause: err}
		}
		m.CreatedAt = t
		out = append(out, &m)
	}
	return out, rows.Err()
}

const mappingColumns = "id, memory_id, document_id, contribution, relevance, created_at"

// ListMappingsByDocument returns all edges into a document.
func (s *SQLiteStore) ListMappingsByDocument(ctx context.Context, documentID string) ([]*profile.MemoryIndexMapping, error) {
	return s.queryMappings(ctx,
		"SELECT "+mappingColumns+" FROM mappings WHERE document_id = ? ORDER BY created_at", documentID)
}

// ListMappingsByMemory returns all edges out of a memory.
func (s *SQLiteStore) ListMappingsByMemory(ctx context.Context, memoryID string) ([]*profile.MemoryIndexMapping, error) {
	return s.queryMappings(ctx,
		"SELECT "+mappingColumns+" FROM mappings WHERE memory_id = ? ORDER BY created_at", memoryID)
}

// UpsertDirective writes the directive for a memory with ON CONFLICT.
func (s *SQLiteStore) UpsertDirective(ctx context.Context, d *profile.IndexDirective) error {
	related, err := marshalJSON(d.RelatedIndexCodes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO directives (memory_id, user_id, primary_index_code, related_index_codes, confidence, retrieval_priority, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			primary_index_code = excluded.primary_index_code,
			related_index_codes = excluded.related_index_codes,
			confidence = excluded.confidence,
			retrieval_priority = excluded.retrieval_priority,
			updated_at = excluded.updated_at`,
		d.MemoryID, d.UserID, d.PrimaryIndexCode, related, d.Confidence,
		string(d.RetrievalPriority), d.UpdatedAt.Format(timeLayout))
	return err
}

// GetDirective retrieves the directive for a memory.
func (s *SQLiteStore) GetDirective(ctx context.Context, memoryID string) (*profile.IndexDirective, error) {
	var d profile.IndexDirective
	var related, priority, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT memory_id, user_id, primary_index_code, related_index_codes, confidence, retrieval_priority, updated_at
		FROM directives WHERE memory_id = ?`, memoryID).
		Scan(&d.MemoryID, &d.UserID, &d.PrimaryIndexCode, &related, &d.Confidence, &priority, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, &storage.NotFoundError{EntityType: "directive", ID: memoryID}
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(related, &d.RelatedIndexCodes); err != nil {
		return nil, err
	}
	d.RetrievalPriority = profile.RetrievalPriority(priority)
	if d.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, &storage.SerializationError{Operation: "parse directive updated_at", Cause: err}
	}
	return &d, nil
}

// SaveProfile upserts the knowledge profile for a user as a JSON blob.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p *profile.KnowledgeProfile) error {
	data, err := marshalJSON(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		p.UserID, data, p.UpdatedAt.Format(timeLayout))
	return err
}

// GetProfile retrieves the knowledge profile for a user.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*profile.KnowledgeProfile, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM profiles WHERE user_id = ?", userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &storage.NotFoundError{EntityType: "profile", ID: userID}
	}
	if err != nil {
		return nil, err
	}
	var p profile.KnowledgeProfile
	if err := unmarshalJSON(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
