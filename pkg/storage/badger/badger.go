// Package badger provides a BadgerDB-backed implementation of the storage
// interface. Entities are stored as JSON values under typed key prefixes;
// uniqueness constraints are enforced by key design plus insert-time
// existence checks inside a single transaction.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/storage"
)

// Key layout:
//
//	mem:{userID}:{memoryID}        memory JSON
//	memidx:{memoryID}              userID (id -> owner lookup)
//	doc:{userID}:{indexCode}       document JSON (uniqueness by key)
//	docidx:{documentID}            "userID:indexCode"
//	mapdoc:{documentID}:{memoryID} mapping JSON
//	mapmem:{memoryID}:{documentID} mapping JSON (reverse index)
//	dir:{memoryID}                 directive JSON
//	prof:{userID}                  knowledge profile JSON
const (
	prefixMemory    = "mem:"
	prefixMemoryIdx = "memidx:"
	prefixDoc       = "doc:"
	prefixDocIdx    = "docidx:"
	prefixMapDoc    = "mapdoc:"
	prefixMapMem    = "mapmem:"
	prefixDirective = "dir:"
	prefixProfile   = "prof:"
)

// BadgerStore implements storage.Store on a Badger key-value database.
type BadgerStore struct {
	db *badger.DB
}

// Options configures the Badger backend.
type Options struct {
	Path       string
	SyncWrites bool
	InMemory   bool
}

// Open opens (or creates) the database at opts.Path.
func Open(opts Options) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(opts.Path)
	bopts.SyncWrites = opts.SyncWrites
	bopts.InMemory = opts.InMemory
	if opts.InMemory {
		bopts.Dir = ""
		bopts.ValueDir = ""
	}
	bopts.Logger = nil
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", opts.Path, err)
	}
	return &BadgerStore{db: db}, nil
}

// NewWithDB wraps an externally managed Badger database.
func NewWithDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &storage.SerializationError{Operation: "marshal " + key, Cause: err}
	}
	return txn.Set([]byte(key), data)
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return &storage.SerializationError{Operation: "unmarshal " + key, Cause: err}
		}
		return nil
	})
}

// SaveMemory upserts a memory under its owner's prefix.
func (s *BadgerStore) SaveMemory(ctx context.Context, mem *profile.Memory) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, prefixMemory+mem.UserID+":"+mem.ID, mem); err != nil {
			return err
		}
		return txn.Set([]byte(prefixMemoryIdx+mem.ID), []byte(mem.UserID))
	})
}

// GetMemory retrieves a memory by id via the owner index.
func (s *BadgerStore) GetMemory(ctx context.Context, id string) (*profile.Memory, error) {
	var mem profile.Memory
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixMemoryIdx + id))
		if err != nil {
			return err
		}
		var userID string
		if err := item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		}); err != nil {
			return err
		}
		return getJSON(txn, prefixMemory+userID+":"+id, &mem)
	})
	if err == badger.ErrKeyNotFound {
		return nil, &storage.NotFoundError{EntityType: "memory", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &mem, nil
}

// ListMemoriesByUser returns all memories for a user, newest first.
func (s *BadgerStore) ListMemoriesByUser(ctx context.Context, userID string) ([]*profile.Memory, error) {
	var out []*profile.Memory
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixMemory + userID + ":")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var mem profile.Memory
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &mem)
			}); err != nil {
				return err
			}
			out = append(out, &mem)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// TopMemoriesByImportance returns up to limit memories sorted by
// importance descending.
func (s *BadgerStore) TopMemoriesByImportance(ctx context.Context, userID string, limit int) ([]*profile.Memory, error) {
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

// CreateDocument inserts a document. The (userID, indexCode) key makes
// duplicates impossible; an existence check surfaces them as typed errors.
func (s *BadgerStore) CreateDocument(ctx context.Context, doc *profile.IndexDocument) error {
	key := prefixDoc + doc.UserID + ":" + doc.IndexCode
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			return &storage.DuplicateKeyError{EntityType: "document", Key: doc.UserID + "/" + doc.IndexCode}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := setJSON(txn, key, doc); err != nil {
			return err
		}
		return txn.Set([]byte(prefixDocIdx+doc.ID), []byte(doc.UserID+":"+doc.IndexCode))
	})
}

func (s *BadgerStore) docKeyByID(txn *badger.Txn, id string) (string, error) {
	item, err := txn.Get([]byte(prefixDocIdx + id))
	if err != nil {
		return "", err
	}
	var loc string
	if err := item.Value(func(val []byte) error {
		loc = string(val)
		return nil
	}); err != nil {
		return "", err
	}
	return prefixDoc + loc, nil
}

// GetDocument retrieves a document by id.
func (s *BadgerStore) GetDocument(ctx context.Context, id string) (*profile.IndexDocument, error) {
	var doc profile.IndexDocument
	err := s.db.View(func(txn *badger.Txn) error {
		key, err := s.docKeyByID(txn, id)
		if err != nil {
			return err
		}
		return getJSON(txn, key, &doc)
	})
	if err == badger.ErrKeyNotFound {
		return nil, &storage.NotFoundError{EntityType: "document", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocumentByCode retrieves the unique document for (userID, indexCode).
func (s *BadgerStore) GetDocumentByCode(ctx context.Context, userID, indexCode string) (*profile.IndexDocument, error) {
	var doc profile.IndexDocument
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixDoc+userID+":"+indexCode, &doc)
	})
	if err == badger.ErrKeyNotFound {
		return nil, &storage.NotFoundError{EntityType: "document", ID: userID + "/" + indexCode}
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocument writes doc if the stored version matches expectedVersion.
func (s *BadgerStore) UpdateDocument(ctx context.Context, doc *profile.IndexDocument, expectedVersion int) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key, err := s.docKeyByID(txn, doc.ID)
		if err != nil {
			return err
		}
		var cur profile.IndexDocument
		if err := getJSON(txn, key, &cur); err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return &storage.ConflictError{
				EntityType:      "document",
				ID:              doc.ID,
				ExpectedVersion: expectedVersion,
				ActualVersion:   cur.Version,
			}
		}
		return setJSON(txn, key, doc)
	})
	if err == badger.ErrKeyNotFound {
		return &storage.NotFoundError{EntityType: "document", ID: doc.ID}
	}
	return err
}

// MarkForRegeneration atomically sets NeedsRegeneration on a document.
func (s *BadgerStore) MarkForRegeneration(ctx context.Context, documentID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key, err := s.docKeyByID(txn, documentID)
		if err != nil {
			return err
		}
		var cur profile.IndexDocument
		if err := getJSON(txn, key, &cur); err != nil {
			return err
		}
		cur.NeedsRegeneration = true
		return setJSON(txn, key, &cur)
	})
	if err == badger.ErrKeyNotFound {
		return &storage.NotFoundError{EntityType: "document", ID: documentID}
	}
	return err
}

// ListDocumentsByUser returns all documents for a user ordered by code.
func (s *BadgerStore) ListDocumentsByUser(ctx context.Context, userID string) ([]*profile.IndexDocument, error) {
	var out []*profile.IndexDocument
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixDoc + userID + ":")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var doc profile.IndexDocument
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return err
			}
			out = append(out, &doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IndexCode < out[j].IndexCode
	})
	return out, nil
}

// CreateMapping inserts a mapping edge under both directions, no-op when
// the edge already exists.
func (s *BadgerStore) CreateMapping(ctx context.Context, m *profile.MemoryIndexMapping) (bool, error) {
	created := false
	err := s.db.Update(func(txn *badger.Txn) error {
		docKey := prefixMapDoc + m.DocumentID + ":" + m.MemoryID
		if _, err := txn.Get([]byte(docKey)); err == nil {
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := setJSON(txn, docKey, m); err != nil {
			return err
		}
		if err := setJSON(txn, prefixMapMem+m.MemoryID+":"+m.DocumentID, m); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (s *BadgerStore) listMappings(prefix string) ([]*profile.MemoryIndexMapping, error) {
	var out []*profile.MemoryIndexMapping
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var m profile.MemoryIndexMapping
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			out = append(out, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListMappingsByDocument returns all edges into a document.
func (s *BadgerStore) ListMappingsByDocument(ctx context.Context, documentID string) ([]*profile.MemoryIndexMapping, error) {
	return s.listMappings(prefixMapDoc + documentID + ":")
}

// ListMappingsByMemory returns all edges out of a memory.
func (s *BadgerStore) ListMappingsByMemory(ctx context.Context, memoryID string) ([]*profile.MemoryIndexMapping, error) {
	return s.listMappings(prefixMapMem + memoryID + ":")
}

// UpsertDirective writes the directive for a memory, replacing any prior.
func (s *BadgerStore) UpsertDirective(ctx context.Context, d *profile.IndexDirective) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, prefixDirective+d.MemoryID, d)
	})
}

// GetDirective retrieves the directive for a memory.
func (s *BadgerStore) GetDirective(ctx context.Context, memoryID string) (*profile.IndexDirective, error) {
	var d profile.IndexDirective
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixDirective+memoryID, &d)
	})
	if err == badger.ErrKeyNotFound {
		return nil, &storage.NotFoundError{EntityType: "directive", ID: memoryID}
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SaveProfile upserts the knowledge profile for a user.
func (s *BadgerStore) SaveProfile(ctx context.Context, p *profile.KnowledgeProfile) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, prefixProfile+p.UserID, p)
	})
}

// GetProfile retrieves the knowledge profile for a user.
func (s *BadgerStore) GetProfile(ctx context.Context, userID string) (*profile.KnowledgeProfile, error) {
	var p profile.KnowledgeProfile
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixProfile+userID, &p)
	})
	if err == badger.ErrKeyNotFound {
		return nil, &storage.NotFoundError{EntityType: "profile", ID: userID}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
