package testutil

import (
	"context"
	"sort"
	"sync"

	"auditorfiscal/datalake/internal/core/datalake"
)

// MockDocumentRepository is an in-memory datalake.Repository. It enforces the
// access key uniqueness of the real table. Func fields, when set, replace the
// default behaviour.
type MockDocumentRepository struct {
	DocumentIDByAccessKeyFunc func(ctx context.Context, accessKey string) (int64, bool, error)
	InsertFunc                func(ctx context.Context, rec datalake.Record) (int64, error)
	ListRawFunc               func(ctx context.Context, afterID int64, limit int) ([]datalake.RawDocument, error)
	PatchMissingFunc          func(ctx context.Context, documentID int64, rec datalake.Record) (int64, error)

	mu      sync.Mutex
	nextID  int64
	records map[int64]datalake.Record
	byKey   map[string]int64
	Patches map[int64]datalake.Record
}

func (m *MockDocumentRepository) init() {
	if m.records == nil {
		m.records = make(map[int64]datalake.Record)
		m.byKey = make(map[string]int64)
		m.Patches = make(map[int64]datalake.Record)
	}
}

// DocumentIDByAccessKey calls the mock function if set, otherwise looks up the stored keys.
func (m *MockDocumentRepository) DocumentIDByAccessKey(ctx context.Context, accessKey string) (int64, bool, error) {
	if m.DocumentIDByAccessKeyFunc != nil {
		return m.DocumentIDByAccessKeyFunc(ctx, accessKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	id, ok := m.byKey[accessKey]
	return id, ok, nil
}

// ExistingAccessKeys returns the subset of keys already stored.
func (m *MockDocumentRepository) ExistingAccessKeys(ctx context.Context, accessKeys []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	found := make(map[string]bool)
	for _, key := range accessKeys {
		if _, ok := m.byKey[key]; ok {
			found[key] = true
		}
	}
	return found, nil
}

// Insert calls the mock function if set, otherwise stores the record and rejects
// duplicated access keys with datalake.ErrDuplicateAccessKey.
func (m *MockDocumentRepository) Insert(ctx context.Context, rec datalake.Record) (int64, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	if _, ok := m.byKey[rec.Document.AccessKey]; ok {
		return 0, datalake.ErrDuplicateAccessKey
	}
	m.nextID++
	rec.Document.ID = m.nextID
	m.records[m.nextID] = rec
	m.byKey[rec.Document.AccessKey] = m.nextID
	return m.nextID, nil
}

// ListRaw calls the mock function if set, otherwise pages the stored bodies by id.
func (m *MockDocumentRepository) ListRaw(ctx context.Context, afterID int64, limit int) ([]datalake.RawDocument, error) {
	if m.ListRawFunc != nil {
		return m.ListRawFunc(ctx, afterID, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	ids := make([]int64, 0, len(m.records))
	for id := range m.records {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]datalake.RawDocument, 0, len(ids))
	for _, id := range ids {
		doc := m.records[id].Document
		out = append(out, datalake.RawDocument{ID: id, AccessKey: doc.AccessKey, RawXML: doc.RawXML})
	}
	return out, nil
}

// PatchMissing calls the mock function if set, otherwise remembers the patch and
// reports one touched row per item plus the document.
func (m *MockDocumentRepository) PatchMissing(ctx context.Context, documentID int64, rec datalake.Record) (int64, error) {
	if m.PatchMissingFunc != nil {
		return m.PatchMissingFunc(ctx, documentID, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	if _, ok := m.records[documentID]; !ok {
		return 0, datalake.ErrNotFound
	}
	m.Patches[documentID] = rec
	return int64(1 + len(rec.Items)), nil
}

// Count returns the number of stored documents.
func (m *MockDocumentRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Get returns the stored record for a key.
func (m *MockDocumentRepository) Get(accessKey string) (datalake.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	id, ok := m.byKey[accessKey]
	if !ok {
		return datalake.Record{}, false
	}
	return m.records[id], true
}
