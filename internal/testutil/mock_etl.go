package testutil

import (
	"context"
	"sync"
	"time"

	"auditorfiscal/datalake/internal/core/etl"
)

// MockLedger is an in-memory etl.LedgerRepository keyed by path.
type MockLedger struct {
	RecordFunc func(ctx context.Context, file etl.ProcessedFile) error

	mu      sync.Mutex
	Entries map[string]etl.ProcessedFile
}

func (m *MockLedger) init() {
	if m.Entries == nil {
		m.Entries = make(map[string]etl.ProcessedFile)
	}
}

// HasProcessedPath reports whether path is recorded as processado.
func (m *MockLedger) HasProcessedPath(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	entry, ok := m.Entries[path]
	return ok && entry.Status == etl.FileProcessed, nil
}

// HasProcessedHash reports whether any processado entry carries hash.
func (m *MockLedger) HasProcessedHash(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.Entries {
		if entry.Hash == hash && entry.Status == etl.FileProcessed {
			return true, nil
		}
	}
	return false, nil
}

// Record calls the mock function if set, otherwise upserts the entry. A processado
// entry is only replaced by another processado entry.
func (m *MockLedger) Record(ctx context.Context, file etl.ProcessedFile) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, file)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	if prev, ok := m.Entries[file.Path]; ok && prev.Status == etl.FileProcessed && file.Status != etl.FileProcessed {
		return nil
	}
	m.Entries[file.Path] = file
	return nil
}

// SetDisposition updates the disposition columns of an existing entry.
func (m *MockLedger) SetDisposition(ctx context.Context, path, backupPath string, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	entry, ok := m.Entries[path]
	if !ok {
		return nil
	}
	entry.BackupPath = backupPath
	entry.Deleted = deleted
	m.Entries[path] = entry
	return nil
}

// Get returns the entry for path.
func (m *MockLedger) Get(path string) (etl.ProcessedFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.Entries[path]
	return entry, ok
}

// MockLog collects appended log entries.
type MockLog struct {
	mu      sync.Mutex
	Entries []etl.LogEntry
}

// Append stores the entry.
func (m *MockLog) Append(ctx context.Context, entry etl.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

// Statuses returns the status of every entry in order.
func (m *MockLog) Statuses() []etl.LogStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]etl.LogStatus, len(m.Entries))
	for i, e := range m.Entries {
		out[i] = e.Status
	}
	return out
}

// MockRunRepository is an in-memory etl.RunRepository.
type MockRunRepository struct {
	StartFunc func(ctx context.Context, runType etl.RunType) (int64, error)

	mu   sync.Mutex
	Runs []etl.Run
}

// Start calls the mock function if set, otherwise opens a run.
func (m *MockRunRepository) Start(ctx context.Context, runType etl.RunType) (int64, error) {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, runType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := int64(len(m.Runs) + 1)
	m.Runs = append(m.Runs, etl.Run{ID: id, StartedAt: time.Now(), Type: runType, Status: etl.RunRunning})
	return id, nil
}

// Finish closes a running run.
func (m *MockRunRepository) Finish(ctx context.Context, runID int64, summary etl.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Runs {
		if m.Runs[i].ID != runID {
			continue
		}
		if m.Runs[i].Status != etl.RunRunning {
			return etl.ErrRunNotRunning
		}
		m.Runs[i].Processed = summary.Processed
		m.Runs[i].Duplicates = summary.Duplicates
		m.Runs[i].Errors = summary.Errors
		m.Runs[i].Elapsed = summary.Elapsed
		m.Runs[i].Status = summary.Status
		m.Runs[i].Message = summary.Message
		return nil
	}
	return etl.ErrRunNotRunning
}

// Latest returns the last started run.
func (m *MockRunRepository) Latest(ctx context.Context) (etl.Run, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Runs) == 0 {
		return etl.Run{}, false, nil
	}
	return m.Runs[len(m.Runs)-1], true, nil
}

// Last returns the last run.
func (m *MockRunRepository) Last() etl.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Runs) == 0 {
		return etl.Run{}
	}
	return m.Runs[len(m.Runs)-1]
}
