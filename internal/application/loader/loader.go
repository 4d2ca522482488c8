// Package loader persists transformed documents with deduplication, keeps the
// processed-file ledger and the processing log, and disposes of source files.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"auditorfiscal/datalake/internal/core/datalake"
	"auditorfiscal/datalake/internal/core/etl"
	ctxutil "auditorfiscal/datalake/internal/infrastructure/context"
)

// Outcome is the result class of one load attempt.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeError     Outcome = "error"
)

// Duplicate reasons.
const (
	ReasonProcessedPath = "arquivo já processado"
	ReasonProcessedHash = "conteúdo idêntico já processado"
	ReasonAccessKey     = "chave de acesso já existe no banco"
)

// LoadResult describes what happened to one source file.
type LoadResult struct {
	Outcome    Outcome
	Reason     string
	AccessKey  string
	DocumentID int64
	Err        error
}

// FileHasher computes the content digest of a file.
type FileHasher interface {
	File(path string) (string, error)
}

// Options configures deduplication and disposition.
type Options struct {
	DedupByPath bool
	DedupByHash bool
	Disposition Disposition
	BackupDir   string
	Hasher      FileHasher
}

// Loader persists records. The access key unique constraint of the document store
// is the final guard against duplicates.
type Loader struct {
	documents datalake.Repository
	ledger    etl.LedgerRepository
	logs      etl.LogRepository
	opts      Options
	log       *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	last digest
}

// digest is the content hash of a file as of its size and modification time.
type digest struct {
	path    string
	size    int64
	modTime time.Time
	hash    string
}

// New creates a Loader.
func New(documents datalake.Repository, ledger etl.LedgerRepository, logs etl.LogRepository, opts Options, log *slog.Logger) (*Loader, error) {
	if documents == nil || ledger == nil || logs == nil {
		return nil, errors.New("loader: repositories are required")
	}
	if opts.Disposition == "" {
		opts.Disposition = DispositionKeep
	}
	switch opts.Disposition {
	case DispositionKeep, DispositionDelete:
	case DispositionMove:
		if opts.BackupDir == "" {
			return nil, errors.New("loader: backup directory is required to move files")
		}
	default:
		return nil, fmt.Errorf("loader: unknown disposition %q", opts.Disposition)
	}
	if opts.DedupByHash && opts.Hasher == nil {
		return nil, errors.New("loader: hash deduplication needs a hasher")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Loader{
		documents: documents,
		ledger:    ledger,
		logs:      logs,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}, nil
}

type processedMatch struct {
	reason string
	record bool
}

// match checks the ledger by path first, then by content hash. Each check runs only
// when enabled.
func (l *Loader) match(ctx context.Context, path string) (*processedMatch, error) {
	if l.opts.DedupByPath {
		ok, err := l.ledger.HasProcessedPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("check processed path: %w", err)
		}
		if ok {
			return &processedMatch{reason: ReasonProcessedPath}, nil
		}
	}
	if l.opts.DedupByHash {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat file: %w", err)
		}
		hash, err := l.hash(path, info)
		if err != nil {
			return nil, fmt.Errorf("hash file: %w", err)
		}
		ok, err := l.ledger.HasProcessedHash(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("check processed hash: %w", err)
		}
		if ok {
			return &processedMatch{reason: ReasonProcessedHash, record: true}, nil
		}
	}
	return nil, nil
}

// IsAlreadyProcessed reports whether the ledger already holds a successful outcome
// for this path or for a file with identical content.
func (l *Loader) IsAlreadyProcessed(ctx context.Context, path string) (bool, error) {
	m, err := l.match(ctx, path)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// SkipProcessed records a duplicate outcome for a file the ledger already knows,
// without parsing it. It returns an error result when the file turns out not to be
// processed.
func (l *Loader) SkipProcessed(ctx context.Context, path string, runID int64) LoadResult {
	start := time.Now()
	m, err := l.match(ctx, path)
	if err != nil {
		return l.RecordFailure(ctx, path, "", runID, err, time.Since(start))
	}
	if m == nil {
		return LoadResult{Outcome: OutcomeError, Err: fmt.Errorf("%s is not processed", path)}
	}
	return l.duplicate(ctx, path, "", 0, runID, *m, start)
}

// ExistingAccessKeys returns which keys are already persisted.
func (l *Loader) ExistingAccessKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	if len(keys) == 0 {
		return map[string]bool{}, nil
	}
	return l.documents.ExistingAccessKeys(ctx, keys)
}

// LoadDocument persists rec, read from sourcePath, as part of run runID. Source files
// are disposed of only after a committed success or a recognised duplicate.
func (l *Loader) LoadDocument(ctx context.Context, rec datalake.Record, sourcePath string, runID int64) LoadResult {
	start := time.Now()
	key := rec.Document.AccessKey

	m, err := l.match(ctx, sourcePath)
	if err != nil {
		return l.RecordFailure(ctx, sourcePath, key, runID, err, time.Since(start))
	}
	if m != nil {
		return l.duplicate(ctx, sourcePath, key, 0, runID, *m, start)
	}

	existingID, found, err := l.documents.DocumentIDByAccessKey(ctx, key)
	if err != nil {
		return l.RecordFailure(ctx, sourcePath, key, runID, fmt.Errorf("lookup access key: %w", err), time.Since(start))
	}
	if found {
		return l.duplicate(ctx, sourcePath, key, existingID, runID, processedMatch{reason: ReasonAccessKey, record: true}, start)
	}

	rec.Document.ProcessedAt = l.now()
	id, err := l.documents.Insert(ctx, rec)
	if errors.Is(err, datalake.ErrDuplicateAccessKey) {
		l.log.Info("Concurrent insert detected, treating as duplicate",
			"access_key", key,
			"path", sourcePath,
		)
		return l.duplicate(ctx, sourcePath, key, 0, runID, processedMatch{reason: ReasonAccessKey, record: true}, start)
	}
	if err != nil {
		return l.RecordFailure(ctx, sourcePath, key, runID, fmt.Errorf("insert document: %w", err), time.Since(start))
	}

	elapsed := time.Since(start)
	file := l.describe(sourcePath)
	file.Status = etl.FileProcessed
	file.AccessKey = key
	file.DocumentID = &id
	file.Message = fmt.Sprintf("%d itens", len(rec.Items))

	l.appendLog(ctx, etl.LogEntry{
		RunID:     runID,
		File:      sourcePath,
		AccessKey: key,
		Status:    etl.LogSuccess,
		Message:   "documento carregado",
		Elapsed:   elapsed,
		Size:      file.Size,
	})
	l.record(ctx, file)
	l.log.Info("Document loaded",
		"correlation_id", ctxutil.GetCorrelationID(ctx),
		"run_id", runID,
		"access_key", key,
		"document_id", id,
		"items", len(rec.Items),
		"duration_ms", elapsed.Milliseconds(),
	)

	l.dispose(ctx, sourcePath)
	return LoadResult{Outcome: OutcomeSuccess, AccessKey: key, DocumentID: id}
}

// duplicate logs a duplicate outcome and disposes of the file. A path match leaves
// the ledger untouched, as the existing processado entry is the one being matched.
// Other matches record a duplicado entry, which the ledger ignores when the path
// already holds a processado one.
func (l *Loader) duplicate(ctx context.Context, path, key string, documentID, runID int64, m processedMatch, start time.Time) LoadResult {
	file := l.describe(path)
	if m.record {
		file.Status = etl.FileDuplicate
		file.AccessKey = key
		file.Message = m.reason
		if documentID > 0 {
			file.DocumentID = &documentID
		}
		l.record(ctx, file)
	}

	l.appendLog(ctx, etl.LogEntry{
		RunID:     runID,
		File:      path,
		AccessKey: key,
		Status:    etl.LogDuplicate,
		Message:   m.reason,
		Elapsed:   time.Since(start),
		Size:      file.Size,
	})
	l.log.Info("Duplicate document skipped",
		"correlation_id", ctxutil.GetCorrelationID(ctx),
		"run_id", runID,
		"path", path,
		"access_key", key,
		"reason", m.reason,
	)

	l.dispose(ctx, path)
	return LoadResult{Outcome: OutcomeDuplicate, Reason: m.reason, AccessKey: key, DocumentID: documentID}
}

// RecordFailure writes the error outcome of a file to the log and the ledger. The
// file itself is left in place for inspection.
func (l *Loader) RecordFailure(ctx context.Context, path, accessKey string, runID int64, cause error, elapsed time.Duration) LoadResult {
	file := l.describe(path)
	file.Status = etl.FileFailed
	file.AccessKey = accessKey
	file.Message = cause.Error()

	l.appendLog(ctx, etl.LogEntry{
		RunID:     runID,
		File:      path,
		AccessKey: accessKey,
		Status:    etl.LogError,
		Message:   cause.Error(),
		Elapsed:   elapsed,
		Size:      file.Size,
	})
	l.record(ctx, file)
	l.log.Error("Failed to process file",
		"correlation_id", ctxutil.GetCorrelationID(ctx),
		"run_id", runID,
		"path", path,
		"access_key", accessKey,
		"duration_ms", elapsed.Milliseconds(),
		"error", cause,
	)

	return LoadResult{Outcome: OutcomeError, Reason: cause.Error(), AccessKey: accessKey, Err: cause}
}

// describe collects the ledger metadata of a file. Missing metadata is logged and
// left empty.
func (l *Loader) describe(path string) etl.ProcessedFile {
	file := etl.ProcessedFile{Path: path, Name: filepath.Base(path)}

	info, err := os.Stat(path)
	if err != nil {
		l.log.Warn("Could not stat source file", "path", path, "error", err)
		return file
	}
	file.Size = info.Size()
	mod := info.ModTime()
	file.ModifiedAt = &mod

	if l.opts.Hasher != nil {
		hash, err := l.hash(path, info)
		if err != nil {
			l.log.Warn("Could not hash source file", "path", path, "error", err)
		} else {
			file.Hash = hash
		}
	}
	return file
}

// hash returns the digest of path, reusing the last one computed while the file
// keeps its size and modification time.
func (l *Loader) hash(path string, info os.FileInfo) (string, error) {
	l.mu.Lock()
	last := l.last
	l.mu.Unlock()
	if last.path == path && last.size == info.Size() && last.modTime.Equal(info.ModTime()) {
		return last.hash, nil
	}

	hash, err := l.opts.Hasher.File(path)
	if err != nil {
		return "", err
	}
	l.mu.Lock()
	l.last = digest{path: path, size: info.Size(), modTime: info.ModTime(), hash: hash}
	l.mu.Unlock()
	return hash, nil
}

func (l *Loader) appendLog(ctx context.Context, entry etl.LogEntry) {
	if entry.At.IsZero() {
		entry.At = l.now()
	}
	if err := l.logs.Append(ctx, entry); err != nil {
		l.log.Error("Failed to append processing log", "path", entry.File, "error", err)
	}
}

func (l *Loader) record(ctx context.Context, file etl.ProcessedFile) {
	if err := l.ledger.Record(ctx, file); err != nil {
		l.log.Error("Failed to record processed file", "path", file.Path, "status", file.Status, "error", err)
	}
}

// dispose applies the disposition policy. Failures are logged only.
func (l *Loader) dispose(ctx context.Context, path string) {
	switch l.opts.Disposition {
	case DispositionDelete:
		if err := os.Remove(path); err != nil {
			l.log.Warn("Failed to delete source file", "path", path, "error", err)
			return
		}
		if err := l.ledger.SetDisposition(ctx, path, "", true); err != nil {
			l.log.Warn("Failed to record deletion", "path", path, "error", err)
		}
		l.log.Debug("Source file deleted", "path", path)

	case DispositionMove:
		dest := backupPath(l.opts.BackupDir, filepath.Base(path), l.now())
		if err := moveFile(path, dest); err != nil {
			l.log.Warn("Failed to move source file to backup", "path", path, "backup_dir", l.opts.BackupDir, "error", err)
			return
		}
		if err := l.ledger.SetDisposition(ctx, path, dest, false); err != nil {
			l.log.Warn("Failed to record backup path", "path", path, "error", err)
		}
		l.log.Debug("Source file moved to backup", "path", path, "backup_path", dest)
	}
}
