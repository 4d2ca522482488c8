package etl

import (
	"context"
	"errors"
)

// ErrRunNotRunning is returned by Finish when the run already left the executando state.
var ErrRunNotRunning = errors.New("run is not running")

// RunRepository persists run headers.
type RunRepository interface {
	// Start opens a run in the executando state and returns its id.
	Start(ctx context.Context, runType RunType) (int64, error)
	// Finish closes a running run with its final counters.
	Finish(ctx context.Context, runID int64, summary Summary) error
	// Latest returns the most recent run, or false when none exists.
	Latest(ctx context.Context) (Run, bool, error)
}

// LedgerRepository persists the outcome of every source file.
type LedgerRepository interface {
	HasProcessedPath(ctx context.Context, path string) (bool, error)
	HasProcessedHash(ctx context.Context, hash string) (bool, error)
	// Record inserts or replaces the ledger entry of file.Path. A processado entry
	// is only ever replaced by another processado entry.
	Record(ctx context.Context, file ProcessedFile) error
	// SetDisposition stores where the file went after processing.
	SetDisposition(ctx context.Context, path, backupPath string, deleted bool) error
}

// LogRepository appends processing log entries.
type LogRepository interface {
	Append(ctx context.Context, entry LogEntry) error
}
