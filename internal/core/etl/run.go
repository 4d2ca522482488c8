// Package etl holds the bookkeeping of ingestion runs: the run header, the
// processed-file ledger and the per-file processing log.
package etl

import (
	"fmt"
	"strings"
	"time"
)

// RunType distinguishes a full reload from an incremental pass.
type RunType string

const (
	RunFull        RunType = "completo"
	RunIncremental RunType = "incremental"
)

// ParseRunType accepts the stored names and their English aliases.
func ParseRunType(value string) (RunType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "completo", "full":
		return RunFull, nil
	case "incremental":
		return RunIncremental, nil
	default:
		return "", fmt.Errorf("invalid run type: %s", value)
	}
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning  RunStatus = "executando"
	RunFinished RunStatus = "concluido"
	RunFailed   RunStatus = "erro"
)

// Run is one row of etl_processamento.
type Run struct {
	ID         int64
	StartedAt  time.Time
	Type       RunType
	Processed  int
	Duplicates int
	Errors     int
	Elapsed    time.Duration
	Status     RunStatus
	Message    string
}

// Summary carries the counters written when a run finishes.
type Summary struct {
	Processed  int
	Duplicates int
	Errors     int
	Elapsed    time.Duration
	Status     RunStatus
	Message    string
}
