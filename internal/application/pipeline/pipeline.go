// Package pipeline orchestrates ingestion runs: it enumerates source files and
// drives each one through extraction, transformation and loading.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"auditorfiscal/datalake/internal/application/loader"
	"auditorfiscal/datalake/internal/core/datalake"
	"auditorfiscal/datalake/internal/core/etl"
	"auditorfiscal/datalake/internal/core/nfe"
	ctxutil "auditorfiscal/datalake/internal/infrastructure/context"
)

// ErrNoDirectory is returned when neither a directory nor a default is configured.
var ErrNoDirectory = errors.New("no input directory informed")

const messageNoFiles = "Nenhum arquivo encontrado"

// Extractor parses a source file.
type Extractor interface {
	ExtractFile(path string) (*nfe.Extraction, error)
}

// Transformer maps an extraction into persistence records.
type Transformer interface {
	Transform(ext *nfe.Extraction) (datalake.Record, error)
}

// Loader persists records and keeps the ledger.
type Loader interface {
	IsAlreadyProcessed(ctx context.Context, path string) (bool, error)
	SkipProcessed(ctx context.Context, path string, runID int64) loader.LoadResult
	LoadDocument(ctx context.Context, rec datalake.Record, sourcePath string, runID int64) loader.LoadResult
	RecordFailure(ctx context.Context, path, accessKey string, runID int64, cause error, elapsed time.Duration) loader.LoadResult
}

// Options configures directory traversal.
type Options struct {
	DefaultDir string
	Recursive  bool
}

// FileResult is the outcome of one file.
type FileResult struct {
	Path string
	loader.LoadResult
	Elapsed time.Duration
}

// RunStats summarises a run. Total always equals Processed + Duplicates + Errors.
type RunStats struct {
	RunID         int64
	CorrelationID string
	Total         int
	Processed     int
	Duplicates    int
	Errors        int
	Elapsed       time.Duration
}

// SuccessRate returns the share of processed files, in percent.
func (s RunStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.Total) * 100
}

// AveragePerFile returns the mean elapsed time per file.
func (s RunStats) AveragePerFile() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Total)
}

func (s *RunStats) add(res FileResult) {
	s.Total++
	switch res.Outcome {
	case loader.OutcomeSuccess:
		s.Processed++
	case loader.OutcomeDuplicate:
		s.Duplicates++
	default:
		s.Errors++
	}
}

// Pipeline runs files sequentially; each file is its own transaction, so a failure
// never affects files already committed.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	runs        etl.RunRepository
	opts        Options
	log         *slog.Logger
}

// New creates a Pipeline.
func New(extractor Extractor, transformer Transformer, loader Loader, runs etl.RunRepository, opts Options, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
		runs:        runs,
		opts:        opts,
		log:         log,
	}
}

// Run ingests the configured default directory.
func (p *Pipeline) Run(ctx context.Context, runType etl.RunType) (RunStats, error) {
	return p.ProcessDirectory(ctx, p.opts.DefaultDir, runType, p.opts.Recursive)
}

// ProcessDirectory ingests every XML file under dir. An empty dir falls back to the
// configured default. Only run-level failures, such as a missing directory, are
// returned as errors; file failures are counted in the stats.
func (p *Pipeline) ProcessDirectory(ctx context.Context, dir string, runType etl.RunType, recursive bool) (RunStats, error) {
	if dir == "" {
		dir = p.opts.DefaultDir
	}
	if dir == "" {
		return RunStats{}, ErrNoDirectory
	}

	ctx, stats, log, err := p.open(ctx, runType)
	if err != nil {
		return stats, err
	}
	start := time.Now()
	log.Info("Starting directory run", "dir", dir, "recursive", recursive, "type", runType)

	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%s is not a directory", dir)
	}
	if err != nil {
		err = fmt.Errorf("open input directory: %w", err)
		p.fail(ctx, log, &stats, start, err)
		return stats, err
	}

	files, err := listXML(dir, recursive)
	if err != nil {
		err = fmt.Errorf("list input directory: %w", err)
		p.fail(ctx, log, &stats, start, err)
		return stats, err
	}
	if len(files) == 0 {
		stats.Elapsed = time.Since(start)
		p.finish(ctx, log, stats, etl.RunFinished, messageNoFiles)
		return stats, nil
	}

	return p.processAll(ctx, log, stats, files, start)
}

// ProcessFiles ingests an explicit list of files, sorted and without repetitions.
func (p *Pipeline) ProcessFiles(ctx context.Context, files []string, runType etl.RunType) (RunStats, error) {
	ctx, stats, log, err := p.open(ctx, runType)
	if err != nil {
		return stats, err
	}
	start := time.Now()

	files = normalizeList(files)
	log.Info("Starting file list run", "files", len(files), "type", runType)
	if len(files) == 0 {
		stats.Elapsed = time.Since(start)
		p.finish(ctx, log, stats, etl.RunFinished, messageNoFiles)
		return stats, nil
	}
	return p.processAll(ctx, log, stats, files, start)
}

// ProcessFile drives one file through the stages. Errors and panics of any stage
// become an error result.
func (p *Pipeline) ProcessFile(ctx context.Context, path string, runID int64) (res FileResult) {
	start := time.Now()
	res.Path = path
	var accessKey string

	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("panic processing file: %v", r)
			res.LoadResult = p.loader.RecordFailure(ctx, path, accessKey, runID, cause, time.Since(start))
		}
		res.Elapsed = time.Since(start)
	}()

	processed, err := p.loader.IsAlreadyProcessed(ctx, path)
	if err != nil {
		p.log.Warn("Ledger check failed, processing file anyway", "path", path, "error", err)
	}
	if processed {
		res.LoadResult = p.loader.SkipProcessed(ctx, path, runID)
		return res
	}

	ext, err := p.extractor.ExtractFile(path)
	if err != nil {
		res.LoadResult = p.loader.RecordFailure(ctx, path, "", runID, err, time.Since(start))
		return res
	}
	accessKey = ext.AccessKey

	rec, err := p.transformer.Transform(ext)
	if err != nil {
		res.LoadResult = p.loader.RecordFailure(ctx, path, accessKey, runID, fmt.Errorf("transform: %w", err), time.Since(start))
		return res
	}

	res.LoadResult = p.loader.LoadDocument(ctx, rec, path, runID)
	return res
}

func (p *Pipeline) open(ctx context.Context, runType etl.RunType) (context.Context, RunStats, *slog.Logger, error) {
	ctx, correlationID := ctxutil.EnsureCorrelationID(ctx)
	stats := RunStats{CorrelationID: correlationID}

	runID, err := p.runs.Start(ctx, runType)
	if err != nil {
		return ctx, stats, p.log, fmt.Errorf("start run: %w", err)
	}
	stats.RunID = runID
	return ctx, stats, p.log.With("correlation_id", correlationID, "run_id", runID), nil
}

func (p *Pipeline) processAll(ctx context.Context, log *slog.Logger, stats RunStats, files []string, start time.Time) (RunStats, error) {
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			msg := fmt.Sprintf("execução interrompida após %d de %d arquivos", i, len(files))
			p.finish(ctx, log, stats, etl.RunFailed, msg)
			return stats, fmt.Errorf("run interrupted: %w", err)
		}

		res := p.ProcessFile(ctx, path, stats.RunID)
		stats.add(res)
		log.Debug("File processed",
			"path", path,
			"outcome", res.Outcome,
			"reason", res.Reason,
			"duration_ms", res.Elapsed.Milliseconds(),
		)
	}

	stats.Elapsed = time.Since(start)
	msg := fmt.Sprintf("%d processados, %d duplicados, %d erros", stats.Processed, stats.Duplicates, stats.Errors)
	p.finish(ctx, log, stats, etl.RunFinished, msg)
	return stats, nil
}

func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, stats *RunStats, start time.Time, err error) {
	stats.Elapsed = time.Since(start)
	p.finish(ctx, log, *stats, etl.RunFailed, err.Error())
}

func (p *Pipeline) finish(ctx context.Context, log *slog.Logger, stats RunStats, status etl.RunStatus, message string) {
	// A cancelled run context must not prevent the run from being closed.
	ctx = context.WithoutCancel(ctx)
	err := p.runs.Finish(ctx, stats.RunID, etl.Summary{
		Processed:  stats.Processed,
		Duplicates: stats.Duplicates,
		Errors:     stats.Errors,
		Elapsed:    stats.Elapsed,
		Status:     status,
		Message:    message,
	})
	if err != nil {
		log.Error("Failed to finish run", "status", status, "error", err)
	}

	level := slog.LevelInfo
	if status == etl.RunFailed {
		level = slog.LevelError
	}
	log.Log(ctx, level, "Run finished",
		"status", status,
		"message", message,
		"total", stats.Total,
		"processed", stats.Processed,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors,
		"success_rate", fmt.Sprintf("%.1f%%", stats.SuccessRate()),
		"avg_per_file_ms", stats.AveragePerFile().Milliseconds(),
		"duration_ms", stats.Elapsed.Milliseconds(),
	)
}
