// Package backfill reprocesses stored document bodies to fill columns that older
// loads left NULL. Values already present are never overwritten.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"auditorfiscal/datalake/internal/core/datalake"
	"auditorfiscal/datalake/internal/core/nfe"
)

// DefaultBatchSize is used when Run receives a non-positive batch size.
const DefaultBatchSize = 200

// Extractor parses a stored XML body.
type Extractor interface {
	Extract(raw []byte) (*nfe.Extraction, error)
}

// Transformer maps an extraction into persistence records.
type Transformer interface {
	Transform(ext *nfe.Extraction) (datalake.Record, error)
}

// Stats summarises a backfill.
type Stats struct {
	Scanned int
	Patched int
	Skipped int
	Failed  int
	Rows    int64
	Elapsed time.Duration
}

// Backfiller pages through the document table and patches each row.
type Backfiller struct {
	repo        datalake.Repository
	extractor   Extractor
	transformer Transformer
	log         *slog.Logger
}

// New creates a Backfiller.
func New(repo datalake.Repository, extractor Extractor, transformer Transformer, log *slog.Logger) *Backfiller {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Backfiller{
		repo:        repo,
		extractor:   extractor,
		transformer: transformer,
		log:         log,
	}
}

// Run processes every stored document in id order. A failing document is
// counted and logged; only listing failures and cancellation abort the run.
func (b *Backfiller) Run(ctx context.Context, batchSize int) (Stats, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	start := time.Now()
	var stats Stats
	var afterID int64

	for {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, fmt.Errorf("backfill interrupted: %w", err)
		}

		batch, err := b.repo.ListRaw(ctx, afterID, batchSize)
		if err != nil {
			stats.Elapsed = time.Since(start)
			return stats, fmt.Errorf("list documents after %d: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, doc := range batch {
			stats.Scanned++
			afterID = doc.ID

			rows, err := b.patch(ctx, doc)
			switch {
			case err != nil:
				stats.Failed++
				b.log.Warn("Backfill failed for document",
					"document_id", doc.ID,
					"access_key", doc.AccessKey,
					"error", err,
				)
			case rows == 0:
				stats.Skipped++
			default:
				stats.Patched++
				stats.Rows += rows
			}
		}

		b.log.Debug("Backfill batch done", "last_id", afterID, "scanned", stats.Scanned)
		if len(batch) < batchSize {
			break
		}
	}

	stats.Elapsed = time.Since(start)
	b.log.Info("Backfill finished",
		"scanned", stats.Scanned,
		"patched", stats.Patched,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"rows", stats.Rows,
		"duration_ms", stats.Elapsed.Milliseconds(),
	)
	return stats, nil
}

var errEmptyBody = errors.New("stored document has no XML body")

func (b *Backfiller) patch(ctx context.Context, doc datalake.RawDocument) (int64, error) {
	if doc.RawXML == "" {
		return 0, errEmptyBody
	}

	ext, err := b.extractor.Extract([]byte(doc.RawXML))
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	rec, err := b.transformer.Transform(ext)
	if err != nil {
		return 0, fmt.Errorf("transform: %w", err)
	}

	rows, err := b.repo.PatchMissing(ctx, doc.ID, rec)
	if err != nil {
		return 0, fmt.Errorf("patch: %w", err)
	}
	return rows, nil
}
