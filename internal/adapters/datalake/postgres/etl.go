package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"auditorfiscal/datalake/internal/core/etl"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunRepository implements etl.RunRepository over etl_processamento.
type RunRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRunRepository creates a new PostgreSQL run repository.
func NewRunRepository(pool *pgxpool.Pool, log *slog.Logger) etl.RunRepository {
	return &RunRepository{pool: pool, log: log}
}

// Start opens a run in the executando state.
func (r *RunRepository) Start(ctx context.Context, runType etl.RunType) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO etl_processamento (tipo_processamento, status)
		VALUES ($1, $2)
		RETURNING id
	`, string(runType), string(etl.RunRunning)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	if r.log != nil {
		r.log.Debug("Run started", "run_id", id, "type", runType)
	}
	return id, nil
}

// Finish writes the final counters of a running run.
func (r *RunRepository) Finish(ctx context.Context, runID int64, summary etl.Summary) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE etl_processamento
		SET arquivos_processados = $2,
			arquivos_duplicados = $3,
			arquivos_erro = $4,
			tempo_execucao = $5,
			status = $6,
			mensagem = $7
		WHERE id = $1 AND status = $8
	`,
		runID,
		summary.Processed,
		summary.Duplicates,
		summary.Errors,
		summary.Elapsed.Seconds(),
		string(summary.Status),
		text(summary.Message),
		string(etl.RunRunning),
	)
	if err != nil {
		return fmt.Errorf("update run %d: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return etl.ErrRunNotRunning
	}
	return nil
}

// Latest returns the most recently started run.
func (r *RunRepository) Latest(ctx context.Context) (etl.Run, bool, error) {
	var (
		run     etl.Run
		runType string
		status  string
		elapsed float64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, data_inicio, tipo_processamento, arquivos_processados, arquivos_duplicados,
			arquivos_erro, COALESCE(tempo_execucao, 0)::float8, status, COALESCE(mensagem, '')
		FROM etl_processamento
		ORDER BY data_inicio DESC, id DESC
		LIMIT 1
	`).Scan(
		&run.ID,
		&run.StartedAt,
		&runType,
		&run.Processed,
		&run.Duplicates,
		&run.Errors,
		&elapsed,
		&status,
		&run.Message,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return etl.Run{}, false, nil
	}
	if err != nil {
		return etl.Run{}, false, fmt.Errorf("query latest run: %w", err)
	}
	run.Type = etl.RunType(runType)
	run.Status = etl.RunStatus(status)
	run.Elapsed = time.Duration(elapsed * float64(time.Second))
	return run, true, nil
}

// LedgerRepository implements etl.LedgerRepository over etl_arquivo_processado.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new PostgreSQL processed-file ledger.
func NewLedgerRepository(pool *pgxpool.Pool) etl.LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// HasProcessedPath reports whether path was recorded as processado.
func (r *LedgerRepository) HasProcessedPath(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM etl_arquivo_processado WHERE caminho_arquivo = $1 AND status = $2
		)
	`, path, string(etl.FileProcessed)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query ledger path: %w", err)
	}
	return exists, nil
}

// HasProcessedHash reports whether any processado entry carries hash.
func (r *LedgerRepository) HasProcessedHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM etl_arquivo_processado WHERE hash_arquivo = $1 AND status = $2
		)
	`, hash, string(etl.FileProcessed)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query ledger hash: %w", err)
	}
	return exists, nil
}

// recordLedgerSQL upserts by path. A processado row is only replaced by another
// processado row.
const recordLedgerSQL = `
	INSERT INTO etl_arquivo_processado (
		caminho_arquivo, nome_arquivo, hash_arquivo, tamanho_arquivo, chave_acesso,
		nfe_id, data_modificacao, status, mensagem, caminho_backup, arquivo_deletado
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (caminho_arquivo) DO UPDATE SET
		nome_arquivo = EXCLUDED.nome_arquivo,
		hash_arquivo = EXCLUDED.hash_arquivo,
		tamanho_arquivo = EXCLUDED.tamanho_arquivo,
		chave_acesso = EXCLUDED.chave_acesso,
		nfe_id = EXCLUDED.nfe_id,
		data_modificacao = EXCLUDED.data_modificacao,
		data_processamento = NOW(),
		status = EXCLUDED.status,
		mensagem = EXCLUDED.mensagem,
		caminho_backup = EXCLUDED.caminho_backup,
		arquivo_deletado = EXCLUDED.arquivo_deletado
	WHERE etl_arquivo_processado.status <> 'processado' OR EXCLUDED.status = 'processado'
`

// Record inserts the entry or replaces the one already stored for its path.
func (r *LedgerRepository) Record(ctx context.Context, file etl.ProcessedFile) error {
	_, err := r.pool.Exec(ctx, recordLedgerSQL,
		file.Path,
		file.Name,
		text(file.Hash),
		file.Size,
		text(file.AccessKey),
		file.DocumentID,
		timestamp(file.ModifiedAt),
		string(file.Status),
		text(file.Message),
		text(file.BackupPath),
		file.Deleted,
	)
	if err != nil {
		return fmt.Errorf("record processed file %s: %w", file.Path, err)
	}
	return nil
}

// SetDisposition stores the backup path or deletion flag of a recorded file.
func (r *LedgerRepository) SetDisposition(ctx context.Context, path, backupPath string, deleted bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE etl_arquivo_processado
		SET caminho_backup = $2, arquivo_deletado = $3
		WHERE caminho_arquivo = $1
	`, path, text(backupPath), deleted)
	if err != nil {
		return fmt.Errorf("update disposition of %s: %w", path, err)
	}
	return nil
}

// LogRepository implements etl.LogRepository over etl_log_processamento.
type LogRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository creates a new PostgreSQL processing log.
func NewLogRepository(pool *pgxpool.Pool) etl.LogRepository {
	return &LogRepository{pool: pool}
}

// Append inserts one processing log entry. A zero RunID is stored as NULL.
func (r *LogRepository) Append(ctx context.Context, entry etl.LogEntry) error {
	var runID any
	if entry.RunID != 0 {
		runID = entry.RunID
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO etl_log_processamento (
			processamento_id, data_hora, arquivo_xml, chave_acesso, status,
			mensagem, tempo_processamento, tamanho_arquivo
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		runID,
		at,
		text(entry.File),
		text(entry.AccessKey),
		string(entry.Status),
		text(entry.Message),
		entry.Elapsed.Seconds(),
		entry.Size,
	)
	if err != nil {
		return fmt.Errorf("append processing log: %w", err)
	}
	return nil
}
