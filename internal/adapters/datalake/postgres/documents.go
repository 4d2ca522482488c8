// Package postgres persists the fiscal datalake in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"auditorfiscal/datalake/internal/core/datalake"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// DocumentRepository implements the datalake.Repository interface using PostgreSQL.
type DocumentRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewDocumentRepository creates a new PostgreSQL document repository.
func NewDocumentRepository(pool *pgxpool.Pool) datalake.Repository {
	return &DocumentRepository{pool: pool}
}

// NewDocumentRepositoryWithLogger creates a new PostgreSQL document repository with logging.
func NewDocumentRepositoryWithLogger(pool *pgxpool.Pool, log *slog.Logger) datalake.Repository {
	return &DocumentRepository{pool: pool, log: log}
}

// DocumentIDByAccessKey looks a document up by its access key.
func (r *DocumentRepository) DocumentIDByAccessKey(ctx context.Context, accessKey string) (int64, bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM nfe WHERE chave_acesso = $1`, accessKey).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query document by access key: %w", err)
	}
	return id, true, nil
}

// ExistingAccessKeys returns which of accessKeys are already stored.
func (r *DocumentRepository) ExistingAccessKeys(ctx context.Context, accessKeys []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(accessKeys) == 0 {
		return found, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT chave_acesso FROM nfe WHERE chave_acesso = ANY($1)`, accessKeys)
	if err != nil {
		return nil, fmt.Errorf("query existing access keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan access key: %w", err)
		}
		found[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access keys: %w", err)
	}
	return found, nil
}

// Insert stores the document, its items and installments in one transaction.
func (r *DocumentRepository) Insert(ctx context.Context, rec datalake.Record) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query, args := insertSQL("nfe", nil, documentColumns(rec.Document))
	var id int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, datalake.ErrDuplicateAccessKey
		}
		return 0, fmt.Errorf("insert document: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range rec.Items {
		query, args := insertSQL("nfe_item", []string{"nfe_id"}, itemColumns(item))
		batch.Queue(query, append([]any{id}, args...)...)
	}
	for _, inst := range rec.Installments {
		query, args := insertSQL("nfe_duplicata", []string{"nfe_id"}, installmentColumns(inst))
		batch.Queue(query, append([]any{id}, args...)...)
	}
	if batch.Len() > 0 {
		if err := execBatch(ctx, tx, batch); err != nil {
			return 0, fmt.Errorf("insert document children: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return 0, datalake.ErrDuplicateAccessKey
		}
		return 0, fmt.Errorf("commit document: %w", err)
	}

	if r.log != nil {
		r.log.Debug("Document stored",
			"document_id", id,
			"access_key", rec.Document.AccessKey,
			"items", len(rec.Items),
			"installments", len(rec.Installments),
		)
	}
	return id, nil
}

// ListRaw pages stored bodies in id order.
func (r *DocumentRepository) ListRaw(ctx context.Context, afterID int64, limit int) ([]datalake.RawDocument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, chave_acesso, COALESCE(xml_completo, '')
		FROM nfe
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query raw documents: %w", err)
	}
	defer rows.Close()

	var docs []datalake.RawDocument
	for rows.Next() {
		var doc datalake.RawDocument
		if err := rows.Scan(&doc.ID, &doc.AccessKey, &doc.RawXML); err != nil {
			return nil, fmt.Errorf("scan raw document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw documents: %w", err)
	}
	return docs, nil
}

// PatchMissing fills NULL document and item columns from rec. Items without a
// number cannot be matched and are skipped, as are installments.
func (r *DocumentRepository) PatchMissing(ctx context.Context, documentID int64, rec datalake.Record) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var touched int64
	query, args := patchSQL("nfe", []string{"id"}, documentColumns(rec.Document))
	if query != "" {
		tag, err := tx.Exec(ctx, query, append([]any{documentID}, args...)...)
		if err != nil {
			return 0, fmt.Errorf("patch document %d: %w", documentID, err)
		}
		touched += tag.RowsAffected()
	}

	for _, item := range rec.Items {
		if item.Number == nil {
			continue
		}
		query, args := patchSQL("nfe_item", []string{"nfe_id", "numero_item"}, itemColumns(item)[1:])
		if query == "" {
			continue
		}
		tag, err := tx.Exec(ctx, query, append([]any{documentID, *item.Number}, args...)...)
		if err != nil {
			return 0, fmt.Errorf("patch item %d of document %d: %w", *item.Number, documentID, err)
		}
		touched += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit patch: %w", err)
	}

	if r.log != nil && touched > 0 {
		r.log.Debug("Document patched", "document_id", documentID, "rows", touched)
	}
	return touched, nil
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
