package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"auditorfiscal/datalake/internal/adapters/datalake/postgres"
	healthhttp "auditorfiscal/datalake/internal/adapters/http/health"
	"auditorfiscal/datalake/internal/application/backfill"
	"auditorfiscal/datalake/internal/application/extractor"
	"auditorfiscal/datalake/internal/application/health"
	"auditorfiscal/datalake/internal/application/loader"
	"auditorfiscal/datalake/internal/application/pipeline"
	"auditorfiscal/datalake/internal/application/transformer"
	"auditorfiscal/datalake/internal/core/etl"
	"auditorfiscal/datalake/internal/infrastructure/checksum"
	"auditorfiscal/datalake/internal/infrastructure/config"
	"auditorfiscal/datalake/internal/infrastructure/database"
	"auditorfiscal/datalake/internal/infrastructure/http/server"

	"github.com/jackc/pgx/v5/pgxpool"
)

func databaseConfig(cfg config.AppConfig) database.Config {
	return database.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectRetries:  cfg.Database.ConnectRetries,
	}
}

func migrate(ctx context.Context, cfg config.AppConfig, log *slog.Logger) error {
	pool, err := database.NewPool(ctx, databaseConfig(cfg), log)
	if err != nil {
		return err
	}
	defer pool.Close()

	return database.RunMigrations(ctx, pool, log)
}

func loaderOptions(cfg config.AppConfig) (loader.Options, error) {
	opts := loader.Options{
		DedupByPath: cfg.ETL.DedupByPath,
		DedupByHash: cfg.ETL.DedupByHash,
		Disposition: loader.DispositionKeep,
		BackupDir:   cfg.ETL.BackupDir,
	}
	switch {
	case cfg.ETL.DeleteAfter:
		opts.Disposition = loader.DispositionDelete
	case cfg.ETL.MoveToBackup:
		opts.Disposition = loader.DispositionMove
	}
	// Digests are recorded on every ledger entry, hash dedup or not.
	hasher, err := checksum.New(cfg.ETL.HashAlgorithm)
	if err != nil {
		return loader.Options{}, err
	}
	opts.Hasher = hasher
	return opts, nil
}

func newPipeline(pool *pgxpool.Pool, cfg config.AppConfig, log *slog.Logger) (*pipeline.Pipeline, error) {
	opts, err := loaderOptions(cfg)
	if err != nil {
		return nil, err
	}
	ld, err := loader.New(
		postgres.NewDocumentRepositoryWithLogger(pool, log),
		postgres.NewLedgerRepository(pool),
		postgres.NewLogRepository(pool),
		opts,
		log,
	)
	if err != nil {
		return nil, err
	}

	return pipeline.New(
		extractor.New(log, extractor.Options{CompanyCNPJ: cfg.ETL.CompanyCNPJ}),
		transformer.New(log),
		ld,
		postgres.NewRunRepository(pool, log),
		pipeline.Options{DefaultDir: cfg.ETL.DefaultDir, Recursive: cfg.ETL.Recursive},
		log,
	), nil
}

func ingestDirectory(ctx context.Context, cfg config.AppConfig, log *slog.Logger, args []string) error {
	fs := newFlagSet("run")
	dir := fs.String("dir", cfg.ETL.DefaultDir, "input directory")
	recursive := fs.Bool("recursive", cfg.ETL.Recursive, "descend into subdirectories")
	runType := fs.String("type", string(etl.RunFull), "run type: completo or incremental")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	rt, err := etl.ParseRunType(*runType)
	if err != nil {
		return err
	}

	return withPipeline(ctx, cfg, log, func(p *pipeline.Pipeline) (pipeline.RunStats, error) {
		return p.ProcessDirectory(ctx, *dir, rt, *recursive)
	})
}

func ingestFiles(ctx context.Context, cfg config.AppConfig, log *slog.Logger, args []string) error {
	fs := newFlagSet("files")
	runType := fs.String("type", string(etl.RunIncremental), "run type: completo or incremental")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	rt, err := etl.ParseRunType(*runType)
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("files: at least one file is required")
	}

	return withPipeline(ctx, cfg, log, func(p *pipeline.Pipeline) (pipeline.RunStats, error) {
		return p.ProcessFiles(ctx, fs.Args(), rt)
	})
}

func withPipeline(ctx context.Context, cfg config.AppConfig, log *slog.Logger, fn func(*pipeline.Pipeline) (pipeline.RunStats, error)) error {
	logConfig(log, cfg)

	pool, err := database.NewPool(ctx, databaseConfig(cfg), log)
	if err != nil {
		return err
	}
	defer pool.Close()

	p, err := newPipeline(pool, cfg, log)
	if err != nil {
		return err
	}

	stats, err := fn(p)
	log.Info("Run summary",
		"run_id", stats.RunID,
		"correlation_id", stats.CorrelationID,
		"total", stats.Total,
		"processed", stats.Processed,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors,
		"success_rate", fmt.Sprintf("%.1f%%", stats.SuccessRate()),
		"avg_per_file", stats.AveragePerFile(),
		"elapsed", stats.Elapsed,
	)
	return err
}

func backfillCmd(ctx context.Context, cfg config.AppConfig, log *slog.Logger, args []string) error {
	fs := newFlagSet("backfill")
	batch := fs.Int("batch", backfill.DefaultBatchSize, "documents per page")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	pool, err := database.NewPool(ctx, databaseConfig(cfg), log)
	if err != nil {
		return err
	}
	defer pool.Close()

	b := backfill.New(
		postgres.NewDocumentRepositoryWithLogger(pool, log),
		extractor.New(log, extractor.Options{CompanyCNPJ: cfg.ETL.CompanyCNPJ}),
		transformer.New(log),
		log,
	)
	stats, err := b.Run(ctx, *batch)
	log.Info("Backfill summary",
		"scanned", stats.Scanned,
		"patched", stats.Patched,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"rows", stats.Rows,
		"elapsed", stats.Elapsed,
	)
	return err
}

func serve(ctx context.Context, cfg config.AppConfig, log *slog.Logger) error {
	pool, err := database.NewPool(ctx, databaseConfig(cfg), log)
	if err != nil {
		log.Warn("Database unavailable, health will report DEGRADED until it answers", "error", err)
		poolCfg, cfgErr := database.PoolConfig(databaseConfig(cfg))
		if cfgErr != nil {
			return cfgErr
		}
		if pool, err = pgxpool.NewWithConfig(ctx, poolCfg); err != nil {
			return fmt.Errorf("create connection pool: %w", err)
		}
	}
	defer pool.Close()

	svc := health.NewService(health.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	}, pool, postgres.NewRunRepository(pool, log))

	srv, err := server.New(server.Options{
		Config:        cfg,
		Logger:        log,
		HealthHandler: http.HandlerFunc(healthhttp.NewHandler(svc).Status),
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	log.Info("Starting HTTP server", "port", cfg.HTTP.Port)
	return srv.Run(ctx)
}
