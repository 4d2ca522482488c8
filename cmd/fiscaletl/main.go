package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"auditorfiscal/datalake/internal/infrastructure/config"
	"auditorfiscal/datalake/internal/infrastructure/logger"
)

const usage = `usage: fiscaletl <command> [flags]

commands:
  migrate                               create or update the datalake schema
  run [-dir D] [-recursive] [-type T]   ingest every XML file of a directory
  files [-type T] FILE...               ingest the given files
  audit [-period P] [-workers N] FILE... validate and settle files, printing JSON
  backfill [-batch N]                   fill empty columns from stored XML
  serve                                 expose the health endpoint
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "fiscaletl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "migrate":
		return migrate(ctx, cfg, log)
	case "run":
		return ingestDirectory(ctx, cfg, log, rest)
	case "files":
		return ingestFiles(ctx, cfg, log, rest)
	case "audit":
		return audit(ctx, cfg, log, rest, stdout)
	case "backfill":
		return backfillCmd(ctx, cfg, log, rest)
	case "serve":
		return serve(ctx, cfg, log)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func logConfig(log *slog.Logger, cfg config.AppConfig) {
	log.Info("ETL configuration",
		"default_dir", cfg.ETL.DefaultDir,
		"recursive", cfg.ETL.Recursive,
		"delete_after", cfg.ETL.DeleteAfter,
		"move_to_backup", cfg.ETL.MoveToBackup,
		"backup_dir", cfg.ETL.BackupDir,
		"dedup_by_path", cfg.ETL.DedupByPath,
		"dedup_by_hash", cfg.ETL.DedupByHash,
		"dedup_by_key", cfg.ETL.DedupByKey,
		"hash_algorithm", cfg.ETL.HashAlgorithm,
		"company_cnpj_set", cfg.ETL.CompanyCNPJ != "",
	)
}
