package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	auditapp "auditorfiscal/datalake/internal/application/audit"
	"auditorfiscal/datalake/internal/application/extractor"
	"auditorfiscal/datalake/internal/application/transformer"
	"auditorfiscal/datalake/internal/application/validator"
	"auditorfiscal/datalake/internal/infrastructure/config"

	"github.com/shopspring/decimal"
)

func audit(ctx context.Context, cfg config.AppConfig, log *slog.Logger, args []string, out io.Writer) error {
	fs := newFlagSet("audit")
	period := fs.String("period", time.Now().Format("01/2006"), "settlement period label")
	workers := fs.Int("workers", runtime.NumCPU(), "files audited concurrently")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errors.New("audit: at least one file is required")
	}

	svc := auditapp.NewService(
		extractor.New(log, extractor.Options{CompanyCNPJ: cfg.ETL.CompanyCNPJ}),
		transformer.New(log),
		validator.New(validator.Options{
			DefaultTolerance: decimal.NewNullDecimal(cfg.Audit.DefaultTolerance),
			Tolerances:       cfg.Audit.Tolerances,
		}),
		*workers,
		log,
	)
	report := svc.Run(ctx, *period, fs.Args())

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode audit report: %w", err)
	}
	return nil
}
