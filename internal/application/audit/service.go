// Package audit validates a batch of fiscal files and settles their period
// without touching the datalake.
package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"auditorfiscal/datalake/internal/application/apuracao"
	"auditorfiscal/datalake/internal/application/validator"
)

// Report is the outcome of an audit run.
type Report struct {
	Period    string             `json:"periodo"`
	Documents []validator.Result `json:"documentos"`
	Failures  []Failure          `json:"falhas,omitempty"`
	Map       apuracao.Map       `json:"apuracao"`
}

// Failure is a file left out of the settlement.
type Failure struct {
	File  string `json:"arquivo"`
	Error string `json:"erro"`
}

// Service runs audits. It is safe for concurrent use; every Run uses its own pool.
type Service struct {
	extractor Extractor
	auditor   Auditor
	validator *validator.Validator
	workers   int
	log       *slog.Logger
}

// NewService creates an audit Service.
func NewService(ex Extractor, au Auditor, v *validator.Validator, workers int, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{extractor: ex, auditor: au, validator: v, workers: workers, log: log}
}

// Run audits files and settles period. Unreadable files and repeated access keys
// are reported as failures; the first file carrying a key wins.
func (s *Service) Run(ctx context.Context, period string, files []string) Report {
	start := time.Now()
	pool := NewWorkerPool(ctx, s.workers, s.extractor, s.auditor, s.validator)
	results := pool.ProcessFiles(files)

	report := Report{Period: period, Documents: []validator.Result{}}
	ap := apuracao.New()
	seen := make(map[string]string, len(results))
	for _, res := range results {
		if res.Err != nil {
			s.log.Warn("Skipping file", "path", res.Path, "error", res.Err)
			report.Failures = append(report.Failures, Failure{File: res.Path, Error: res.Err.Error()})
			continue
		}
		key := res.Document.AccessKey
		if first, ok := seen[key]; ok && key != "" {
			report.Failures = append(report.Failures, Failure{
				File:  res.Path,
				Error: fmt.Sprintf("chave de acesso %s repetida, já auditada em %s", key, first),
			})
			continue
		}
		seen[key] = res.Path
		report.Documents = append(report.Documents, res.Validation)
		ap.Add(res.Document)
	}

	report.Map = ap.Apurar(period)
	s.log.Info("Audit finished",
		"files", len(files),
		"documents", len(report.Documents),
		"failures", len(report.Failures),
		"duration", time.Since(start),
	)
	return report
}
