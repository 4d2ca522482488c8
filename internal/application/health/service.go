package health

import (
	"context"
	"time"

	"auditorfiscal/datalake/internal/core/etl"
	corehealth "auditorfiscal/datalake/internal/core/health"
)

const pingTimeout = 2 * time.Second

// Metadata contains immutable metadata about the running service.
type Metadata struct {
	Service     string
	Version     string
	Environment string
}

// Pinger checks that the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service exposes health-check use cases to adapters.
type Service struct {
	meta      Metadata
	startedAt time.Time
	db        Pinger
	runs      etl.RunRepository
}

// NewService creates a Service. db and runs may be nil when the process runs
// without a database.
func NewService(meta Metadata, db Pinger, runs etl.RunRepository) *Service {
	return &Service{
		meta:      meta,
		startedAt: time.Now().UTC(),
		db:        db,
		runs:      runs,
	}
}

// Status returns the current availability snapshot. A failing database ping
// degrades the service instead of taking it down.
func (s *Service) Status(ctx context.Context) corehealth.Status {
	uptime := time.Since(s.startedAt)
	status := corehealth.Status{
		Service:     s.meta.Service,
		Version:     s.meta.Version,
		Environment: s.meta.Environment,
		Status:      corehealth.StatusUp,
		StartedAt:   s.startedAt,
		Uptime:      uptime.String(),
		UptimeSecs:  int64(uptime.Seconds()),
	}

	if s.db == nil {
		return status
	}

	dep := s.ping(ctx)
	status.Dependencies = append(status.Dependencies, dep)
	if dep.Status != corehealth.StatusUp {
		status.Status = corehealth.StatusDegraded
		return status
	}

	if s.runs != nil {
		if run, ok, err := s.runs.Latest(ctx); err == nil && ok {
			status.LastRun = &corehealth.LastRun{
				ID:         run.ID,
				StartedAt:  run.StartedAt,
				Type:       string(run.Type),
				Status:     string(run.Status),
				Processed:  run.Processed,
				Duplicates: run.Duplicates,
				Errors:     run.Errors,
				Message:    run.Message,
			}
		}
	}
	return status
}

func (s *Service) ping(ctx context.Context) corehealth.Dependency {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := s.db.Ping(ctx)
	dep := corehealth.Dependency{
		Name:    "postgres",
		Status:  corehealth.StatusUp,
		Latency: time.Since(start).String(),
	}
	if err != nil {
		dep.Status = corehealth.StatusDown
		dep.Error = err.Error()
	}
	return dep
}
