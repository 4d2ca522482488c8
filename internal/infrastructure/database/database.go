package database

import (
	"context"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	"auditorfiscal/datalake/internal/infrastructure/security"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations lists the schema files in execution order.
var Migrations = []string{
	"migrations/001_create_etl_processamento.sql",
	"migrations/002_create_nfe.sql",
	"migrations/003_create_nfe_item.sql",
	"migrations/004_create_nfe_duplicata.sql",
	"migrations/005_create_etl_log_processamento.sql",
	"migrations/006_create_etl_arquivo_processado.sql",
}

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	// ConnectRetries bounds the ping attempts after the first one.
	ConnectRetries int
}

// PoolConfig parses the URL and applies the pool limits.
func PoolConfig(cfg Config) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		config.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 && cfg.MinConns <= cfg.MaxConns {
		config.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		config.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	return config, nil
}

// NewPool creates a new PostgreSQL connection pool, retrying the first ping with
// exponential backoff while the database comes up.
func NewPool(ctx context.Context, cfg Config, log *slog.Logger) (*pgxpool.Pool, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	config, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	dsn := security.SanitizeDSN(cfg.URL)
	attempt := 0
	ping := func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			log.Warn("Database not reachable", "dsn", dsn, "attempt", attempt, "error", err)
			return err
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	retries := cfg.ConnectRetries
	if retries < 0 {
		retries = 0
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Database connected", "dsn", dsn, "max_conns", config.MaxConns)
	return pool, nil
}

// RunMigrations executes all SQL migration files in order. Every file is idempotent.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	for _, migration := range Migrations {
		log.Info("Running migration", "file", migration)

		sqlBytes, err := migrationsFS.ReadFile(migration)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", migration, err)
		}

		if _, err := pool.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("execute migration %s: %w", migration, err)
		}

		log.Info("Migration completed", "file", migration)
	}

	return nil
}
