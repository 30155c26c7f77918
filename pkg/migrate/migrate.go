// Package migrate applies the embedded goose SQL migrations to the
// configured database. The same files run on PostgreSQL and SQLite.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/brewops/brewops-backend/pkg/config"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrator wraps a goose provider bound to one database.
type Migrator struct {
	provider *goose.Provider
	log      *logger.Logger
}

// New builds a migrator for db using the driver name from config.
func New(db *sql.DB, driver string, log *logger.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}

	dialect, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	fsys, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}

	return &Migrator{provider: provider, log: log}, nil
}

func dialectFor(driver string) (goose.Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return goose.DialectPostgres, nil
	case config.DriverSQLite:
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("no migration dialect for driver %q", driver)
	}
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		m.log.Info().
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Dur("took", r.Duration).
			Msg("migration applied")
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	if r != nil {
		m.log.Info().Int64("version", r.Source.Version).Msg("migration rolled back")
	}
	return nil
}

// Version returns the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return v, nil
}

// Status logs the state of every known migration and returns the number still pending.
func (m *Migrator) Status(ctx context.Context) (int, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose status: %w", err)
	}

	pending := 0
	for _, s := range statuses {
		ev := m.log.Info().
			Int64("version", s.Source.Version).
			Str("file", s.Source.Path).
			Str("state", string(s.State))
		if s.State == goose.StatePending {
			pending++
		} else {
			ev = ev.Time("applied_at", s.AppliedAt)
		}
		ev.Msg("migration status")
	}
	return pending, nil
}

// Run executes one of up, down, status or version.
func (m *Migrator) Run(ctx context.Context, command string) error {
	switch command {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "status":
		_, err := m.Status(ctx)
		return err
	case "version":
		v, err := m.Version(ctx)
		if err != nil {
			return err
		}
		m.log.Info().Int64("version", v).Msg("current schema version")
		return nil
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}
