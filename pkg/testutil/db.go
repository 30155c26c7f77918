package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/brewops/brewops-backend/pkg/config"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/migrate"
	"github.com/stretchr/testify/require"
)

// NewSQLiteDB opens a fresh SQLite database in the test's temp dir and
// applies every migration. Each test gets its own file, so tests can run
// in parallel without sharing state.
func NewSQLiteDB(t *testing.T) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "brewops.db")
	db, err := database.New(&config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   path,
	}, logger.Nop())
	require.NoError(t, err, "open sqlite")
	t.Cleanup(func() { db.Close() })

	Migrate(t, db)
	return db
}

// Migrate applies all migrations to db.
func Migrate(t *testing.T, db *database.DB) {
	t.Helper()
	m, err := migrate.New(db.DB.DB, db.Driver(), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up(context.Background()), "migrate up")
}
