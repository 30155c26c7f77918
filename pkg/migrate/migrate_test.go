package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/brewops/brewops-backend/pkg/config"
	"github.com/brewops/brewops-backend/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(config.DriverSQLite, config.SQLiteDSN(filepath.Join(t.TempDir(), "migrate.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrator_UpDownSQLite(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	m, err := New(db, config.DriverSQLite, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, m.Up(ctx))

	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	pending, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	for _, table := range []string{"inventory_items", "inventory_lots", "stock_movements", "brew_batches", "purchase_order_lines", "order_lines", "finished_goods_stock"} {
		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n), table)
	}

	require.NoError(t, m.Down(ctx))
	v, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	require.NoError(t, m.Run(ctx, "up"))
	assert.Error(t, m.Run(ctx, "sideways"))
}

func TestMigrator_UnknownDriver(t *testing.T) {
	_, err := New(openSQLite(t), "mysql", logger.Nop())
	assert.Error(t, err)
}
