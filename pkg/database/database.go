package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/brewops/brewops-backend/pkg/config"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"
)

// DB wraps sqlx.DB with additional functionality.
//
// The query helpers shadow the sqlx ones: they rebind "?" placeholders for
// the active driver and run inside the transaction carried by ctx, if any.
type DB struct {
	*sqlx.DB
	driver string
	logger *logger.Logger
}

type txKey struct{}

var (
	// ErrNestedTransaction is returned by Transaction when ctx already carries a transaction.
	ErrNestedTransaction = stderrors.New("database: transaction already open in context")
	// ErrNoTransaction is returned by operations that only run inside a caller's transaction.
	ErrNoTransaction = stderrors.New("database: operation requires an open transaction")
)

// New creates a new database connection
func New(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverPostgres
	}

	db, err := sqlx.Connect(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &DB{
		DB:     db,
		driver: driver,
		logger: log,
	}, nil
}

// NewWithDSN creates a new database connection with a DSN string
func NewWithDSN(driver, dsn string, log *logger.Logger) (*DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{
		DB:     db,
		driver: driver,
		logger: log,
	}, nil
}

// Wrap adapts an existing sqlx handle, used by tests with sqlmock.
func Wrap(db *sqlx.DB, log *logger.Logger) *DB {
	return &DB{DB: db, driver: db.DriverName(), logger: log}
}

// Driver returns the SQL driver name.
func (db *DB) Driver() string {
	return db.driver
}

// ForUpdate returns the row-lock suffix for SELECTs that precede a write.
// SQLite serializes writers at BEGIN IMMEDIATE, so it needs none.
func (db *DB) ForUpdate() string {
	if db.driver == config.DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// Ping checks the database connection
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) map[string]string {
	status := map[string]string{
		"status": "up",
		"driver": db.driver,
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}

	return status
}

// Transaction executes fn within a transaction stored in the context passed to fn.
// Every call owns its transaction: a ctx that already carries one is refused
// with ErrNestedTransaction. Code that must run inside a caller's transaction
// checks InTransaction instead of opening its own.
func (db *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if db.getTx(ctx) != nil {
		return ErrNestedTransaction
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			return multierr.Append(mapAborted(err), rbErr)
		}
		return mapAborted(err)
	}

	if err := tx.Commit(); err != nil {
		if aborted := mapAborted(err); aborted != err {
			return aborted
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// InTransaction reports whether ctx carries an open transaction.
func (db *DB) InTransaction(ctx context.Context) bool {
	return db.getTx(ctx) != nil
}

// GetContext scans a single row into dest.
func (db *DB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if tx := db.getTx(ctx); tx != nil {
		return tx.GetContext(ctx, dest, tx.Rebind(query), args...)
	}
	return db.DB.GetContext(ctx, dest, db.Rebind(query), args...)
}

// SelectContext scans all rows into dest.
func (db *DB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	if tx := db.getTx(ctx); tx != nil {
		return tx.SelectContext(ctx, dest, tx.Rebind(query), args...)
	}
	return db.DB.SelectContext(ctx, dest, db.Rebind(query), args...)
}

// ExecContext runs a statement that returns no rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tx := db.getTx(ctx); tx != nil {
		return tx.ExecContext(ctx, tx.Rebind(query), args...)
	}
	return db.DB.ExecContext(ctx, db.Rebind(query), args...)
}

// QueryRowxContext runs a query expected to return at most one row.
func (db *DB) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	if tx := db.getTx(ctx); tx != nil {
		return tx.QueryRowxContext(ctx, tx.Rebind(query), args...)
	}
	return db.DB.QueryRowxContext(ctx, db.Rebind(query), args...)
}

// ExecAffecting runs a statement and returns the number of rows it touched.
func (db *DB) ExecAffecting(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// getTx extracts transaction from context if present
func (db *DB) getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
