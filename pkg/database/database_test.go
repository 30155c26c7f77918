package database

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return Wrap(sqlx.NewDb(raw, "sqlmock"), logger.Nop()), mock
}

func TestTransaction_CommitsAndRoutesQueriesThroughTx(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE batches SET status = ? WHERE id = ?")).
		WithArgs("brewing", "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, db.InTransaction(ctx))
		n, err := db.ExecAffecting(ctx, "UPDATE batches SET status = ? WHERE id = ?", "brewing", "b1")
		assert.Equal(t, int64(1), n)
		return err
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := stderrors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RefusesNestedCall(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		return db.Transaction(ctx, func(inner context.Context) error {
			calls++
			return nil
		})
	})

	assert.ErrorIs(t, err, ErrNestedTransaction)
	assert.Zero(t, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_DeadlockBecomesConflict(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM purchase_orders WHERE id = ?")).
		WithArgs("po-1").
		WillReturnError(&pq.Error{Code: "40P01", Message: "deadlock detected"})
	mock.ExpectRollback()

	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		var status string
		if err := db.GetContext(ctx, &status, "SELECT status FROM purchase_orders WHERE id = ?", "po-1"); err != nil {
			return fmt.Errorf("failed to lock purchase order: %w", err)
		}
		return nil
	})

	assert.Equal(t, errors.CodeConcurrentModification, errors.CodeOf(err))
	assert.True(t, errors.Is(err, errors.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_SerializationFailureOnCommit(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})

	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		return nil
	})

	assert.Equal(t, errors.CodeConcurrentModification, errors.CodeOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RollbackFailureIsCombined(t *testing.T) {
	db, mock := newMockDB(t)
	boom := stderrors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(stderrors.New("connection reset"))

	err := db.Transaction(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestForUpdate(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", (&DB{driver: "postgres"}).ForUpdate())
	assert.Equal(t, "", (&DB{driver: "sqlite3"}).ForUpdate())
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{
			name: "pq negative stock check",
			err:  &pq.Error{Code: "23514", Constraint: "chk_lots_quantity_nonneg"},
			code: errors.CodeInvariantViolation,
		},
		{
			name: "pq unique vessel name",
			err:  &pq.Error{Code: "23505", Constraint: "vessels_name_key"},
			code: errors.CodeConflict,
		},
		{
			name: "pq foreign key",
			err:  &pq.Error{Code: "23503"},
			code: errors.CodeBadRequest,
		},
		{
			name: "pq deadlock",
			err:  &pq.Error{Code: "40P01"},
			code: errors.CodeConcurrentModification,
		},
		{
			name: "pq serialization failure",
			err:  &pq.Error{Code: "40001"},
			code: errors.CodeConcurrentModification,
		},
		{
			name: "sqlite reserved range check",
			err: sqlite3.Error{
				Code:         sqlite3.ErrConstraint,
				ExtendedCode: sqlite3.ErrConstraintCheck,
			},
			code: errors.CodeBadRequest,
		},
		{
			name: "sqlite unique",
			err: sqlite3.Error{
				Code:         sqlite3.ErrConstraint,
				ExtendedCode: sqlite3.ErrConstraintUnique,
			},
			code: errors.CodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}

	assert.Nil(t, MapError(stderrors.New("plain")))
	assert.Nil(t, MapError(nil))
}

func TestNextNumber_CountsYearPrefix(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM orders WHERE invoice_number LIKE ?")).
		WithArgs("INV-2026-%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	number, err := db.NextNumber(context.Background(), "orders", "invoice_number", "INV",
		time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-012", number)
	require.NoError(t, mock.ExpectationsWereMet())
}
