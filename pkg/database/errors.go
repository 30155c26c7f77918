package database

import (
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}

// MapError converts a driver constraint error to an AppError with a meaningful message.
// Returns nil if the error is not a recognised constraint failure.
func MapError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return MapSQLiteError(err)
}

// MapPQError converts a PostgreSQL error to an AppError.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr.Constraint)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatUniqueMessage(pqErr.Constraint + " " + pqErr.Detail))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Deadlock detected (40P01) and serialization failure (40001)
	case "40P01", "40001":
		return errors.TransactionAborted()

	default:
		return nil
	}
}

// mapAborted replaces a transaction the server aborted over a lock or
// serialization conflict with a retryable conflict. Other errors pass through.
func mapAborted(err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	if mapped := MapPQError(err); mapped != nil && mapped.Code == errors.CodeConcurrentModification {
		return mapped
	}
	return err
}

// MapSQLiteError converts a SQLite constraint error to an AppError.
// SQLite reports the constraint name in the message, e.g.
// "CHECK constraint failed: chk_lots_quantity_nonneg".
func MapSQLiteError(err error) *errors.AppError {
	var sqliteErr sqlite3.Error
	if !stderrors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return nil
	}

	msg := sqliteErr.Error()
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintCheck:
		name := msg
		if i := strings.LastIndex(msg, ": "); i >= 0 {
			name = msg[i+2:]
		}
		return mapCheckConstraint(name)
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return errors.Conflict(formatUniqueMessage(msg))
	case sqlite3.ErrConstraintForeignKey:
		return errors.BadRequest("referenced record does not exist")
	case sqlite3.ErrConstraintNotNull:
		col := "required field"
		if i := strings.LastIndex(msg, "."); i >= 0 {
			col = msg[i+1:]
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})
	default:
		return errors.BadRequest("data validation failed")
	}
}

// mapCheckConstraint maps CHECK constraint names to user-facing errors.
// Stock-level constraints are the storage backstop for the ledger invariants.
func mapCheckConstraint(constraint string) *errors.AppError {
	switch {
	case strings.Contains(constraint, "quantity_nonneg"),
		strings.Contains(constraint, "on_hand_nonneg"):
		return errors.InvariantViolation("stock level cannot go negative")

	case strings.Contains(constraint, "reserved_range"):
		return errors.InvariantViolation("reserved quantity must stay between zero and on hand")

	case strings.Contains(constraint, "received_range"):
		return errors.OverReceipt("received quantity cannot exceed ordered quantity")

	case strings.Contains(constraint, "positive"):
		return errors.Validation(map[string]string{
			"quantity": "must be greater than zero",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatUniqueMessage(detail string) string {
	switch {
	case strings.Contains(detail, "vessels"):
		return "a vessel with this name already exists"
	case strings.Contains(detail, "invoice_number"):
		return "this invoice number is already taken"
	case strings.Contains(detail, "number"):
		return "a record with this number already exists"
	default:
		return "a record with these values already exists"
	}
}
