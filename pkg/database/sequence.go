package database

import (
	"context"
	"fmt"
	"time"
)

// NextNumber returns the next document number of the form PREFIX-YYYY-NNN.
// NNN is one more than the number of values in table.column already carrying
// the same prefix and year. Call it inside the transaction that inserts the
// document; a number drawn twice by concurrent writers fails the column's
// unique constraint.
func (db *DB) NextNumber(ctx context.Context, table, column, prefix string, at time.Time) (string, error) {
	stem := fmt.Sprintf("%s-%d-", prefix, at.Year())

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s LIKE ?`, table, column)
	if err := db.GetContext(ctx, &count, query, stem+"%"); err != nil {
		return "", fmt.Errorf("count %s numbers: %w", table, err)
	}

	return fmt.Sprintf("%s%03d", stem, count+1), nil
}
