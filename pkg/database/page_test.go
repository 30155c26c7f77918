package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage_Apply(t *testing.T) {
	base := `SELECT id FROM stock_movements WHERE lot_id = ?`

	query, args := Page{}.Apply(base, []any{"lot-1"})
	assert.Equal(t, base, query)
	assert.Equal(t, []any{"lot-1"}, args)

	query, args = Page{Page: 3, PerPage: 20}.Apply(base, []any{"lot-1"})
	assert.Equal(t, base+` LIMIT ? OFFSET ?`, query)
	assert.Equal(t, []any{"lot-1", 20, 40}, args)

	_, args = Page{PerPage: 5}.Apply(base, nil)
	assert.Equal(t, []any{5, 0}, args)
}
