package repository

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// LotBalance is the on-hand quantity of one lot
type LotBalance struct {
	ItemID         string          `db:"item_id"`
	QuantityOnHand decimal.Decimal `db:"quantity_on_hand"`
}

// DemandLine is one recipe ingredient of one batch, with the sizes needed to
// scale the recipe quantity to the batch.
type DemandLine struct {
	BatchID          string            `db:"batch_id"`
	BatchStatus      enums.BatchStatus `db:"batch_status"`
	PlannedDate      *time.Time        `db:"planned_date"`
	ItemID           string            `db:"item_id"`
	Quantity         decimal.Decimal   `db:"quantity"`
	BatchSizeLitres  decimal.Decimal   `db:"batch_size_litres"`
	RecipeSizeLitres decimal.Decimal   `db:"recipe_size_litres"`
}

// OpenOrderLine is the ordered and received quantities of one purchase order line
type OpenOrderLine struct {
	ItemID           string          `db:"item_id"`
	QuantityOrdered  decimal.Decimal `db:"quantity_ordered"`
	QuantityReceived decimal.Decimal `db:"quantity_received"`
}

// PositionRepository reads the raw figures behind stock positions.
// Callers sum the rows in decimal.
type PositionRepository struct {
	db *database.DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *database.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// LotBalances returns the lot quantities of itemID, or of every item when itemID is empty
func (r *PositionRepository) LotBalances(ctx context.Context, itemID string) ([]LotBalance, error) {
	query := `SELECT item_id, quantity_on_hand FROM inventory_lots WHERE quantity_on_hand <> 0`
	var args []any
	if itemID != "" {
		query += ` AND item_id = ?`
		args = append(args, itemID)
	}

	var rows []LotBalance
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// DemandLines returns ingredient demand of batches in the given statuses
func (r *PositionRepository) DemandLines(ctx context.Context, statuses []enums.BatchStatus, itemID string) ([]DemandLine, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}

	query := `
		SELECT b.id AS batch_id, b.status AS batch_status, b.planned_date, ri.item_id, ri.quantity,
			b.batch_size_litres, r.batch_size_litres AS recipe_size_litres
		FROM brew_batches b
		JOIN recipes r ON r.id = b.recipe_id
		JOIN recipe_ingredients ri ON ri.recipe_id = b.recipe_id
		WHERE b.status IN (?)
	`
	args := []any{names}
	if itemID != "" {
		query += ` AND ri.item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY b.id, ri.id`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	var rows []DemandLine
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// OpenOrderLines returns lines of purchase orders still awaiting goods
func (r *PositionRepository) OpenOrderLines(ctx context.Context, itemID string) ([]OpenOrderLine, error) {
	names := make([]string, len(enums.OpenPurchaseOrderStatuses))
	for i, s := range enums.OpenPurchaseOrderStatuses {
		names[i] = s.String()
	}

	query := `
		SELECT l.item_id, l.quantity_ordered, l.quantity_received
		FROM purchase_order_lines l
		JOIN purchase_orders po ON po.id = l.purchase_order_id
		WHERE po.status IN (?)
	`
	args := []any{names}
	if itemID != "" {
		query += ` AND l.item_id = ?`
		args = append(args, itemID)
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	var rows []OpenOrderLine
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
