package repository

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryLot is one received quantity of an item. QuantityOnHand always
// equals the sum of the lot's stock movements.
type InventoryLot struct {
	ID              string          `db:"id" json:"id"`
	ItemID          string          `db:"item_id" json:"item_id"`
	LotNumber       string          `db:"lot_number" json:"lot_number"`
	QuantityOnHand  decimal.Decimal `db:"quantity_on_hand" json:"quantity_on_hand"`
	Unit            string          `db:"unit" json:"unit"`
	UnitCost        decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	ReceivedDate    time.Time       `db:"received_date" json:"received_date"`
	ExpiryDate      *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	Location        *string         `db:"location" json:"location,omitempty"`
	PurchaseOrderID *string         `db:"purchase_order_id" json:"purchase_order_id,omitempty"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// LotRepository handles inventory lot persistence
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

const lotColumns = `id, item_id, lot_number, quantity_on_hand, unit, unit_cost, received_date, expiry_date,
	location, purchase_order_id, notes, created_at, updated_at`

// Create inserts a lot. Stock enters a lot only through a movement, so the
// quantity written here is expected to be zero.
func (r *LotRepository) Create(ctx context.Context, lot *InventoryLot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	lot.CreatedAt = now
	lot.UpdatedAt = now

	query := `
		INSERT INTO inventory_lots (` + lotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		lot.ID, lot.ItemID, lot.LotNumber, lot.QuantityOnHand, lot.Unit, lot.UnitCost, lot.ReceivedDate,
		lot.ExpiryDate, lot.Location, lot.PurchaseOrderID, lot.Notes, lot.CreatedAt, lot.UpdatedAt,
	)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetByID gets a lot by ID
func (r *LotRepository) GetByID(ctx context.Context, id string) (*InventoryLot, error) {
	return r.get(ctx, `SELECT `+lotColumns+` FROM inventory_lots WHERE id = ?`, id)
}

// GetForUpdate reads a lot and locks it until the surrounding transaction ends.
func (r *LotRepository) GetForUpdate(ctx context.Context, id string) (*InventoryLot, error) {
	return r.get(ctx, `SELECT `+lotColumns+` FROM inventory_lots WHERE id = ?`+r.db.ForUpdate(), id)
}

func (r *LotRepository) get(ctx context.Context, query, id string) (*InventoryLot, error) {
	var lot InventoryLot
	if err := r.db.GetContext(ctx, &lot, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("inventory lot")
		}
		return nil, err
	}
	return &lot, nil
}

// ListByItem lists the lots of an item, oldest first
func (r *LotRepository) ListByItem(ctx context.Context, itemID string, includeEmpty bool) ([]*InventoryLot, error) {
	query := `SELECT ` + lotColumns + ` FROM inventory_lots WHERE item_id = ?`
	if !includeEmpty {
		query += ` AND quantity_on_hand > 0`
	}
	query += ` ORDER BY received_date, created_at, id`

	var lots []*InventoryLot
	if err := r.db.SelectContext(ctx, &lots, query, itemID); err != nil {
		return nil, err
	}
	return lots, nil
}

// ListByPurchaseOrder lists lots created by receiving against a purchase order
func (r *LotRepository) ListByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]*InventoryLot, error) {
	var lots []*InventoryLot
	query := `SELECT ` + lotColumns + ` FROM inventory_lots WHERE purchase_order_id = ? ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &lots, query, purchaseOrderID); err != nil {
		return nil, err
	}
	return lots, nil
}

// SetQuantity stores the lot's new on-hand quantity. Only the ledger calls
// this, in the same transaction as the movement that explains the change.
func (r *LotRepository) SetQuantity(ctx context.Context, id string, quantity decimal.Decimal) error {
	n, err := r.db.ExecAffecting(ctx,
		`UPDATE inventory_lots SET quantity_on_hand = ?, updated_at = ? WHERE id = ?`,
		quantity, time.Now().UTC(), id,
	)
	if err != nil {
		if appErr := database.MapError(err); appErr != nil {
			return appErr
		}
		return err
	}
	if n == 0 {
		return errors.NotFound("inventory lot")
	}
	return nil
}
