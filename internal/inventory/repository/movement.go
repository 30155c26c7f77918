package repository

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reference types recorded on movements
const (
	ReferencePurchaseOrder = "purchase_order"
	ReferenceBatch         = "brew_batch"
)

// StockMovement is one signed entry in a lot's ledger
type StockMovement struct {
	ID            string             `db:"id" json:"id"`
	LotID         string             `db:"lot_id" json:"lot_id"`
	ItemID        string             `db:"item_id" json:"item_id"`
	MovementType  enums.MovementType `db:"movement_type" json:"movement_type"`
	Quantity      decimal.Decimal    `db:"quantity" json:"quantity"`
	ReferenceType *string            `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   *string            `db:"reference_id" json:"reference_id,omitempty"`
	Reason        *string            `db:"reason" json:"reason,omitempty"`
	PerformedBy   *string            `db:"performed_by" json:"performed_by,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
}

// MovementFilter narrows movement listings; empty fields match everything
type MovementFilter struct {
	ItemID        string
	LotID         string
	ReferenceType string
	ReferenceID   string
	database.Page
}

// MovementRepository appends to and reads the stock ledger.
// It has no update or delete.
type MovementRepository struct {
	db *database.DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

const movementColumns = `id, lot_id, item_id, movement_type, quantity, reference_type, reference_id,
	reason, performed_by, created_at`

// Create appends a movement
func (r *MovementRepository) Create(ctx context.Context, m *StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.LotID, m.ItemID, m.MovementType, m.Quantity, m.ReferenceType, m.ReferenceID,
		m.Reason, m.PerformedBy, m.CreatedAt,
	)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// List returns one page of the movements matching filter, oldest first,
// and how many match in total.
func (r *MovementRepository) List(ctx context.Context, filter MovementFilter) ([]*StockMovement, int64, error) {
	where := ` WHERE 1 = 1`
	var args []any

	if filter.ItemID != "" {
		where += ` AND item_id = ?`
		args = append(args, filter.ItemID)
	}
	if filter.LotID != "" {
		where += ` AND lot_id = ?`
		args = append(args, filter.LotID)
	}
	if filter.ReferenceType != "" {
		where += ` AND reference_type = ?`
		args = append(args, filter.ReferenceType)
	}
	if filter.ReferenceID != "" {
		where += ` AND reference_id = ?`
		args = append(args, filter.ReferenceID)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM stock_movements`+where, args...); err != nil {
		return nil, 0, err
	}

	query, args := filter.Page.Apply(`SELECT `+movementColumns+` FROM stock_movements`+where+` ORDER BY created_at, id`, args)
	var movements []*StockMovement
	if err := r.db.SelectContext(ctx, &movements, query, args...); err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// SumByLot totals the movements of a lot
func (r *MovementRepository) SumByLot(ctx context.Context, lotID string) (decimal.Decimal, error) {
	var quantities []decimal.Decimal
	if err := r.db.SelectContext(ctx, &quantities, `SELECT quantity FROM stock_movements WHERE lot_id = ?`, lotID); err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, quantities...), nil
}
