package repository

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrder is an order for materials placed with a supplier
type PurchaseOrder struct {
	ID           string                    `db:"id" json:"id"`
	PONumber     string                    `db:"po_number" json:"po_number"`
	SupplierName string                    `db:"supplier_name" json:"supplier_name"`
	Status       enums.PurchaseOrderStatus `db:"status" json:"status"`
	OrderDate    *time.Time                `db:"order_date" json:"order_date,omitempty"`
	ExpectedDate *time.Time                `db:"expected_date" json:"expected_date,omitempty"`
	Subtotal     decimal.Decimal           `db:"subtotal" json:"subtotal"`
	TaxRate      decimal.Decimal           `db:"tax_rate" json:"tax_rate"`
	Tax          decimal.Decimal           `db:"tax" json:"tax"`
	Total        decimal.Decimal           `db:"total" json:"total"`
	Notes        *string                   `db:"notes" json:"notes,omitempty"`
	Version      int                       `db:"version" json:"version"`
	CreatedAt    time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time                 `db:"updated_at" json:"updated_at"`

	Lines []*PurchaseOrderLine `db:"-" json:"lines,omitempty"`
}

// PurchaseOrderLine is the quantity of one item on a purchase order
type PurchaseOrderLine struct {
	ID               string          `db:"id" json:"id"`
	PurchaseOrderID  string          `db:"purchase_order_id" json:"purchase_order_id"`
	ItemID           string          `db:"item_id" json:"item_id"`
	QuantityOrdered  decimal.Decimal `db:"quantity_ordered" json:"quantity_ordered"`
	QuantityReceived decimal.Decimal `db:"quantity_received" json:"quantity_received"`
	Unit             string          `db:"unit" json:"unit"`
	UnitCost         decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	LineTotal        decimal.Decimal `db:"line_total" json:"line_total"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// Remaining is the quantity still expected on the line
func (l *PurchaseOrderLine) Remaining() decimal.Decimal {
	return l.QuantityOrdered.Sub(l.QuantityReceived)
}

// PurchaseOrderRepository handles purchase order persistence
type PurchaseOrderRepository struct {
	db *database.DB
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *database.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

const poColumns = `id, po_number, supplier_name, status, order_date, expected_date, subtotal, tax_rate, tax,
	total, notes, version, created_at, updated_at`

const lineColumns = `id, purchase_order_id, item_id, quantity_ordered, quantity_received, unit, unit_cost,
	line_total, created_at`

// Create creates a new purchase order
func (r *PurchaseOrderRepository) Create(ctx context.Context, po *PurchaseOrder) error {
	if po.ID == "" {
		po.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	po.Version = 1
	po.CreatedAt = now
	po.UpdatedAt = now

	query := `
		INSERT INTO purchase_orders (` + poColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		po.ID, po.PONumber, po.SupplierName, po.Status, po.OrderDate, po.ExpectedDate, po.Subtotal,
		po.TaxRate, po.Tax, po.Total, po.Notes, po.Version, po.CreatedAt, po.UpdatedAt,
	)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetByID gets a purchase order without its lines
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id string) (*PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = ?`, id)
}

// GetForUpdate reads a purchase order and locks it until the surrounding transaction ends
func (r *PurchaseOrderRepository) GetForUpdate(ctx context.Context, id string) (*PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = ?`+r.db.ForUpdate(), id)
}

func (r *PurchaseOrderRepository) get(ctx context.Context, query, id string) (*PurchaseOrder, error) {
	var po PurchaseOrder
	if err := r.db.GetContext(ctx, &po, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("purchase order")
		}
		return nil, err
	}
	return &po, nil
}

// List lists purchase orders, newest first
func (r *PurchaseOrderRepository) List(ctx context.Context, status enums.PurchaseOrderStatus, page database.Page) ([]*PurchaseOrder, int64, error) {
	var where string
	var args []any
	if status != "" {
		where = ` WHERE status = ?`
		args = append(args, status)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM purchase_orders`+where, args...); err != nil {
		return nil, 0, err
	}

	query, args := page.Apply(`SELECT `+poColumns+` FROM purchase_orders`+where+` ORDER BY created_at DESC, po_number DESC`, args)
	var orders []*PurchaseOrder
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Update writes the header of po if its version is unchanged, then bumps po.Version
func (r *PurchaseOrderRepository) Update(ctx context.Context, po *PurchaseOrder) error {
	po.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE purchase_orders SET
			supplier_name = ?, status = ?, order_date = ?, expected_date = ?, subtotal = ?, tax_rate = ?,
			tax = ?, total = ?, notes = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	n, err := r.db.ExecAffecting(ctx, query,
		po.SupplierName, po.Status, po.OrderDate, po.ExpectedDate, po.Subtotal, po.TaxRate,
		po.Tax, po.Total, po.Notes, po.UpdatedAt, po.ID, po.Version,
	)
	if err != nil {
		if appErr := database.MapError(err); appErr != nil {
			return appErr
		}
		return err
	}
	if n == 0 {
		return errors.ConcurrentModification("purchase order", po.ID)
	}
	po.Version++
	return nil
}

// CreateLine adds a line to a purchase order
func (r *PurchaseOrderRepository) CreateLine(ctx context.Context, line *PurchaseOrderLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	line.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO purchase_order_lines (` + lineColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		line.ID, line.PurchaseOrderID, line.ItemID, line.QuantityOrdered, line.QuantityReceived,
		line.Unit, line.UnitCost, line.LineTotal, line.CreatedAt,
	)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetLine gets a purchase order line
func (r *PurchaseOrderRepository) GetLine(ctx context.Context, id string) (*PurchaseOrderLine, error) {
	return r.getLine(ctx, `SELECT `+lineColumns+` FROM purchase_order_lines WHERE id = ?`, id)
}

// GetLineForUpdate reads a line and locks it until the surrounding transaction ends
func (r *PurchaseOrderRepository) GetLineForUpdate(ctx context.Context, id string) (*PurchaseOrderLine, error) {
	return r.getLine(ctx, `SELECT `+lineColumns+` FROM purchase_order_lines WHERE id = ?`+r.db.ForUpdate(), id)
}

func (r *PurchaseOrderRepository) getLine(ctx context.Context, query, id string) (*PurchaseOrderLine, error) {
	var line PurchaseOrderLine
	if err := r.db.GetContext(ctx, &line, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("purchase order line")
		}
		return nil, err
	}
	return &line, nil
}

// ListLines lists the lines of a purchase order in entry order
func (r *PurchaseOrderRepository) ListLines(ctx context.Context, poID string) ([]*PurchaseOrderLine, error) {
	var lines []*PurchaseOrderLine
	query := `SELECT ` + lineColumns + ` FROM purchase_order_lines WHERE purchase_order_id = ? ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &lines, query, poID); err != nil {
		return nil, err
	}
	return lines, nil
}

// UpdateLine rewrites the ordered quantity and pricing of a line
func (r *PurchaseOrderRepository) UpdateLine(ctx context.Context, line *PurchaseOrderLine) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE purchase_order_lines SET item_id = ?, quantity_ordered = ?, unit = ?, unit_cost = ?, line_total = ?
		WHERE id = ?
	`, line.ItemID, line.QuantityOrdered, line.Unit, line.UnitCost, line.LineTotal, line.ID)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// SetReceived stores the running received quantity of a line
func (r *PurchaseOrderRepository) SetReceived(ctx context.Context, lineID string, received decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE purchase_order_lines SET quantity_received = ? WHERE id = ?`, received, lineID)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// DeleteLine removes a line
func (r *PurchaseOrderRepository) DeleteLine(ctx context.Context, lineID string) error {
	n, err := r.db.ExecAffecting(ctx, `DELETE FROM purchase_order_lines WHERE id = ?`, lineID)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("purchase order line")
	}
	return nil
}
