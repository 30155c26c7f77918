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

// Order is a customer sales order
type Order struct {
	ID            string            `db:"id" json:"id"`
	OrderNumber   string            `db:"order_number" json:"order_number"`
	CustomerName  string            `db:"customer_name" json:"customer_name"`
	Status        enums.OrderStatus `db:"status" json:"status"`
	OrderDate     time.Time         `db:"order_date" json:"order_date"`
	DeliveryDate  *time.Time        `db:"delivery_date" json:"delivery_date,omitempty"`
	Subtotal      decimal.Decimal   `db:"subtotal" json:"subtotal"`
	TaxRate       decimal.Decimal   `db:"tax_rate" json:"tax_rate"`
	Tax           decimal.Decimal   `db:"tax" json:"tax"`
	Total         decimal.Decimal   `db:"total" json:"total"`
	InvoiceNumber *string           `db:"invoice_number" json:"invoice_number,omitempty"`
	InvoicedAt    *time.Time        `db:"invoiced_at" json:"invoiced_at,omitempty"`
	DispatchedAt  *time.Time        `db:"dispatched_at" json:"dispatched_at,omitempty"`
	DeliveredAt   *time.Time        `db:"delivered_at" json:"delivered_at,omitempty"`
	PaidAt        *time.Time        `db:"paid_at" json:"paid_at,omitempty"`
	Notes         *string           `db:"notes" json:"notes,omitempty"`
	Version       int               `db:"version" json:"version"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`

	Lines []*OrderLine `db:"-" json:"lines,omitempty"`
}

// OrderLine is a quantity of packaged product on an order
type OrderLine struct {
	ID              string          `db:"id" json:"id"`
	OrderID         string          `db:"order_id" json:"order_id"`
	RecipeID        *string         `db:"recipe_id" json:"recipe_id,omitempty"`
	Format          *string         `db:"format" json:"format,omitempty"`
	Description     *string         `db:"description" json:"description,omitempty"`
	Quantity        int             `db:"quantity" json:"quantity"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal       decimal.Decimal `db:"line_total" json:"line_total"`
	FinishedGoodsID *string         `db:"finished_goods_id" json:"finished_goods_id,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// OrderRepository handles sales order persistence
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, order_number, customer_name, status, order_date, delivery_date, subtotal, tax_rate,
	tax, total, invoice_number, invoiced_at, dispatched_at, delivered_at, paid_at, notes, version,
	created_at, updated_at`

const orderLineColumns = `id, order_id, recipe_id, format, description, quantity, unit_price, line_total,
	finished_goods_id, created_at`

// Create creates a new order
func (r *OrderRepository) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	o.Version = 1
	o.CreatedAt = now
	o.UpdatedAt = now

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		o.ID, o.OrderNumber, o.CustomerName, o.Status, o.OrderDate, o.DeliveryDate, o.Subtotal, o.TaxRate,
		o.Tax, o.Total, o.InvoiceNumber, o.InvoicedAt, o.DispatchedAt, o.DeliveredAt, o.PaidAt, o.Notes,
		o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetByID gets an order without its lines
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

// GetForUpdate reads an order and locks it until the surrounding transaction ends
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`+r.db.ForUpdate(), id)
}

func (r *OrderRepository) get(ctx context.Context, query, id string) (*Order, error) {
	var o Order
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("order")
		}
		return nil, err
	}
	return &o, nil
}

// List lists one page of orders, newest first, and how many have status.
// An empty status matches every order.
func (r *OrderRepository) List(ctx context.Context, status enums.OrderStatus, page database.Page) ([]*Order, int64, error) {
	var where string
	var args []any
	if status != "" {
		where = ` WHERE status = ?`
		args = append(args, status)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders`+where, args...); err != nil {
		return nil, 0, err
	}

	query, args := page.Apply(`SELECT `+orderColumns+` FROM orders`+where+` ORDER BY created_at DESC, order_number DESC`, args)
	var orders []*Order
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Update writes the header of o if its version is unchanged, then bumps o.Version
func (r *OrderRepository) Update(ctx context.Context, o *Order) error {
	o.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE orders SET
			customer_name = ?, status = ?, delivery_date = ?, subtotal = ?, tax_rate = ?, tax = ?, total = ?,
			invoice_number = ?, invoiced_at = ?, dispatched_at = ?, delivered_at = ?, paid_at = ?, notes = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	n, err := r.db.ExecAffecting(ctx, query,
		o.CustomerName, o.Status, o.DeliveryDate, o.Subtotal, o.TaxRate, o.Tax, o.Total,
		o.InvoiceNumber, o.InvoicedAt, o.DispatchedAt, o.DeliveredAt, o.PaidAt, o.Notes,
		o.UpdatedAt, o.ID, o.Version,
	)
	if err != nil {
		if appErr := database.MapError(err); appErr != nil {
			return appErr
		}
		return err
	}
	if n == 0 {
		return errors.ConcurrentModification("order", o.ID)
	}
	o.Version++
	return nil
}

// CreateLine adds a line to an order
func (r *OrderRepository) CreateLine(ctx context.Context, line *OrderLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	line.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO order_lines (` + orderLineColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		line.ID, line.OrderID, line.RecipeID, line.Format, line.Description, line.Quantity,
		line.UnitPrice, line.LineTotal, line.FinishedGoodsID, line.CreatedAt,
	)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetLine gets an order line
func (r *OrderRepository) GetLine(ctx context.Context, id string) (*OrderLine, error) {
	var line OrderLine
	query := `SELECT ` + orderLineColumns + ` FROM order_lines WHERE id = ?`
	if err := r.db.GetContext(ctx, &line, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("order line")
		}
		return nil, err
	}
	return &line, nil
}

// ListLines lists the lines of an order in entry order
func (r *OrderRepository) ListLines(ctx context.Context, orderID string) ([]*OrderLine, error) {
	var lines []*OrderLine
	query := `SELECT ` + orderLineColumns + ` FROM order_lines WHERE order_id = ? ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &lines, query, orderID); err != nil {
		return nil, err
	}
	return lines, nil
}

// UpdateLine rewrites the product, quantity and price of a line
func (r *OrderRepository) UpdateLine(ctx context.Context, line *OrderLine) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE order_lines SET recipe_id = ?, format = ?, description = ?, quantity = ?, unit_price = ?,
			line_total = ?, finished_goods_id = ?
		WHERE id = ?
	`, line.RecipeID, line.Format, line.Description, line.Quantity, line.UnitPrice, line.LineTotal,
		line.FinishedGoodsID, line.ID)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// DeleteLine removes a line
func (r *OrderRepository) DeleteLine(ctx context.Context, lineID string) error {
	n, err := r.db.ExecAffecting(ctx, `DELETE FROM order_lines WHERE id = ?`, lineID)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("order line")
	}
	return nil
}
