package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Fixtures inserts rows directly with SQL so tests in any package can build
// state without going through the services under test.
type Fixtures struct {
	t   *testing.T
	db  *database.DB
	seq int
}

// NewFixtures creates a fixture factory bound to db.
func NewFixtures(t *testing.T, db *database.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) nextSeq() int {
	f.seq++
	return f.seq
}

// Exec runs an arbitrary statement, failing the test on error.
func (f *Fixtures) Exec(query string, args ...any) {
	f.t.Helper()
	_, err := f.db.ExecContext(context.Background(), query, args...)
	require.NoError(f.t, err, query)
}

func now() time.Time {
	return time.Now().UTC()
}

// ItemFixture represents test inventory item data
type ItemFixture struct {
	ID           string
	Name         string
	Category     string
	Unit         string
	ReorderPoint *string
}

// WithItemName sets the item name
func WithItemName(name string) func(*ItemFixture) {
	return func(i *ItemFixture) { i.Name = name }
}

// WithReorderPoint sets the reorder threshold
func WithReorderPoint(qty string) func(*ItemFixture) {
	return func(i *ItemFixture) { i.ReorderPoint = &qty }
}

// Item inserts an inventory item measured in kg.
func (f *Fixtures) Item(opts ...func(*ItemFixture)) ItemFixture {
	f.t.Helper()
	item := ItemFixture{
		ID:       uuid.NewString(),
		Name:     fmt.Sprintf("Pale Malt %d", f.nextSeq()),
		Category: "grain",
		Unit:     "kg",
	}
	for _, opt := range opts {
		opt(&item)
	}
	f.Exec(`INSERT INTO inventory_items (id, name, category, unit, reorder_point, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Category, item.Unit, item.ReorderPoint, false, now(), now())
	return item
}

// Lot inserts a lot of qty units and its opening received movement, so the
// ledger invariant holds from the start.
func (f *Fixtures) Lot(itemID, qty string) string {
	f.t.Helper()
	id := uuid.NewString()
	f.Exec(`INSERT INTO inventory_lots (id, item_id, lot_number, quantity_on_hand, unit, unit_cost, received_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, itemID, fmt.Sprintf("FIX-LOT-%03d", f.nextSeq()), qty, "kg", "1.50", Today(), now(), now())
	if qty != "0" {
		f.Exec(`INSERT INTO stock_movements (id, lot_id, item_id, movement_type, quantity, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), id, itemID, "received", qty, "fixture", now())
	}
	return id
}

// IngredientFixture is one recipe line
type IngredientFixture struct {
	ItemID   string
	Quantity string
	Stage    string
}

// Ingredient builds a mash-stage ingredient line
func Ingredient(itemID, qty string) IngredientFixture {
	return IngredientFixture{ItemID: itemID, Quantity: qty, Stage: "mash"}
}

// Recipe inserts a recipe with the given reference batch size and ingredients.
func (f *Fixtures) Recipe(batchSizeLitres string, ingredients ...IngredientFixture) string {
	f.t.Helper()
	id := uuid.NewString()
	f.Exec(`INSERT INTO recipes (id, name, style, version, batch_size_litres, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("House Pale %d", f.nextSeq()), "Pale Ale", 1, batchSizeLitres, now(), now())
	for _, ing := range ingredients {
		f.Exec(`INSERT INTO recipe_ingredients (id, recipe_id, item_id, quantity, unit, usage_stage)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), id, ing.ItemID, ing.Quantity, "kg", ing.Stage)
	}
	return id
}

// Vessel inserts a 1000 litre fermenter in the given status.
func (f *Fixtures) Vessel(status string) string {
	f.t.Helper()
	id := uuid.NewString()
	f.Exec(`INSERT INTO vessels (id, name, vessel_type, capacity_litres, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("FV-%02d", f.nextSeq()), "fermenter", "1000", status, now(), now())
	return id
}

// OccupyVessel marks a vessel in_use by batchID.
func (f *Fixtures) OccupyVessel(vesselID, batchID string) {
	f.t.Helper()
	f.Exec(`UPDATE vessels SET status = 'in_use', current_batch_id = ? WHERE id = ?`, batchID, vesselID)
}

// BatchFixture represents test brew batch data
type BatchFixture struct {
	ID          string
	RecipeID    string
	Status      string
	SizeLitres  string
	VesselID    *string
	PlannedDate *time.Time
	ActualOG    *string
	ActualFG    *string
}

// WithBatchStatus sets the batch status
func WithBatchStatus(status string) func(*BatchFixture) {
	return func(b *BatchFixture) { b.Status = status }
}

// WithBatchSize sets the batch size in litres
func WithBatchSize(litres string) func(*BatchFixture) {
	return func(b *BatchFixture) { b.SizeLitres = litres }
}

// WithVessel assigns a vessel
func WithVessel(vesselID string) func(*BatchFixture) {
	return func(b *BatchFixture) { b.VesselID = &vesselID }
}

// WithPlannedDate sets the planned brew date
func WithPlannedDate(d time.Time) func(*BatchFixture) {
	return func(b *BatchFixture) { b.PlannedDate = &d }
}

// WithGravity sets actual OG and FG
func WithGravity(og, fg string) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.ActualOG = &og
		b.ActualFG = &fg
	}
}

// Batch inserts a brew batch for recipeID (planned, 100 litres by default).
func (f *Fixtures) Batch(recipeID string, opts ...func(*BatchFixture)) BatchFixture {
	f.t.Helper()
	b := BatchFixture{
		ID:         uuid.NewString(),
		RecipeID:   recipeID,
		Status:     "planned",
		SizeLitres: "100",
	}
	for _, opt := range opts {
		opt(&b)
	}
	f.Exec(`INSERT INTO brew_batches (id, batch_number, recipe_id, status, batch_size_litres, vessel_id,
			planned_date, actual_og, actual_fg, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, fmt.Sprintf("B-FIX-%03d", f.nextSeq()), b.RecipeID, b.Status, b.SizeLitres, b.VesselID,
		b.PlannedDate, b.ActualOG, b.ActualFG, 1, now(), now())
	return b
}

// PurchaseOrder inserts a purchase order in the given status.
func (f *Fixtures) PurchaseOrder(status string) string {
	f.t.Helper()
	id := uuid.NewString()
	f.Exec(`INSERT INTO purchase_orders (id, po_number, supplier_name, status, subtotal, tax_rate, tax, total, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("PO-FIX-%03d", f.nextSeq()), "Crisp Maltings", status, "0", "0", "0", "0", 1, now(), now())
	return id
}

// PurchaseOrderLine inserts a line at 2.00 per unit.
func (f *Fixtures) PurchaseOrderLine(poID, itemID, ordered, received string) string {
	f.t.Helper()
	id := uuid.NewString()
	f.Exec(`INSERT INTO purchase_order_lines (id, purchase_order_id, item_id, quantity_ordered, quantity_received, unit, unit_cost, line_total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, poID, itemID, ordered, received, "kg", "2.00", "0", now())
	return id
}

// FinishedGoods inserts a finished goods row.
func (f *Fixtures) FinishedGoods(recipeID, format string, onHand, reserved int) string {
	f.t.Helper()
	id := uuid.NewString()
	f.Exec(`INSERT INTO finished_goods_stock (id, recipe_id, format, quantity_on_hand, quantity_reserved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, recipeID, format, onHand, reserved, now(), now())
	return id
}

// OrderFixture represents test sales order data
type OrderFixture struct {
	ID           string
	Status       string
	DeliveryDate *time.Time
}

// WithDeliveryDate sets the delivery date
func WithDeliveryDate(d time.Time) func(*OrderFixture) {
	return func(o *OrderFixture) { o.DeliveryDate = &d }
}

// Order inserts a sales order in the given status.
func (f *Fixtures) Order(status string, opts ...func(*OrderFixture)) OrderFixture {
	f.t.Helper()
	o := OrderFixture{ID: uuid.NewString(), Status: status}
	for _, opt := range opts {
		opt(&o)
	}
	f.Exec(`INSERT INTO orders (id, order_number, customer_name, status, order_date, delivery_date,
			subtotal, tax_rate, tax, total, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, fmt.Sprintf("SO-FIX-%03d", f.nextSeq()), "The Crown", o.Status, Today(), o.DeliveryDate,
		"0", "0", "0", "0", 1, now(), now())
	return o
}

// OrderLineFixture represents test order line data
type OrderLineFixture struct {
	RecipeID        *string
	Format          *string
	FinishedGoodsID *string
	UnitPrice       string
}

// ForProduct sets the recipe and format of the line
func ForProduct(recipeID, format string) func(*OrderLineFixture) {
	return func(l *OrderLineFixture) {
		l.RecipeID = &recipeID
		l.Format = &format
	}
}

// FromStock links the line to a finished goods row
func FromStock(finishedGoodsID string) func(*OrderLineFixture) {
	return func(l *OrderLineFixture) { l.FinishedGoodsID = &finishedGoodsID }
}

// OrderLine inserts a line of qty units at 100.00 each.
func (f *Fixtures) OrderLine(orderID string, qty int, opts ...func(*OrderLineFixture)) string {
	f.t.Helper()
	l := OrderLineFixture{UnitPrice: "100.00"}
	for _, opt := range opts {
		opt(&l)
	}
	id := uuid.NewString()
	f.Exec(`INSERT INTO order_lines (id, order_id, recipe_id, format, quantity, unit_price, line_total, finished_goods_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, orderID, l.RecipeID, l.Format, qty, l.UnitPrice, "0", l.FinishedGoodsID, now())
	return id
}
