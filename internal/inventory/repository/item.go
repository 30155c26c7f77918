package repository

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item categories accepted by inventory_items.category
var ItemCategories = []string{"grain", "hop", "yeast", "adjunct", "chemical", "packaging", "other"}

// InventoryItem represents a raw material or consumable tracked in stock
type InventoryItem struct {
	ID              string              `db:"id" json:"id"`
	Name            string              `db:"name" json:"name"`
	Category        string              `db:"category" json:"category"`
	Unit            string              `db:"unit" json:"unit"`
	ReorderPoint    decimal.NullDecimal `db:"reorder_point" json:"reorder_point"`
	ReorderQuantity decimal.NullDecimal `db:"reorder_quantity" json:"reorder_quantity"`
	IsArchived      bool                `db:"is_archived" json:"is_archived"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// ItemFilter narrows item listings
type ItemFilter struct {
	Category        string
	IncludeArchived bool
}

// ItemRepository handles inventory item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, name, category, unit, reorder_point, reorder_quantity, is_archived, created_at, updated_at`

// Create creates a new inventory item
func (r *ItemRepository) Create(ctx context.Context, item *InventoryItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	query := `
		INSERT INTO inventory_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Category, item.Unit, item.ReorderPoint, item.ReorderQuantity,
		item.IsArchived, item.CreatedAt, item.UpdatedAt,
	)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetByID gets an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*InventoryItem, error) {
	var item InventoryItem
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = ?`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("inventory item")
		}
		return nil, err
	}
	return &item, nil
}

// List lists items ordered by name
func (r *ItemRepository) List(ctx context.Context, filter ItemFilter) ([]*InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE 1 = 1`
	var args []any

	if !filter.IncludeArchived {
		query += ` AND is_archived = ?`
		args = append(args, false)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY name, id`

	var items []*InventoryItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// Update updates the descriptive fields and reorder thresholds of an item
func (r *ItemRepository) Update(ctx context.Context, item *InventoryItem) error {
	item.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE inventory_items SET
			name = ?, category = ?, unit = ?, reorder_point = ?, reorder_quantity = ?, updated_at = ?
		WHERE id = ?
	`
	n, err := r.db.ExecAffecting(ctx, query,
		item.Name, item.Category, item.Unit, item.ReorderPoint, item.ReorderQuantity, item.UpdatedAt, item.ID,
	)
	if err != nil {
		if appErr := database.MapError(err); appErr != nil {
			return appErr
		}
		return err
	}
	if n == 0 {
		return errors.NotFound("inventory item")
	}
	return nil
}

// Archive hides an item from listings. Items are never deleted because
// lots and movements keep referencing them.
func (r *ItemRepository) Archive(ctx context.Context, id string) error {
	n, err := r.db.ExecAffecting(ctx,
		`UPDATE inventory_items SET is_archived = ?, updated_at = ? WHERE id = ?`,
		true, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("inventory item")
	}
	return nil
}
