package repository

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/google/uuid"
)

// FinishedGoods is packaged product on hand, counted in whole units
type FinishedGoods struct {
	ID               string    `db:"id" json:"id"`
	RecipeID         string    `db:"recipe_id" json:"recipe_id"`
	BatchID          *string   `db:"batch_id" json:"batch_id,omitempty"`
	Format           string    `db:"format" json:"format"`
	QuantityOnHand   int       `db:"quantity_on_hand" json:"quantity_on_hand"`
	QuantityReserved int       `db:"quantity_reserved" json:"quantity_reserved"`
	Location         *string   `db:"location" json:"location,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Available is the stock not yet promised to an order
func (fg *FinishedGoods) Available() int {
	return fg.QuantityOnHand - fg.QuantityReserved
}

// FinishedGoodsFilter narrows a finished goods listing
type FinishedGoodsFilter struct {
	RecipeID string
	Format   string
}

// FinishedGoodsRepository handles finished goods persistence
type FinishedGoodsRepository struct {
	db *database.DB
}

// NewFinishedGoodsRepository creates a new finished goods repository
func NewFinishedGoodsRepository(db *database.DB) *FinishedGoodsRepository {
	return &FinishedGoodsRepository{db: db}
}

const finishedGoodsColumns = `id, recipe_id, batch_id, format, quantity_on_hand, quantity_reserved, location,
	created_at, updated_at`

// Create creates a finished goods row
func (r *FinishedGoodsRepository) Create(ctx context.Context, fg *FinishedGoods) error {
	if fg.ID == "" {
		fg.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	fg.CreatedAt = now
	fg.UpdatedAt = now

	query := `
		INSERT INTO finished_goods_stock (` + finishedGoodsColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		fg.ID, fg.RecipeID, fg.BatchID, fg.Format, fg.QuantityOnHand, fg.QuantityReserved, fg.Location,
		fg.CreatedAt, fg.UpdatedAt,
	)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetByID gets a finished goods row
func (r *FinishedGoodsRepository) GetByID(ctx context.Context, id string) (*FinishedGoods, error) {
	return r.get(ctx, `SELECT `+finishedGoodsColumns+` FROM finished_goods_stock WHERE id = ?`, id)
}

// GetForUpdate reads a finished goods row and locks it until the surrounding transaction ends
func (r *FinishedGoodsRepository) GetForUpdate(ctx context.Context, id string) (*FinishedGoods, error) {
	return r.get(ctx, `SELECT `+finishedGoodsColumns+` FROM finished_goods_stock WHERE id = ?`+r.db.ForUpdate(), id)
}

func (r *FinishedGoodsRepository) get(ctx context.Context, query, id string) (*FinishedGoods, error) {
	var fg FinishedGoods
	if err := r.db.GetContext(ctx, &fg, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("finished goods")
		}
		return nil, err
	}
	return &fg, nil
}

// List lists finished goods by recipe and format
func (r *FinishedGoodsRepository) List(ctx context.Context, filter FinishedGoodsFilter) ([]*FinishedGoods, error) {
	query := `SELECT ` + finishedGoodsColumns + ` FROM finished_goods_stock WHERE 1=1`
	var args []any
	if filter.RecipeID != "" {
		query += ` AND recipe_id = ?`
		args = append(args, filter.RecipeID)
	}
	if filter.Format != "" {
		query += ` AND format = ?`
		args = append(args, filter.Format)
	}
	query += ` ORDER BY recipe_id, format, created_at`

	var rows []*FinishedGoods
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// SetQuantities stores the on hand and reserved counts of fg.
// The table's checks refuse negative stock and reservations above on hand.
func (r *FinishedGoodsRepository) SetQuantities(ctx context.Context, fg *FinishedGoods) error {
	fg.UpdatedAt = time.Now().UTC()
	n, err := r.db.ExecAffecting(ctx, `
		UPDATE finished_goods_stock SET quantity_on_hand = ?, quantity_reserved = ?, updated_at = ?
		WHERE id = ?
	`, fg.QuantityOnHand, fg.QuantityReserved, fg.UpdatedAt, fg.ID)
	if err != nil {
		if appErr := database.MapError(err); appErr != nil {
			return appErr
		}
		return err
	}
	if n == 0 {
		return errors.NotFound("finished goods")
	}
	return nil
}
