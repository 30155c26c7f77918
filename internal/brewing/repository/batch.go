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

// BrewBatch is one production run of a recipe
type BrewBatch struct {
	ID                 string              `db:"id" json:"id"`
	BatchNumber        string              `db:"batch_number" json:"batch_number"`
	RecipeID           string              `db:"recipe_id" json:"recipe_id"`
	Status             enums.BatchStatus   `db:"status" json:"status"`
	BatchSizeLitres    decimal.Decimal     `db:"batch_size_litres" json:"batch_size_litres"`
	VesselID           *string             `db:"vessel_id" json:"vessel_id,omitempty"`
	PlannedDate        *time.Time          `db:"planned_date" json:"planned_date,omitempty"`
	BrewDate           *time.Time          `db:"brew_date" json:"brew_date,omitempty"`
	ActualOG           decimal.NullDecimal `db:"actual_og" json:"actual_og"`
	ActualFG           decimal.NullDecimal `db:"actual_fg" json:"actual_fg"`
	ActualABV          decimal.NullDecimal `db:"actual_abv" json:"actual_abv"`
	ActualIBU          decimal.NullDecimal `db:"actual_ibu" json:"actual_ibu"`
	ActualVolumeLitres decimal.NullDecimal `db:"actual_volume_litres" json:"actual_volume_litres"`
	CompletedAt        *time.Time          `db:"completed_at" json:"completed_at,omitempty"`
	Notes              *string             `db:"notes" json:"notes,omitempty"`
	Version            int                 `db:"version" json:"version"`
	CreatedAt          time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updated_at"`
}

// BatchFilter narrows batch listings
type BatchFilter struct {
	Status   enums.BatchStatus
	RecipeID string
	database.Page
}

// BatchRepository handles brew batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

const batchColumns = `id, batch_number, recipe_id, status, batch_size_litres, vessel_id, planned_date, brew_date,
	actual_og, actual_fg, actual_abv, actual_ibu, actual_volume_litres, completed_at, notes, version,
	created_at, updated_at`

// Create creates a new batch
func (r *BatchRepository) Create(ctx context.Context, b *BrewBatch) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.Version = 1
	b.CreatedAt = now
	b.UpdatedAt = now

	query := `
		INSERT INTO brew_batches (` + batchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.BatchNumber, b.RecipeID, b.Status, b.BatchSizeLitres, b.VesselID, b.PlannedDate, b.BrewDate,
		b.ActualOG, b.ActualFG, b.ActualABV, b.ActualIBU, b.ActualVolumeLitres, b.CompletedAt, b.Notes,
		b.Version, b.CreatedAt, b.UpdatedAt,
	)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*BrewBatch, error) {
	return r.get(ctx, `SELECT `+batchColumns+` FROM brew_batches WHERE id = ?`, id)
}

// GetForUpdate reads a batch and locks it until the surrounding transaction ends
func (r *BatchRepository) GetForUpdate(ctx context.Context, id string) (*BrewBatch, error) {
	return r.get(ctx, `SELECT `+batchColumns+` FROM brew_batches WHERE id = ?`+r.db.ForUpdate(), id)
}

func (r *BatchRepository) get(ctx context.Context, query, id string) (*BrewBatch, error) {
	var b BrewBatch
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("brew batch")
		}
		return nil, err
	}
	return &b, nil
}

// List lists one page of batches, newest first, and how many match filter
func (r *BatchRepository) List(ctx context.Context, filter BatchFilter) ([]*BrewBatch, int64, error) {
	where := ` WHERE 1 = 1`
	var args []any
	if filter.Status != "" {
		where += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.RecipeID != "" {
		where += ` AND recipe_id = ?`
		args = append(args, filter.RecipeID)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM brew_batches`+where, args...); err != nil {
		return nil, 0, err
	}

	query, args := filter.Page.Apply(`SELECT `+batchColumns+` FROM brew_batches`+where+` ORDER BY created_at DESC, batch_number DESC`, args)
	var batches []*BrewBatch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// Update writes the mutable fields of b if nobody changed the row since it
// was read, then bumps b.Version.
func (r *BatchRepository) Update(ctx context.Context, b *BrewBatch) error {
	b.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE brew_batches SET
			status = ?, vessel_id = ?, planned_date = ?, brew_date = ?, actual_og = ?, actual_fg = ?,
			actual_abv = ?, actual_ibu = ?, actual_volume_litres = ?, completed_at = ?, notes = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	n, err := r.db.ExecAffecting(ctx, query,
		b.Status, b.VesselID, b.PlannedDate, b.BrewDate, b.ActualOG, b.ActualFG, b.ActualABV, b.ActualIBU,
		b.ActualVolumeLitres, b.CompletedAt, b.Notes, b.UpdatedAt, b.ID, b.Version,
	)
	if err != nil {
		if appErr := database.MapError(err); appErr != nil {
			return appErr
		}
		return err
	}
	if n == 0 {
		return errors.ConcurrentModification("brew batch", b.ID)
	}
	b.Version++
	return nil
}
