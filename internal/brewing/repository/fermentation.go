package repository

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FermentationEntry is one reading taken during fermentation
type FermentationEntry struct {
	ID                 string              `db:"id" json:"id"`
	BatchID            string              `db:"batch_id" json:"batch_id"`
	LoggedAt           time.Time           `db:"logged_at" json:"logged_at"`
	Gravity            decimal.NullDecimal `db:"gravity" json:"gravity"`
	TemperatureCelsius decimal.NullDecimal `db:"temperature_celsius" json:"temperature_celsius"`
	PH                 decimal.NullDecimal `db:"ph" json:"ph"`
	Notes              *string             `db:"notes" json:"notes,omitempty"`
	LoggedBy           *string             `db:"logged_by" json:"logged_by,omitempty"`
}

// FermentationRepository handles fermentation log persistence
type FermentationRepository struct {
	db *database.DB
}

// NewFermentationRepository creates a new fermentation repository
func NewFermentationRepository(db *database.DB) *FermentationRepository {
	return &FermentationRepository{db: db}
}

// Create appends a reading
func (r *FermentationRepository) Create(ctx context.Context, e *FermentationEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fermentation_log (id, batch_id, logged_at, gravity, temperature_celsius, ph, notes, logged_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.BatchID, e.LoggedAt, e.Gravity, e.TemperatureCelsius, e.PH, e.Notes, e.LoggedBy)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// ListByBatch lists a batch's readings in time order
func (r *FermentationRepository) ListByBatch(ctx context.Context, batchID string) ([]*FermentationEntry, error) {
	var entries []*FermentationEntry
	query := `
		SELECT id, batch_id, logged_at, gravity, temperature_celsius, ph, notes, logged_by
		FROM fermentation_log WHERE batch_id = ? ORDER BY logged_at, id
	`
	if err := r.db.SelectContext(ctx, &entries, query, batchID); err != nil {
		return nil, err
	}
	return entries, nil
}
