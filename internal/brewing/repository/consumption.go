package repository

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchConsumption records material drawn from a lot into a batch. MovementID
// points at the consumed movement that took the quantity out of the lot.
type BatchConsumption struct {
	ID         string          `db:"id" json:"id"`
	BatchID    string          `db:"batch_id" json:"batch_id"`
	LotID      string          `db:"lot_id" json:"lot_id"`
	ItemID     string          `db:"item_id" json:"item_id"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
	Unit       string          `db:"unit" json:"unit"`
	UsageStage *string         `db:"usage_stage" json:"usage_stage,omitempty"`
	MovementID string          `db:"movement_id" json:"movement_id"`
	Notes      *string         `db:"notes" json:"notes,omitempty"`
	RecordedBy *string         `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// ConsumptionRepository handles batch consumption persistence
type ConsumptionRepository struct {
	db *database.DB
}

// NewConsumptionRepository creates a new consumption repository
func NewConsumptionRepository(db *database.DB) *ConsumptionRepository {
	return &ConsumptionRepository{db: db}
}

// Create inserts a consumption row
func (r *ConsumptionRepository) Create(ctx context.Context, c *BatchConsumption) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO batch_consumptions (id, batch_id, lot_id, item_id, quantity, unit, usage_stage, movement_id,
			notes, recorded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.BatchID, c.LotID, c.ItemID, c.Quantity, c.Unit, c.UsageStage, c.MovementID,
		c.Notes, c.RecordedBy, c.CreatedAt)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// ListByBatch lists what a batch consumed
func (r *ConsumptionRepository) ListByBatch(ctx context.Context, batchID string) ([]*BatchConsumption, error) {
	var rows []*BatchConsumption
	query := `
		SELECT id, batch_id, lot_id, item_id, quantity, unit, usage_stage, movement_id, notes, recorded_by, created_at
		FROM batch_consumptions WHERE batch_id = ? ORDER BY created_at, id
	`
	if err := r.db.SelectContext(ctx, &rows, query, batchID); err != nil {
		return nil, err
	}
	return rows, nil
}
