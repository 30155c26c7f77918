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

// Vessel types accepted by vessels.vessel_type
var VesselTypes = []string{"mash_tun", "kettle", "fermenter", "brite_tank"}

// Vessel is a piece of brewing equipment a batch can occupy
type Vessel struct {
	ID             string             `db:"id" json:"id"`
	Name           string             `db:"name" json:"name"`
	VesselType     string             `db:"vessel_type" json:"vessel_type"`
	CapacityLitres decimal.Decimal    `db:"capacity_litres" json:"capacity_litres"`
	Status         enums.VesselStatus `db:"status" json:"status"`
	CurrentBatchID *string            `db:"current_batch_id" json:"current_batch_id,omitempty"`
	Location       *string            `db:"location" json:"location,omitempty"`
	Notes          *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}

// VesselRepository handles vessel persistence
type VesselRepository struct {
	db *database.DB
}

// NewVesselRepository creates a new vessel repository
func NewVesselRepository(db *database.DB) *VesselRepository {
	return &VesselRepository{db: db}
}

const vesselColumns = `id, name, vessel_type, capacity_litres, status, current_batch_id, location, notes, created_at, updated_at`

// Create creates a new vessel
func (r *VesselRepository) Create(ctx context.Context, v *Vessel) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Status == "" {
		v.Status = enums.VesselStatusAvailable
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now

	query := `
		INSERT INTO vessels (` + vesselColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.Name, v.VesselType, v.CapacityLitres, v.Status, v.CurrentBatchID, v.Location, v.Notes,
		v.CreatedAt, v.UpdatedAt,
	)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetByID gets a vessel by ID
func (r *VesselRepository) GetByID(ctx context.Context, id string) (*Vessel, error) {
	return r.get(ctx, `SELECT `+vesselColumns+` FROM vessels WHERE id = ?`, id)
}

// GetForUpdate reads a vessel and locks it until the surrounding transaction ends
func (r *VesselRepository) GetForUpdate(ctx context.Context, id string) (*Vessel, error) {
	return r.get(ctx, `SELECT `+vesselColumns+` FROM vessels WHERE id = ?`+r.db.ForUpdate(), id)
}

func (r *VesselRepository) get(ctx context.Context, query, id string) (*Vessel, error) {
	var v Vessel
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("vessel")
		}
		return nil, err
	}
	return &v, nil
}

// List lists vessels, optionally in one status
func (r *VesselRepository) List(ctx context.Context, status enums.VesselStatus) ([]*Vessel, error) {
	query := `SELECT ` + vesselColumns + ` FROM vessels`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY name`

	var vessels []*Vessel
	if err := r.db.SelectContext(ctx, &vessels, query, args...); err != nil {
		return nil, err
	}
	return vessels, nil
}

// SetStatus changes the status of a vessel that holds no batch
func (r *VesselRepository) SetStatus(ctx context.Context, id string, status enums.VesselStatus) error {
	n, err := r.db.ExecAffecting(ctx,
		`UPDATE vessels SET status = ?, updated_at = ? WHERE id = ? AND current_batch_id IS NULL`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.InvalidState("vessel is holding a batch")
	}
	return nil
}

// Acquire marks an available vessel in use by batchID
func (r *VesselRepository) Acquire(ctx context.Context, id, batchID string) error {
	n, err := r.db.ExecAffecting(ctx,
		`UPDATE vessels SET status = ?, current_batch_id = ?, updated_at = ? WHERE id = ? AND status = ?`,
		enums.VesselStatusInUse, batchID, time.Now().UTC(), id, enums.VesselStatusAvailable,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.GuardViolation("vessel is not available")
	}
	return nil
}

// Release frees a vessel held by batchID. It reports whether the vessel was held.
func (r *VesselRepository) Release(ctx context.Context, id, batchID string) (bool, error) {
	n, err := r.db.ExecAffecting(ctx,
		`UPDATE vessels SET status = ?, current_batch_id = NULL, updated_at = ? WHERE id = ? AND current_batch_id = ?`,
		enums.VesselStatusAvailable, time.Now().UTC(), id, batchID,
	)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
