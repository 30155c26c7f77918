package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/brewops/brewops-backend/internal/brewing/repository"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// VesselService manages brewing equipment
type VesselService struct {
	db         *database.DB
	vesselRepo *repository.VesselRepository
	logger     *logger.Logger
}

// NewVesselService creates a new vessel service
func NewVesselService(db *database.DB, vesselRepo *repository.VesselRepository, log *logger.Logger) *VesselService {
	return &VesselService{
		db:         db,
		vesselRepo: vesselRepo,
		logger:     log,
	}
}

// VesselInput creates a vessel
type VesselInput struct {
	Name           string          `json:"name" validate:"required,max=100"`
	VesselType     string          `json:"vessel_type" validate:"required,oneof=mash_tun kettle fermenter brite_tank"`
	CapacityLitres decimal.Decimal `json:"capacity_litres" validate:"gt=0"`
	Location       *string         `json:"location,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
}

// CreateVessel registers a vessel as available
func (s *VesselService) CreateVessel(ctx context.Context, in VesselInput) (*repository.Vessel, error) {
	if !slices.Contains(repository.VesselTypes, in.VesselType) {
		return nil, errors.Validation(map[string]string{"vessel_type": "unknown vessel type"})
	}
	if !in.CapacityLitres.IsPositive() {
		return nil, errors.Validation(map[string]string{"capacity_litres": "must be greater than zero"})
	}

	v := &repository.Vessel{
		Name:           in.Name,
		VesselType:     in.VesselType,
		CapacityLitres: in.CapacityLitres,
		Status:         enums.VesselStatusAvailable,
		Location:       in.Location,
		Notes:          in.Notes,
	}
	if err := s.vesselRepo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetVessel gets a vessel by ID
func (s *VesselService) GetVessel(ctx context.Context, id string) (*repository.Vessel, error) {
	return s.vesselRepo.GetByID(ctx, id)
}

// ListVessels lists vessels, optionally in one status
func (s *VesselService) ListVessels(ctx context.Context, status enums.VesselStatus) ([]*repository.Vessel, error) {
	if status != "" && !status.IsValid() {
		return nil, errors.Validation(map[string]string{"status": fmt.Sprintf("unknown vessel status %q", status)})
	}
	return s.vesselRepo.List(ctx, status)
}

// SetVesselStatus moves an idle vessel between available, cleaning,
// maintenance and out_of_service. in_use is owned by batch transitions.
func (s *VesselService) SetVesselStatus(ctx context.Context, id string, status enums.VesselStatus) (*repository.Vessel, error) {
	if !status.IsValid() {
		return nil, errors.Validation(map[string]string{"status": fmt.Sprintf("unknown vessel status %q", status)})
	}
	if status == enums.VesselStatusInUse {
		return nil, errors.Validation(map[string]string{"status": "in_use is set by starting a batch"})
	}

	var v *repository.Vessel
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.vesselRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == enums.VesselStatusInUse || current.CurrentBatchID != nil {
			return errors.InvalidState(fmt.Sprintf("vessel %s is in use by a batch", current.Name))
		}
		if err := s.vesselRepo.SetStatus(ctx, id, status); err != nil {
			return err
		}
		v = current
		v.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("vessel_id", id).Str("status", status.String()).Msg("vessel status changed")
	return v, nil
}
