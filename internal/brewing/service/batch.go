package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/brewops/brewops-backend/internal/brewing/events"
	"github.com/brewops/brewops-backend/internal/brewing/repository"
	invrepo "github.com/brewops/brewops-backend/internal/inventory/repository"
	invservice "github.com/brewops/brewops-backend/internal/inventory/service"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// abvFactor converts the gravity drop into percent alcohol by volume
var abvFactor = decimal.RequireFromString("131.25")

// BatchService drives brew batches through their lifecycle
type BatchService struct {
	db               *database.DB
	batchRepo        *repository.BatchRepository
	recipeRepo       *repository.RecipeRepository
	vesselRepo       *repository.VesselRepository
	fermentationRepo *repository.FermentationRepository
	consumptionRepo  *repository.ConsumptionRepository
	ledger           *invservice.LedgerService
	publisher        *events.BrewingEventPublisher
	metrics          *metrics.Lifecycle
	logger           *logger.Logger
}

// NewBatchService creates a new batch service
func NewBatchService(
	db *database.DB,
	batchRepo *repository.BatchRepository,
	recipeRepo *repository.RecipeRepository,
	vesselRepo *repository.VesselRepository,
	fermentationRepo *repository.FermentationRepository,
	consumptionRepo *repository.ConsumptionRepository,
	ledger *invservice.LedgerService,
	publisher *events.BrewingEventPublisher,
	m *metrics.Lifecycle,
	log *logger.Logger,
) *BatchService {
	return &BatchService{
		db:               db,
		batchRepo:        batchRepo,
		recipeRepo:       recipeRepo,
		vesselRepo:       vesselRepo,
		fermentationRepo: fermentationRepo,
		consumptionRepo:  consumptionRepo,
		ledger:           ledger,
		publisher:        publisher,
		metrics:          m,
		logger:           log,
	}
}

// BatchInput plans a batch. BatchSizeLitres defaults to the recipe's size.
type BatchInput struct {
	RecipeID        string              `json:"recipe_id" validate:"required"`
	BatchSizeLitres decimal.NullDecimal `json:"batch_size_litres" validate:"omitempty,gt=0"`
	VesselID        *string             `json:"vessel_id,omitempty"`
	PlannedDate     *time.Time          `json:"planned_date,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
}

// FermentationInput is one reading for the fermentation log
type FermentationInput struct {
	LoggedAt           *time.Time          `json:"logged_at,omitempty"`
	Gravity            decimal.NullDecimal `json:"gravity" validate:"omitempty,gt=0"`
	TemperatureCelsius decimal.NullDecimal `json:"temperature_celsius"`
	PH                 decimal.NullDecimal `json:"ph" validate:"omitempty,gte=0,lte=14"`
	Notes              *string             `json:"notes,omitempty"`
	LoggedBy           *string             `json:"logged_by,omitempty"`
}

// ConsumptionInput draws a quantity from a lot into a batch
type ConsumptionInput struct {
	LotID      string          `json:"lot_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
	UsageStage *string         `json:"usage_stage,omitempty" validate:"omitempty,oneof=mash boil whirlpool fermentation dry_hop packaging"`
	Notes      *string         `json:"notes,omitempty"`
	RecordedBy *string         `json:"recorded_by,omitempty"`
}

// CreateBatch plans a new batch of a recipe
func (s *BatchService) CreateBatch(ctx context.Context, in BatchInput) (*repository.BrewBatch, error) {
	var batch *repository.BrewBatch
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		recipe, err := s.recipeRepo.GetByID(ctx, in.RecipeID)
		if err != nil {
			return err
		}
		if in.VesselID != nil {
			if _, err := s.vesselRepo.GetByID(ctx, *in.VesselID); err != nil {
				return err
			}
		}

		size := recipe.BatchSizeLitres
		if in.BatchSizeLitres.Valid {
			if !in.BatchSizeLitres.Decimal.IsPositive() {
				return errors.Validation(map[string]string{"batch_size_litres": "must be greater than zero"})
			}
			size = in.BatchSizeLitres.Decimal
		}

		number, err := s.db.NextNumber(ctx, "brew_batches", "batch_number", "B", time.Now().UTC())
		if err != nil {
			return err
		}

		batch = &repository.BrewBatch{
			BatchNumber:     number,
			RecipeID:        recipe.ID,
			Status:          enums.BatchStatusPlanned,
			BatchSizeLitres: size,
			VesselID:        in.VesselID,
			PlannedDate:     in.PlannedDate,
			Notes:           in.Notes,
		}
		return s.batchRepo.Create(ctx, batch)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("batch_id", batch.ID).
		Str("batch_number", batch.BatchNumber).
		Str("recipe_id", batch.RecipeID).
		Msg("batch planned")
	return batch, nil
}

// GetBatch gets a batch by ID
func (s *BatchService) GetBatch(ctx context.Context, id string) (*repository.BrewBatch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

// ListBatches lists one page of batches and the number matching filter
func (s *BatchService) ListBatches(ctx context.Context, filter repository.BatchFilter) ([]*repository.BrewBatch, int64, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, errors.Validation(map[string]string{"status": fmt.Sprintf("unknown batch status %q", filter.Status)})
	}
	return s.batchRepo.List(ctx, filter)
}

// Transition moves a batch to status to. All checks run before the first
// write and every effect commits in one transaction.
func (s *BatchService) Transition(ctx context.Context, id string, to enums.BatchStatus) (*repository.BrewBatch, error) {
	start := time.Now()

	var batch *repository.BrewBatch
	var from enums.BatchStatus
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		b, err := s.batchRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = b.Status
		if !from.CanTransitionTo(to) {
			return errors.InvalidTransition("brew batch", from, to)
		}

		starting := from == enums.BatchStatusPlanned && to == enums.BatchStatusBrewing
		if starting && b.VesselID != nil {
			v, err := s.vesselRepo.GetForUpdate(ctx, *b.VesselID)
			if err != nil {
				return err
			}
			if v.Status != enums.VesselStatusAvailable {
				return errors.GuardViolation(fmt.Sprintf("vessel %s is %s", v.Name, v.Status))
			}
		}

		now := time.Now().UTC()
		b.Status = to
		switch to {
		case enums.BatchStatusBrewing:
			today := now.Truncate(24 * time.Hour)
			b.BrewDate = &today
			if b.VesselID != nil {
				if err := s.vesselRepo.Acquire(ctx, *b.VesselID, b.ID); err != nil {
					return err
				}
			}
		case enums.BatchStatusCompleted:
			b.CompletedAt = &now
		}
		if to.IsTerminal() && b.VesselID != nil {
			if _, err := s.vesselRepo.Release(ctx, *b.VesselID, b.ID); err != nil {
				return err
			}
		}
		applyABV(b)

		if err := s.batchRepo.Update(ctx, b); err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		s.reject(id, "transition", err)
		return nil, err
	}

	s.metrics.IncTransition(metrics.AggregateBatch, from.String(), to.String())
	s.metrics.ObserveDuration(metrics.AggregateBatch, "transition", time.Since(start))
	s.publisher.PublishStatusChanged(ctx, batch, from)
	s.logger.Info().
		Str("batch_id", batch.ID).
		Str("batch_number", batch.BatchNumber).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("batch status changed")
	return batch, nil
}

// applyABV derives actual_abv from the measured gravities when both are known
func applyABV(b *repository.BrewBatch) {
	if !b.ActualOG.Valid || !b.ActualFG.Valid {
		return
	}
	abv := b.ActualOG.Decimal.Sub(b.ActualFG.Decimal).Mul(abvFactor).Round(2)
	b.ActualABV = decimal.NullDecimal{Decimal: abv, Valid: true}
}

func (s *BatchService) reject(id, op string, err error) {
	if !errors.IsRejection(err) {
		return
	}
	s.metrics.IncRejection(metrics.AggregateBatch, errors.CodeOf(err))
	s.logger.Warn().Err(err).Str("batch_id", id).Str("operation", op).Msg("batch operation rejected")
}

// AssignVessel points a batch at a vessel. A planned batch only records the
// choice; a batch that already holds a vessel moves to the new one.
func (s *BatchService) AssignVessel(ctx context.Context, batchID, vesselID string) (*repository.BrewBatch, error) {
	var batch *repository.BrewBatch
	var previous *string
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		b, err := s.batchRepo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b.Status.IsTerminal() {
			return errors.InvalidState(fmt.Sprintf("batch %s is %s", b.BatchNumber, b.Status))
		}
		if b.VesselID != nil && *b.VesselID == vesselID {
			batch = b
			return nil
		}

		v, err := s.vesselRepo.GetForUpdate(ctx, vesselID)
		if err != nil {
			return err
		}
		if b.Status.HoldsVessel() {
			if v.Status != enums.VesselStatusAvailable {
				return errors.GuardViolation(fmt.Sprintf("vessel %s is %s", v.Name, v.Status))
			}
			if b.VesselID != nil {
				if _, err := s.vesselRepo.Release(ctx, *b.VesselID, b.ID); err != nil {
					return err
				}
			}
			if err := s.vesselRepo.Acquire(ctx, v.ID, b.ID); err != nil {
				return err
			}
		}

		previous = b.VesselID
		b.VesselID = &v.ID
		if err := s.batchRepo.Update(ctx, b); err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		s.reject(batchID, "assign_vessel", err)
		return nil, err
	}

	ev := s.logger.Info().Str("batch_id", batch.ID).Str("vessel_id", vesselID)
	if previous != nil {
		ev = ev.Str("previous_vessel_id", *previous)
	}
	ev.Msg("batch vessel assigned")
	return batch, nil
}

// AddFermentationEntry logs a reading. A gravity reading becomes the batch's
// actual_fg and, for the first reading, also its actual_og.
func (s *BatchService) AddFermentationEntry(ctx context.Context, batchID string, in FermentationInput) (*repository.FermentationEntry, error) {
	var batch *repository.BrewBatch
	var entry *repository.FermentationEntry
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		b, err := s.batchRepo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}

		entry = &repository.FermentationEntry{
			BatchID:            b.ID,
			Gravity:            in.Gravity,
			TemperatureCelsius: in.TemperatureCelsius,
			PH:                 in.PH,
			Notes:              in.Notes,
			LoggedBy:           in.LoggedBy,
		}
		if in.LoggedAt != nil {
			entry.LoggedAt = in.LoggedAt.UTC()
		}
		if err := s.fermentationRepo.Create(ctx, entry); err != nil {
			return err
		}

		if in.Gravity.Valid {
			b.ActualFG = in.Gravity
			if !b.ActualOG.Valid {
				b.ActualOG = in.Gravity
			}
			if err := s.batchRepo.Update(ctx, b); err != nil {
				return err
			}
		}
		batch = b
		return nil
	})
	if err != nil {
		s.reject(batchID, "fermentation", err)
		return nil, err
	}

	s.publisher.PublishFermentationLogged(ctx, batch, entry)
	s.logger.Debug().Str("batch_id", batch.ID).Str("entry_id", entry.ID).Msg("fermentation reading logged")
	return entry, nil
}

// ListFermentation lists a batch's fermentation log
func (s *BatchService) ListFermentation(ctx context.Context, batchID string) ([]*repository.FermentationEntry, error) {
	if _, err := s.batchRepo.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return s.fermentationRepo.ListByBatch(ctx, batchID)
}

// RecordConsumption takes material from a lot into a running batch. The
// consumed movement and the consumption row commit together.
func (s *BatchService) RecordConsumption(ctx context.Context, batchID string, in ConsumptionInput) (*repository.BatchConsumption, error) {
	if !in.Quantity.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}
	if in.UsageStage != nil && !slices.Contains(repository.UsageStages, *in.UsageStage) {
		return nil, errors.Validation(map[string]string{"usage_stage": "unknown usage stage"})
	}

	var consumption *repository.BatchConsumption
	var movement *invservice.MovementResult
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		b, err := s.batchRepo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b.Status == enums.BatchStatusPlanned || b.Status.IsTerminal() {
			return errors.InvalidState(fmt.Sprintf("batch %s is %s and cannot consume stock", b.BatchNumber, b.Status))
		}

		lot, err := s.ledger.GetLot(ctx, in.LotID)
		if err != nil {
			return err
		}

		ref := invrepo.ReferenceBatch
		movement, err = s.ledger.ApplyMovement(ctx, invservice.MovementInput{
			LotID:         lot.ID,
			MovementType:  enums.MovementTypeConsumed,
			Quantity:      in.Quantity.Neg(),
			ReferenceType: &ref,
			ReferenceID:   &b.ID,
			Reason:        in.Notes,
			PerformedBy:   in.RecordedBy,
		})
		if err != nil {
			return err
		}

		consumption = &repository.BatchConsumption{
			BatchID:    b.ID,
			LotID:      lot.ID,
			ItemID:     lot.ItemID,
			Quantity:   in.Quantity,
			Unit:       lot.Unit,
			UsageStage: in.UsageStage,
			MovementID: movement.Movement.ID,
			Notes:      in.Notes,
			RecordedBy: in.RecordedBy,
		}
		return s.consumptionRepo.Create(ctx, consumption)
	})
	if err != nil {
		s.reject(batchID, "consumption", err)
		return nil, err
	}

	s.ledger.Announce(ctx, movement)
	s.logger.Info().
		Str("batch_id", batchID).
		Str("lot_id", consumption.LotID).
		Str("quantity", consumption.Quantity.String()).
		Msg("batch consumption recorded")
	return consumption, nil
}

// ListConsumptions lists what a batch consumed
func (s *BatchService) ListConsumptions(ctx context.Context, batchID string) ([]*repository.BatchConsumption, error) {
	if _, err := s.batchRepo.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return s.consumptionRepo.ListByBatch(ctx, batchID)
}
