package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	invrepo "github.com/brewops/brewops-backend/internal/inventory/repository"
	invservice "github.com/brewops/brewops-backend/internal/inventory/service"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

const quantityPlaces = 4

// MaterialRequirement is what the planned batches need of one item and how
// much of it must still be bought.
type MaterialRequirement struct {
	ItemID            string          `json:"item_id"`
	ItemName          string          `json:"item_name"`
	Unit              string          `json:"unit"`
	QuantityNeeded    decimal.Decimal `json:"quantity_needed"`
	QuantityAvailable decimal.Decimal `json:"quantity_available"`
	QuantityOnOrder   decimal.Decimal `json:"quantity_on_order"`
	Shortfall         decimal.Decimal `json:"shortfall"`
	NeededBy          *time.Time      `json:"needed_by,omitempty"`
	BatchCount        int             `json:"batch_count"`
}

// MaterialsService derives purchasing needs from planned batches
type MaterialsService struct {
	positionRepo *invrepo.PositionRepository
	positions    *invservice.PositionService
	logger       *logger.Logger
}

// NewMaterialsService creates a new materials service
func NewMaterialsService(positionRepo *invrepo.PositionRepository, positions *invservice.PositionService, log *logger.Logger) *MaterialsService {
	return &MaterialsService{
		positionRepo: positionRepo,
		positions:    positions,
		logger:       log,
	}
}

type itemDemand struct {
	needed   decimal.Decimal
	neededBy *time.Time
	batches  map[string]bool
}

// GetMaterialsRequirements lists every item used by a planned batch with
// shortfall = max(0, needed - available - on order), largest shortfall first
// and then by item name. It only reads.
func (s *MaterialsService) GetMaterialsRequirements(ctx context.Context) ([]*MaterialRequirement, error) {
	lines, err := s.positionRepo.DemandLines(ctx, []enums.BatchStatus{enums.BatchStatusPlanned}, "")
	if err != nil {
		return nil, err
	}

	demand := make(map[string]*itemDemand)
	var itemIDs []string
	for _, l := range lines {
		d, ok := demand[l.ItemID]
		if !ok {
			d = &itemDemand{batches: make(map[string]bool)}
			demand[l.ItemID] = d
			itemIDs = append(itemIDs, l.ItemID)
		}
		d.needed = d.needed.Add(invservice.ScaledQuantity(l.Quantity, l.BatchSizeLitres, l.RecipeSizeLitres))
		d.batches[l.BatchID] = true
		if l.PlannedDate != nil && (d.neededBy == nil || l.PlannedDate.Before(*d.neededBy)) {
			date := *l.PlannedDate
			d.neededBy = &date
		}
	}
	if len(itemIDs) == 0 {
		return []*MaterialRequirement{}, nil
	}

	positions, err := s.positions.GetPositions(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*MaterialRequirement, 0, len(itemIDs))
	for _, id := range itemIDs {
		d, pos := demand[id], positions[id]
		needed := d.needed.Round(quantityPlaces)
		shortfall := needed.Sub(pos.QuantityAvailable).Sub(pos.QuantityOnOrder)
		if shortfall.IsNegative() {
			shortfall = decimal.Zero
		}
		out = append(out, &MaterialRequirement{
			ItemID:            id,
			ItemName:          pos.ItemName,
			Unit:              pos.Unit,
			QuantityNeeded:    needed,
			QuantityAvailable: pos.QuantityAvailable,
			QuantityOnOrder:   pos.QuantityOnOrder,
			Shortfall:         shortfall,
			NeededBy:          d.neededBy,
			BatchCount:        len(d.batches),
		})
	}

	slices.SortFunc(out, func(a, b *MaterialRequirement) int {
		if c := b.Shortfall.Cmp(a.Shortfall); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemName, b.ItemName)
	})

	s.logger.Debug().Int("items", len(out)).Msg("materials requirements computed")
	return out, nil
}
