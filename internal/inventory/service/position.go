package service

import (
	"context"

	"github.com/brewops/brewops-backend/internal/inventory/repository"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// quantityPlaces is the scale of stored material quantities
const quantityPlaces = 4

// InventoryPosition is the live stock picture of one item
type InventoryPosition struct {
	ItemID            string              `json:"item_id"`
	ItemName          string              `json:"item_name"`
	Unit              string              `json:"unit"`
	QuantityOnHand    decimal.Decimal     `json:"quantity_on_hand"`
	QuantityAllocated decimal.Decimal     `json:"quantity_allocated"`
	QuantityAvailable decimal.Decimal     `json:"quantity_available"`
	QuantityOnOrder   decimal.Decimal     `json:"quantity_on_order"`
	QuantityProjected decimal.Decimal     `json:"quantity_projected"`
	ReorderPoint      decimal.NullDecimal `json:"reorder_point"`
	BelowReorderPoint bool                `json:"below_reorder_point"`
}

// ScaledQuantity scales a recipe ingredient quantity from the recipe's
// reference batch size to an actual batch size.
func ScaledQuantity(quantity, batchSize, recipeSize decimal.Decimal) decimal.Decimal {
	if recipeSize.IsZero() {
		return quantity
	}
	return quantity.Mul(batchSize).Div(recipeSize)
}

// PositionService computes on hand, allocated, available, on order and
// projected quantities per item. Figures are read live on every call.
//
// Allocation walks every planned and brewing batch's recipe each time, which
// is the hot path once the batch table grows.
type PositionService struct {
	itemRepo     *repository.ItemRepository
	positionRepo *repository.PositionRepository
	logger       *logger.Logger
}

// NewPositionService creates a new position service
func NewPositionService(itemRepo *repository.ItemRepository, positionRepo *repository.PositionRepository, log *logger.Logger) *PositionService {
	return &PositionService{
		itemRepo:     itemRepo,
		positionRepo: positionRepo,
		logger:       log,
	}
}

// GetPosition computes the position of one item
func (s *PositionService) GetPosition(ctx context.Context, itemID string) (*InventoryPosition, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	totals, err := s.loadTotals(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return totals.position(item), nil
}

// GetPositionAll computes positions for every non-archived item, ordered by name
func (s *PositionService) GetPositionAll(ctx context.Context) ([]*InventoryPosition, error) {
	items, err := s.itemRepo.List(ctx, repository.ItemFilter{})
	if err != nil {
		return nil, err
	}

	totals, err := s.loadTotals(ctx, "")
	if err != nil {
		return nil, err
	}

	positions := make([]*InventoryPosition, 0, len(items))
	for _, item := range items {
		positions = append(positions, totals.position(item))
	}
	return positions, nil
}

// GetPositions computes positions for the given items, keyed by item ID
func (s *PositionService) GetPositions(ctx context.Context, itemIDs []string) (map[string]*InventoryPosition, error) {
	totals, err := s.loadTotals(ctx, "")
	if err != nil {
		return nil, err
	}

	out := make(map[string]*InventoryPosition, len(itemIDs))
	for _, id := range itemIDs {
		item, err := s.itemRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = totals.position(item)
	}
	return out, nil
}

type itemTotals struct {
	onHand    map[string]decimal.Decimal
	allocated map[string]decimal.Decimal
	onOrder   map[string]decimal.Decimal
}

// loadTotals reads the figures for itemID, or for all items when itemID is empty.
func (s *PositionService) loadTotals(ctx context.Context, itemID string) (*itemTotals, error) {
	t := &itemTotals{
		onHand:    map[string]decimal.Decimal{},
		allocated: map[string]decimal.Decimal{},
		onOrder:   map[string]decimal.Decimal{},
	}

	lots, err := s.positionRepo.LotBalances(ctx, itemID)
	if err != nil {
		return nil, err
	}
	for _, l := range lots {
		t.onHand[l.ItemID] = t.onHand[l.ItemID].Add(l.QuantityOnHand)
	}

	demand, err := s.positionRepo.DemandLines(ctx, enums.AllocatingBatchStatuses, itemID)
	if err != nil {
		return nil, err
	}
	for _, d := range demand {
		t.allocated[d.ItemID] = t.allocated[d.ItemID].Add(ScaledQuantity(d.Quantity, d.BatchSizeLitres, d.RecipeSizeLitres))
	}

	lines, err := s.positionRepo.OpenOrderLines(ctx, itemID)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		outstanding := l.QuantityOrdered.Sub(l.QuantityReceived)
		if outstanding.IsPositive() {
			t.onOrder[l.ItemID] = t.onOrder[l.ItemID].Add(outstanding)
		}
	}

	return t, nil
}

func (t *itemTotals) position(item *repository.InventoryItem) *InventoryPosition {
	onHand := t.onHand[item.ID]
	allocated := t.allocated[item.ID].Round(quantityPlaces)
	onOrder := t.onOrder[item.ID]
	available := onHand.Sub(allocated)

	p := &InventoryPosition{
		ItemID:            item.ID,
		ItemName:          item.Name,
		Unit:              item.Unit,
		QuantityOnHand:    onHand,
		QuantityAllocated: allocated,
		QuantityAvailable: available,
		QuantityOnOrder:   onOrder,
		QuantityProjected: available.Add(onOrder),
		ReorderPoint:      item.ReorderPoint,
	}
	if item.ReorderPoint.Valid && available.LessThan(item.ReorderPoint.Decimal) {
		p.BelowReorderPoint = true
	}
	return p
}
