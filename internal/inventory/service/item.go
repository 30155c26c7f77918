package service

import (
	"context"
	"slices"

	"github.com/brewops/brewops-backend/internal/inventory/repository"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// ItemService manages the inventory item catalogue
type ItemService struct {
	itemRepo *repository.ItemRepository
	logger   *logger.Logger
}

// NewItemService creates a new item service
func NewItemService(itemRepo *repository.ItemRepository, log *logger.Logger) *ItemService {
	return &ItemService{
		itemRepo: itemRepo,
		logger:   log,
	}
}

// ItemInput carries the editable fields of an item
type ItemInput struct {
	Name            string              `json:"name" validate:"required,max=200"`
	Category        string              `json:"category" validate:"required,oneof=grain hop yeast adjunct chemical packaging other"`
	Unit            string              `json:"unit" validate:"required,max=20"`
	ReorderPoint    decimal.NullDecimal `json:"reorder_point" validate:"omitempty,gte=0"`
	ReorderQuantity decimal.NullDecimal `json:"reorder_quantity" validate:"omitempty,gte=0"`
}

func (in ItemInput) check() error {
	if !slices.Contains(repository.ItemCategories, in.Category) {
		return errors.Validation(map[string]string{"category": "unknown category"})
	}
	if in.ReorderPoint.Valid && in.ReorderPoint.Decimal.IsNegative() {
		return errors.Validation(map[string]string{"reorder_point": "must not be negative"})
	}
	return nil
}

// CreateItem creates a new inventory item
func (s *ItemService) CreateItem(ctx context.Context, in ItemInput) (*repository.InventoryItem, error) {
	if err := in.check(); err != nil {
		return nil, err
	}

	item := &repository.InventoryItem{
		Name:            in.Name,
		Category:        in.Category,
		Unit:            in.Unit,
		ReorderPoint:    in.ReorderPoint,
		ReorderQuantity: in.ReorderQuantity,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem gets an item by ID
func (s *ItemService) GetItem(ctx context.Context, id string) (*repository.InventoryItem, error) {
	return s.itemRepo.GetByID(ctx, id)
}

// ListItems lists items
func (s *ItemService) ListItems(ctx context.Context, filter repository.ItemFilter) ([]*repository.InventoryItem, error) {
	return s.itemRepo.List(ctx, filter)
}

// UpdateItem updates an item
func (s *ItemService) UpdateItem(ctx context.Context, id string, in ItemInput) (*repository.InventoryItem, error) {
	if err := in.check(); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Name = in.Name
	item.Category = in.Category
	item.Unit = in.Unit
	item.ReorderPoint = in.ReorderPoint
	item.ReorderQuantity = in.ReorderQuantity

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ArchiveItem archives an item
func (s *ItemService) ArchiveItem(ctx context.Context, id string) error {
	if err := s.itemRepo.Archive(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("item_id", id).Msg("inventory item archived")
	return nil
}
