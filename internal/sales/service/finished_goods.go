package service

import (
	"context"
	"fmt"

	brewrepo "github.com/brewops/brewops-backend/internal/brewing/repository"
	"github.com/brewops/brewops-backend/internal/sales/repository"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
)

// FinishedGoodsService manages packaged product stock
type FinishedGoodsService struct {
	db         *database.DB
	fgRepo     *repository.FinishedGoodsRepository
	recipeRepo *brewrepo.RecipeRepository
	logger     *logger.Logger
}

// NewFinishedGoodsService creates a new finished goods service
func NewFinishedGoodsService(
	db *database.DB,
	fgRepo *repository.FinishedGoodsRepository,
	recipeRepo *brewrepo.RecipeRepository,
	log *logger.Logger,
) *FinishedGoodsService {
	return &FinishedGoodsService{
		db:         db,
		fgRepo:     fgRepo,
		recipeRepo: recipeRepo,
		logger:     log,
	}
}

// FinishedGoodsInput registers packaged product
type FinishedGoodsInput struct {
	RecipeID       string  `json:"recipe_id" validate:"required"`
	BatchID        *string `json:"batch_id,omitempty"`
	Format         string  `json:"format" validate:"required,max=32"`
	QuantityOnHand int     `json:"quantity_on_hand" validate:"gte=0"`
	Location       *string `json:"location,omitempty"`
}

// AdjustInput moves on hand stock by a signed number of units
type AdjustInput struct {
	Delta  int     `json:"delta" validate:"ne=0"`
	Reason *string `json:"reason,omitempty"`
}

// CreateFinishedGoods registers a finished goods row with nothing reserved
func (s *FinishedGoodsService) CreateFinishedGoods(ctx context.Context, in FinishedGoodsInput) (*repository.FinishedGoods, error) {
	if in.QuantityOnHand < 0 {
		return nil, errors.Validation(map[string]string{"quantity_on_hand": "must not be negative"})
	}
	if _, err := s.recipeRepo.GetByID(ctx, in.RecipeID); err != nil {
		return nil, err
	}

	fg := &repository.FinishedGoods{
		RecipeID:       in.RecipeID,
		BatchID:        in.BatchID,
		Format:         in.Format,
		QuantityOnHand: in.QuantityOnHand,
		Location:       in.Location,
	}
	if err := s.fgRepo.Create(ctx, fg); err != nil {
		return nil, err
	}

	s.logger.Info().Str("finished_goods_id", fg.ID).Str("format", fg.Format).Int("on_hand", fg.QuantityOnHand).Msg("finished goods registered")
	return fg, nil
}

// GetFinishedGoods gets a finished goods row
func (s *FinishedGoodsService) GetFinishedGoods(ctx context.Context, id string) (*repository.FinishedGoods, error) {
	return s.fgRepo.GetByID(ctx, id)
}

// ListFinishedGoods lists finished goods
func (s *FinishedGoodsService) ListFinishedGoods(ctx context.Context, filter repository.FinishedGoodsFilter) ([]*repository.FinishedGoods, error) {
	return s.fgRepo.List(ctx, filter)
}

// AdjustFinishedGoods adds packaged units or writes them off. Stock already
// reserved for orders cannot be written off.
func (s *FinishedGoodsService) AdjustFinishedGoods(ctx context.Context, id string, in AdjustInput) (*repository.FinishedGoods, error) {
	if in.Delta == 0 {
		return nil, errors.Validation(map[string]string{"delta": "must not be zero"})
	}

	var fg *repository.FinishedGoods
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		var err error
		fg, err = s.fgRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next := fg.QuantityOnHand + in.Delta
		if next < fg.QuantityReserved {
			return errors.InvariantViolation(fmt.Sprintf("finished goods %s has %d on hand and %d reserved, cannot remove %d",
				fg.ID, fg.QuantityOnHand, fg.QuantityReserved, -in.Delta))
		}
		fg.QuantityOnHand = next
		return s.fgRepo.SetQuantities(ctx, fg)
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.Info().Str("finished_goods_id", fg.ID).Int("delta", in.Delta).Int("on_hand", fg.QuantityOnHand)
	if in.Reason != nil {
		log = log.Str("reason", *in.Reason)
	}
	log.Msg("finished goods adjusted")
	return fg, nil
}
