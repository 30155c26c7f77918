package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/brewops/brewops-backend/internal/brewing/repository"
	invrepo "github.com/brewops/brewops-backend/internal/inventory/repository"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// RecipeService manages recipes and their versions
type RecipeService struct {
	db         *database.DB
	recipeRepo *repository.RecipeRepository
	itemRepo   *invrepo.ItemRepository
	logger     *logger.Logger
}

// NewRecipeService creates a new recipe service
func NewRecipeService(db *database.DB, recipeRepo *repository.RecipeRepository, itemRepo *invrepo.ItemRepository, log *logger.Logger) *RecipeService {
	return &RecipeService{
		db:         db,
		recipeRepo: recipeRepo,
		itemRepo:   itemRepo,
		logger:     log,
	}
}

// IngredientInput is one ingredient line. Unit defaults to the item's unit.
type IngredientInput struct {
	ItemID     string          `json:"item_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit       string          `json:"unit,omitempty"`
	UsageStage string          `json:"usage_stage" validate:"required,oneof=mash boil whirlpool fermentation dry_hop packaging"`
}

// RecipeInput creates a recipe. Zero process times take the house defaults.
type RecipeInput struct {
	Name             string              `json:"name" validate:"required,max=200"`
	Style            string              `json:"style" validate:"max=100"`
	BatchSizeLitres  decimal.Decimal     `json:"batch_size_litres" validate:"gt=0"`
	TargetOG         decimal.NullDecimal `json:"target_og"`
	TargetFG         decimal.NullDecimal `json:"target_fg"`
	TargetABV        decimal.NullDecimal `json:"target_abv"`
	TargetIBU        decimal.NullDecimal `json:"target_ibu"`
	BoilMinutes      int                 `json:"boil_minutes" validate:"gte=0"`
	FermentationDays int                 `json:"fermentation_days" validate:"gte=0"`
	ConditioningDays int                 `json:"conditioning_days" validate:"gte=0"`
	Notes            *string             `json:"notes,omitempty"`
	Ingredients      []IngredientInput   `json:"ingredients" validate:"dive"`
}

// RecipeVersionInput overrides fields of the copied recipe. Nil fields keep
// the source value; a non-nil Ingredients replaces the ingredient list.
type RecipeVersionInput struct {
	Style           *string             `json:"style,omitempty"`
	BatchSizeLitres decimal.NullDecimal `json:"batch_size_litres" validate:"omitempty,gt=0"`
	TargetOG        decimal.NullDecimal `json:"target_og"`
	TargetFG        decimal.NullDecimal `json:"target_fg"`
	Notes           *string             `json:"notes,omitempty"`
	Ingredients     []IngredientInput   `json:"ingredients,omitempty" validate:"omitempty,dive"`
}

const (
	defaultBoilMinutes      = 60
	defaultFermentationDays = 14
	defaultConditioningDays = 7
)

// CreateRecipe creates version 1 of a recipe together with its ingredients
func (s *RecipeService) CreateRecipe(ctx context.Context, in RecipeInput) (*repository.Recipe, error) {
	if !in.BatchSizeLitres.IsPositive() {
		return nil, errors.Validation(map[string]string{"batch_size_litres": "must be greater than zero"})
	}

	recipe := &repository.Recipe{
		Name:             in.Name,
		Style:            in.Style,
		Version:          1,
		BatchSizeLitres:  in.BatchSizeLitres,
		TargetOG:         in.TargetOG,
		TargetFG:         in.TargetFG,
		TargetABV:        in.TargetABV,
		TargetIBU:        in.TargetIBU,
		BoilMinutes:      orDefault(in.BoilMinutes, defaultBoilMinutes),
		FermentationDays: orDefault(in.FermentationDays, defaultFermentationDays),
		ConditioningDays: orDefault(in.ConditioningDays, defaultConditioningDays),
		Notes:            in.Notes,
	}

	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		ingredients, err := s.buildIngredients(ctx, in.Ingredients)
		if err != nil {
			return err
		}
		recipe.Ingredients = ingredients
		return s.recipeRepo.Create(ctx, recipe)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("recipe_id", recipe.ID).Str("name", recipe.Name).Msg("recipe created")
	return recipe, nil
}

func (s *RecipeService) buildIngredients(ctx context.Context, lines []IngredientInput) ([]*repository.RecipeIngredient, error) {
	out := make([]*repository.RecipeIngredient, 0, len(lines))
	for i, line := range lines {
		if !line.Quantity.IsPositive() {
			return nil, errors.Validation(map[string]string{fmt.Sprintf("ingredients[%d].quantity", i): "must be greater than zero"})
		}
		if !slices.Contains(repository.UsageStages, line.UsageStage) {
			return nil, errors.Validation(map[string]string{fmt.Sprintf("ingredients[%d].usage_stage", i): "unknown usage stage"})
		}
		item, err := s.itemRepo.GetByID(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		unit := line.Unit
		if unit == "" {
			unit = item.Unit
		}
		out = append(out, &repository.RecipeIngredient{
			ItemID:     item.ID,
			Quantity:   line.Quantity,
			Unit:       unit,
			UsageStage: line.UsageStage,
		})
	}
	return out, nil
}

// GetRecipe gets a recipe with its ingredients
func (s *RecipeService) GetRecipe(ctx context.Context, id string) (*repository.Recipe, error) {
	return s.recipeRepo.GetWithIngredients(ctx, id)
}

// ListRecipes lists recipes without ingredients
func (s *RecipeService) ListRecipes(ctx context.Context, filter repository.RecipeFilter) ([]*repository.Recipe, error) {
	return s.recipeRepo.List(ctx, filter)
}

// NewRecipeVersion copies a recipe and its ingredients into a new version
// whose parent is the source. Batches keep pointing at the version they
// were planned with.
func (s *RecipeService) NewRecipeVersion(ctx context.Context, sourceID string, in RecipeVersionInput) (*repository.Recipe, error) {
	var next *repository.Recipe
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		source, err := s.recipeRepo.GetWithIngredients(ctx, sourceID)
		if err != nil {
			return err
		}

		parentID := source.ID
		next = &repository.Recipe{
			Name:             source.Name,
			Style:            source.Style,
			Version:          source.Version + 1,
			ParentRecipeID:   &parentID,
			BatchSizeLitres:  source.BatchSizeLitres,
			TargetOG:         source.TargetOG,
			TargetFG:         source.TargetFG,
			TargetABV:        source.TargetABV,
			TargetIBU:        source.TargetIBU,
			BoilMinutes:      source.BoilMinutes,
			FermentationDays: source.FermentationDays,
			ConditioningDays: source.ConditioningDays,
			Notes:            source.Notes,
		}
		if in.Style != nil {
			next.Style = *in.Style
		}
		if in.BatchSizeLitres.Valid {
			if !in.BatchSizeLitres.Decimal.IsPositive() {
				return errors.Validation(map[string]string{"batch_size_litres": "must be greater than zero"})
			}
			next.BatchSizeLitres = in.BatchSizeLitres.Decimal
		}
		if in.TargetOG.Valid {
			next.TargetOG = in.TargetOG
		}
		if in.TargetFG.Valid {
			next.TargetFG = in.TargetFG
		}
		if in.Notes != nil {
			next.Notes = in.Notes
		}

		if in.Ingredients != nil {
			next.Ingredients, err = s.buildIngredients(ctx, in.Ingredients)
			if err != nil {
				return err
			}
		} else {
			for _, ing := range source.Ingredients {
				next.Ingredients = append(next.Ingredients, &repository.RecipeIngredient{
					ItemID:     ing.ItemID,
					Quantity:   ing.Quantity,
					Unit:       ing.Unit,
					UsageStage: ing.UsageStage,
				})
			}
		}

		return s.recipeRepo.Create(ctx, next)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("recipe_id", next.ID).
		Str("parent_recipe_id", sourceID).
		Int("version", next.Version).
		Msg("recipe version created")
	return next, nil
}

// RecipeLineage returns the chain of versions ending at id, oldest first
func (s *RecipeService) RecipeLineage(ctx context.Context, id string) ([]*repository.Recipe, error) {
	seen := make(map[string]bool)
	var chain []*repository.Recipe

	next := &id
	for next != nil {
		if seen[*next] {
			return nil, errors.InvariantViolation(fmt.Sprintf("recipe lineage of %s loops at %s", id, *next))
		}
		seen[*next] = true

		recipe, err := s.recipeRepo.GetByID(ctx, *next)
		if err != nil {
			return nil, err
		}
		chain = append(chain, recipe)
		next = recipe.ParentRecipeID
	}

	slices.Reverse(chain)
	return chain, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
