package repository

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Usage stages of a recipe ingredient
var UsageStages = []string{"mash", "boil", "whirlpool", "fermentation", "dry_hop", "packaging"}

// Recipe is one version of a beer formulation at a reference batch size
type Recipe struct {
	ID               string              `db:"id" json:"id"`
	Name             string              `db:"name" json:"name"`
	Style            string              `db:"style" json:"style"`
	Version          int                 `db:"version" json:"version"`
	ParentRecipeID   *string             `db:"parent_recipe_id" json:"parent_recipe_id,omitempty"`
	BatchSizeLitres  decimal.Decimal     `db:"batch_size_litres" json:"batch_size_litres"`
	TargetOG         decimal.NullDecimal `db:"target_og" json:"target_og"`
	TargetFG         decimal.NullDecimal `db:"target_fg" json:"target_fg"`
	TargetABV        decimal.NullDecimal `db:"target_abv" json:"target_abv"`
	TargetIBU        decimal.NullDecimal `db:"target_ibu" json:"target_ibu"`
	BoilMinutes      int                 `db:"boil_minutes" json:"boil_minutes"`
	FermentationDays int                 `db:"fermentation_days" json:"fermentation_days"`
	ConditioningDays int                 `db:"conditioning_days" json:"conditioning_days"`
	Notes            *string             `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at" json:"updated_at"`

	Ingredients []*RecipeIngredient `db:"-" json:"ingredients,omitempty"`
}

// RecipeIngredient is the quantity of an inventory item a recipe uses
type RecipeIngredient struct {
	ID         string          `db:"id" json:"id"`
	RecipeID   string          `db:"recipe_id" json:"recipe_id"`
	ItemID     string          `db:"item_id" json:"item_id"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
	Unit       string          `db:"unit" json:"unit"`
	UsageStage string          `db:"usage_stage" json:"usage_stage"`
	SortOrder  int             `db:"sort_order" json:"-"`
}

// RecipeFilter narrows recipe listings
type RecipeFilter struct {
	Name       string
	LatestOnly bool
}

// RecipeRepository handles recipe persistence
type RecipeRepository struct {
	db *database.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *database.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

const recipeColumns = `id, name, style, version, parent_recipe_id, batch_size_litres, target_og, target_fg,
	target_abv, target_ibu, boil_minutes, fermentation_days, conditioning_days, notes, created_at, updated_at`

// Create inserts a recipe and its ingredients. Run it inside a transaction.
func (r *RecipeRepository) Create(ctx context.Context, recipe *Recipe) error {
	if recipe.ID == "" {
		recipe.ID = uuid.New().String()
	}
	if recipe.Version == 0 {
		recipe.Version = 1
	}
	now := time.Now().UTC()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	query := `
		INSERT INTO recipes (` + recipeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		recipe.ID, recipe.Name, recipe.Style, recipe.Version, recipe.ParentRecipeID, recipe.BatchSizeLitres,
		recipe.TargetOG, recipe.TargetFG, recipe.TargetABV, recipe.TargetIBU, recipe.BoilMinutes,
		recipe.FermentationDays, recipe.ConditioningDays, recipe.Notes, recipe.CreatedAt, recipe.UpdatedAt,
	)
	if err != nil {
		if appErr := database.MapError(err); appErr != nil {
			return appErr
		}
		return err
	}

	for i, ing := range recipe.Ingredients {
		ing.RecipeID = recipe.ID
		ing.SortOrder = i
		if err := r.createIngredient(ctx, ing); err != nil {
			return err
		}
	}
	return nil
}

func (r *RecipeRepository) createIngredient(ctx context.Context, ing *RecipeIngredient) error {
	if ing.ID == "" {
		ing.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recipe_ingredients (id, recipe_id, item_id, quantity, unit, usage_stage, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ing.ID, ing.RecipeID, ing.ItemID, ing.Quantity, ing.Unit, ing.UsageStage, ing.SortOrder)
	if appErr := database.MapError(err); appErr != nil {
		return appErr
	}
	return err
}

// GetByID gets a recipe without its ingredients
func (r *RecipeRepository) GetByID(ctx context.Context, id string) (*Recipe, error) {
	var recipe Recipe
	if err := r.db.GetContext(ctx, &recipe, `SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("recipe")
		}
		return nil, err
	}
	return &recipe, nil
}

// GetWithIngredients gets a recipe and its ingredients
func (r *RecipeRepository) GetWithIngredients(ctx context.Context, id string) (*Recipe, error) {
	recipe, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	recipe.Ingredients, err = r.ListIngredients(ctx, id)
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

// ListIngredients lists the ingredients of a recipe in entry order
func (r *RecipeRepository) ListIngredients(ctx context.Context, recipeID string) ([]*RecipeIngredient, error) {
	var ingredients []*RecipeIngredient
	query := `
		SELECT id, recipe_id, item_id, quantity, unit, usage_stage, sort_order
		FROM recipe_ingredients WHERE recipe_id = ? ORDER BY sort_order, id
	`
	if err := r.db.SelectContext(ctx, &ingredients, query, recipeID); err != nil {
		return nil, err
	}
	return ingredients, nil
}

// List lists recipes by name and version
func (r *RecipeRepository) List(ctx context.Context, filter RecipeFilter) ([]*Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE 1 = 1`
	var args []any
	if filter.Name != "" {
		query += ` AND name = ?`
		args = append(args, filter.Name)
	}
	if filter.LatestOnly {
		query += ` AND NOT EXISTS (SELECT 1 FROM recipes c WHERE c.parent_recipe_id = recipes.id)`
	}
	query += ` ORDER BY name, version`

	var recipes []*Recipe
	if err := r.db.SelectContext(ctx, &recipes, query, args...); err != nil {
		return nil, err
	}
	return recipes, nil
}
