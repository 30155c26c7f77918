package service_test

import (
	"context"
	"testing"

	"github.com/brewops/brewops-backend/internal/brewing/repository"
	"github.com/brewops/brewops-backend/internal/brewing/service"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipe_CreateKeepsIngredientOrder(t *testing.T) {
	env := newBrewingEnv(t)
	ctx := context.Background()
	malt := env.fx.Item(testutil.WithItemName("Maris Otter"))
	hops := env.fx.Item(testutil.WithItemName("Cascade"))
	yeast := env.fx.Item(testutil.WithItemName("US-05"))

	recipe, err := env.recipes.CreateRecipe(ctx, service.RecipeInput{
		Name:            "Harbour Pale",
		Style:           "American Pale Ale",
		BatchSizeLitres: dec("100"),
		TargetOG:        nullDec("1.050"),
		Ingredients: []service.IngredientInput{
			{ItemID: malt.ID, Quantity: dec("30"), UsageStage: "mash"},
			{ItemID: hops.ID, Quantity: dec("0.4"), Unit: "g", UsageStage: "whirlpool"},
			{ItemID: yeast.ID, Quantity: dec("0.2"), UsageStage: "fermentation"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, recipe.Version)
	assert.Equal(t, 60, recipe.BoilMinutes)
	assert.Equal(t, 14, recipe.FermentationDays)

	stored, err := env.recipes.GetRecipe(ctx, recipe.ID)
	require.NoError(t, err)
	require.Len(t, stored.Ingredients, 3)
	assert.Equal(t, malt.ID, stored.Ingredients[0].ItemID)
	assert.Equal(t, "kg", stored.Ingredients[0].Unit)
	assert.Equal(t, hops.ID, stored.Ingredients[1].ItemID)
	assert.Equal(t, "g", stored.Ingredients[1].Unit)
	assert.Equal(t, yeast.ID, stored.Ingredients[2].ItemID)
	assertDecimal(t, "0.4", stored.Ingredients[1].Quantity)
}

func TestRecipe_CreateRejectsBadIngredients(t *testing.T) {
	env := newBrewingEnv(t)
	ctx := context.Background()
	malt := env.fx.Item()

	_, err := env.recipes.CreateRecipe(ctx, service.RecipeInput{
		Name:            "Ghost",
		BatchSizeLitres: dec("100"),
		Ingredients:     []service.IngredientInput{{ItemID: "missing", Quantity: dec("1"), UsageStage: "mash"}},
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = env.recipes.CreateRecipe(ctx, service.RecipeInput{
		Name:            "Ghost",
		BatchSizeLitres: dec("100"),
		Ingredients:     []service.IngredientInput{{ItemID: malt.ID, Quantity: dec("1"), UsageStage: "sparge"}},
	})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = env.recipes.CreateRecipe(ctx, service.RecipeInput{Name: "Ghost", BatchSizeLitres: dec("0")})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	recipes, err := env.recipes.ListRecipes(ctx, repository.RecipeFilter{Name: "Ghost"})
	require.NoError(t, err)
	assert.Empty(t, recipes)
}

func TestRecipe_VersionsAndLineage(t *testing.T) {
	env := newBrewingEnv(t)
	ctx := context.Background()
	malt := env.fx.Item()
	wheat := env.fx.Item()

	v1, err := env.recipes.CreateRecipe(ctx, service.RecipeInput{
		Name:            "Harbour Pale",
		BatchSizeLitres: dec("100"),
		Ingredients:     []service.IngredientInput{{ItemID: malt.ID, Quantity: dec("30"), UsageStage: "mash"}},
	})
	require.NoError(t, err)

	v2, err := env.recipes.NewRecipeVersion(ctx, v1.ID, service.RecipeVersionInput{
		Notes: testutil.PtrString("more body"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	require.NotNil(t, v2.ParentRecipeID)
	assert.Equal(t, v1.ID, *v2.ParentRecipeID)
	require.Len(t, v2.Ingredients, 1)
	assert.Equal(t, malt.ID, v2.Ingredients[0].ItemID)
	assert.NotEqual(t, v1.ID, v2.Ingredients[0].RecipeID)

	v3, err := env.recipes.NewRecipeVersion(ctx, v2.ID, service.RecipeVersionInput{
		BatchSizeLitres: nullDec("200"),
		Ingredients: []service.IngredientInput{
			{ItemID: malt.ID, Quantity: dec("50"), UsageStage: "mash"},
			{ItemID: wheat.ID, Quantity: dec("10"), UsageStage: "mash"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, v3.Version)
	assertDecimal(t, "200", v3.BatchSizeLitres)

	lineage, err := env.recipes.RecipeLineage(ctx, v3.ID)
	require.NoError(t, err)
	require.Len(t, lineage, 3)
	assert.Equal(t, v1.ID, lineage[0].ID)
	assert.Equal(t, v2.ID, lineage[1].ID)
	assert.Equal(t, v3.ID, lineage[2].ID)

	original, err := env.recipes.GetRecipe(ctx, v1.ID)
	require.NoError(t, err)
	require.Len(t, original.Ingredients, 1)
	assertDecimal(t, "30", original.Ingredients[0].Quantity)

	latest, err := env.recipes.ListRecipes(ctx, repository.RecipeFilter{Name: "Harbour Pale", LatestOnly: true})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, v3.ID, latest[0].ID)

	all, err := env.recipes.ListRecipes(ctx, repository.RecipeFilter{Name: "Harbour Pale"})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecipe_LineageDetectsLoop(t *testing.T) {
	env := newBrewingEnv(t)
	a := env.fx.Recipe("100")
	b := env.fx.Recipe("100")
	env.fx.Exec(`UPDATE recipes SET parent_recipe_id = ? WHERE id = ?`, b, a)
	env.fx.Exec(`UPDATE recipes SET parent_recipe_id = ? WHERE id = ?`, a, b)

	_, err := env.recipes.RecipeLineage(context.Background(), a)
	assert.True(t, errors.Is(err, errors.ErrInvariantViolation))

	_, err = env.recipes.RecipeLineage(context.Background(), "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestVessel_SetStatus(t *testing.T) {
	env := newBrewingEnv(t)
	ctx := context.Background()

	v, err := env.vessels.CreateVessel(ctx, service.VesselInput{
		Name:           "FV-01",
		VesselType:     "fermenter",
		CapacityLitres: dec("1000"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.VesselStatusAvailable, v.Status)

	v, err = env.vessels.SetVesselStatus(ctx, v.ID, enums.VesselStatusCleaning)
	require.NoError(t, err)
	assert.Equal(t, enums.VesselStatusCleaning, v.Status)

	_, err = env.vessels.SetVesselStatus(ctx, v.ID, enums.VesselStatusInUse)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = env.vessels.SetVesselStatus(ctx, v.ID, enums.VesselStatus("flooded"))
	assert.True(t, errors.Is(err, errors.ErrValidation))

	busy := env.fx.Vessel("available")
	b := env.fx.Batch(env.fx.Recipe("100"), testutil.WithBatchStatus("brewing"), testutil.WithVessel(busy))
	env.fx.OccupyVessel(busy, b.ID)

	_, err = env.vessels.SetVesselStatus(ctx, busy, enums.VesselStatusMaintenance)
	assert.Equal(t, errors.CodeInvalidState, errors.CodeOf(err))
	assert.Equal(t, enums.VesselStatusInUse, env.vessel(t, busy).Status)

	cleaning, err := env.vessels.ListVessels(ctx, enums.VesselStatusCleaning)
	require.NoError(t, err)
	require.Len(t, cleaning, 1)
	assert.Equal(t, "FV-01", cleaning[0].Name)

	_, err = env.vessels.CreateVessel(ctx, service.VesselInput{
		Name:           "FV-01",
		VesselType:     "fermenter",
		CapacityLitres: dec("500"),
	})
	assert.True(t, errors.Is(err, errors.ErrConflict))
}
