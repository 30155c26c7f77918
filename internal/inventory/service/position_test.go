package service_test

import (
	"context"
	"testing"

	"github.com/brewops/brewops-backend/internal/inventory/service"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition_CombinesStockDemandAndSupply(t *testing.T) {
	env := newInventoryEnv(t)
	ctx := context.Background()

	item := env.fx.Item()
	env.fx.Lot(item.ID, "20")

	// 30 kg per 100 L, brewed at 50 L needs 15 kg.
	recipe := env.fx.Recipe("100", testutil.Ingredient(item.ID, "30"))
	env.fx.Batch(recipe, testutil.WithBatchSize("50"))

	po := env.fx.PurchaseOrder("sent")
	env.fx.PurchaseOrderLine(po, item.ID, "10", "0")

	pos, err := env.positions.GetPosition(ctx, item.ID)
	require.NoError(t, err)

	assertDecimal(t, "20", pos.QuantityOnHand)
	assertDecimal(t, "15", pos.QuantityAllocated)
	assertDecimal(t, "5", pos.QuantityAvailable)
	assertDecimal(t, "10", pos.QuantityOnOrder)
	assertDecimal(t, "15", pos.QuantityProjected)
	assert.Equal(t, item.Name, pos.ItemName)
}

func TestPosition_CountsOnlyAllocatingBatchesAndOpenOrders(t *testing.T) {
	env := newInventoryEnv(t)
	ctx := context.Background()

	item := env.fx.Item()
	env.fx.Lot(item.ID, "12.5")
	env.fx.Lot(item.ID, "7.5")
	recipe := env.fx.Recipe("100", testutil.Ingredient(item.ID, "4"))

	env.fx.Batch(recipe, testutil.WithBatchStatus("planned"))
	env.fx.Batch(recipe, testutil.WithBatchStatus("brewing"))
	env.fx.Batch(recipe, testutil.WithBatchStatus("fermenting"))
	env.fx.Batch(recipe, testutil.WithBatchStatus("cancelled"))
	env.fx.Batch(recipe, testutil.WithBatchStatus("completed"))

	draft := env.fx.PurchaseOrder("draft")
	env.fx.PurchaseOrderLine(draft, item.ID, "100", "0")
	partial := env.fx.PurchaseOrder("partially_received")
	env.fx.PurchaseOrderLine(partial, item.ID, "50", "30")
	acked := env.fx.PurchaseOrder("acknowledged")
	env.fx.PurchaseOrderLine(acked, item.ID, "5", "0")
	cancelled := env.fx.PurchaseOrder("cancelled")
	env.fx.PurchaseOrderLine(cancelled, item.ID, "40", "0")

	pos, err := env.positions.GetPosition(ctx, item.ID)
	require.NoError(t, err)

	assertDecimal(t, "20", pos.QuantityOnHand)
	assertDecimal(t, "8", pos.QuantityAllocated)
	assertDecimal(t, "12", pos.QuantityAvailable)
	assertDecimal(t, "25", pos.QuantityOnOrder)
	assertDecimal(t, "37", pos.QuantityProjected)
}

func TestPosition_AvailableMayBeNegative(t *testing.T) {
	env := newInventoryEnv(t)
	ctx := context.Background()

	item := env.fx.Item(testutil.WithReorderPoint("5"))
	env.fx.Lot(item.ID, "3")
	recipe := env.fx.Recipe("20", testutil.Ingredient(item.ID, "2.5"))
	env.fx.Batch(recipe, testutil.WithBatchSize("40"))

	pos, err := env.positions.GetPosition(ctx, item.ID)
	require.NoError(t, err)

	assertDecimal(t, "5", pos.QuantityAllocated)
	assertDecimal(t, "-2", pos.QuantityAvailable)
	assertDecimal(t, "-2", pos.QuantityProjected)
	assert.True(t, pos.BelowReorderPoint)
}

func TestPosition_ReorderPointUnset(t *testing.T) {
	env := newInventoryEnv(t)

	item := env.fx.Item()
	pos, err := env.positions.GetPosition(context.Background(), item.ID)
	require.NoError(t, err)

	assert.True(t, pos.QuantityOnHand.IsZero())
	assert.False(t, pos.BelowReorderPoint)
}

func TestPosition_UnknownItem(t *testing.T) {
	env := newInventoryEnv(t)

	_, err := env.positions.GetPosition(context.Background(), "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPosition_AllSkipsArchivedItems(t *testing.T) {
	env := newInventoryEnv(t)
	ctx := context.Background()

	hops := env.fx.Item(testutil.WithItemName("Cascade"))
	malt := env.fx.Item(testutil.WithItemName("Maris Otter"))
	old := env.fx.Item(testutil.WithItemName("Amber Malt"))
	env.fx.Lot(hops.ID, "2")
	env.fx.Lot(malt.ID, "200")
	require.NoError(t, env.items.ArchiveItem(ctx, old.ID))

	positions, err := env.positions.GetPositionAll(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, "Cascade", positions[0].ItemName)
	assertDecimal(t, "2", positions[0].QuantityOnHand)
	assert.Equal(t, "Maris Otter", positions[1].ItemName)
	assertDecimal(t, "200", positions[1].QuantityOnHand)
}

func TestScaledQuantity(t *testing.T) {
	assertDecimal(t, "15", service.ScaledQuantity(dec("30"), dec("50"), dec("100")))
	assertDecimal(t, "2.5", service.ScaledQuantity(dec("2.5"), dec("20"), dec("20")))
	assertDecimal(t, "3", service.ScaledQuantity(dec("3"), dec("10"), dec("0")))
}
