package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	brewrepo "github.com/brewops/brewops-backend/internal/brewing/repository"
	"github.com/brewops/brewops-backend/internal/sales/events"
	"github.com/brewops/brewops-backend/internal/sales/repository"
	"github.com/brewops/brewops-backend/internal/sales/service"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/messaging"
	"github.com/brewops/brewops-backend/pkg/metrics"
	"github.com/brewops/brewops-backend/pkg/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type salesEnv struct {
	fx        *testutil.Fixtures
	orders    *service.OrderService
	stock     *service.FinishedGoodsService
	orderRepo *repository.OrderRepository
	pub       *testutil.MockPublisher
	reg       *prometheus.Registry
}

func newSalesEnv(t *testing.T) *salesEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	log := logger.Nop()
	pub := testutil.NewMockPublisher()
	reg := prometheus.NewRegistry()

	orderRepo := repository.NewOrderRepository(db)
	fgRepo := repository.NewFinishedGoodsRepository(db)
	recipeRepo := brewrepo.NewRecipeRepository(db)

	return &salesEnv{
		fx: testutil.NewFixtures(t, db),
		orders: service.NewOrderService(db, orderRepo, fgRepo, recipeRepo,
			events.NewSalesEventPublisher(pub, log),
			metrics.NewLifecycle(reg),
			log,
		),
		stock:     service.NewFinishedGoodsService(db, fgRepo, recipeRepo, log),
		orderRepo: orderRepo,
		pub:       pub,
		reg:       reg,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got}, msgAndArgs...)...)
}

func rejections(t *testing.T, reg *prometheus.Registry, reason string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != "brewops_lifecycle_rejections_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "reason" && l.GetValue() == reason {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

// stockOf reads a finished goods row and checks the reservation bound
func (env *salesEnv) stockOf(t *testing.T, id string) *repository.FinishedGoods {
	t.Helper()
	fg, err := env.stock.GetFinishedGoods(context.Background(), id)
	require.NoError(t, err)
	assert.LessOrEqual(t, fg.QuantityReserved, fg.QuantityOnHand)
	assert.GreaterOrEqual(t, fg.QuantityReserved, 0)
	return fg
}

func TestOrder_CreateComputesTotals(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	recipeID := env.fx.Recipe("100")
	fgID := env.fx.FinishedGoods(recipeID, "keg_30l", 20, 0)

	o, err := env.orders.Create(ctx, service.OrderInput{
		CustomerName: "The Crown",
		TaxRate:      dec("0.2"),
		Lines: []service.OrderLineInput{
			{FinishedGoodsID: &fgID, Quantity: 2, UnitPrice: dec("95.50")},
			{Description: testutil.PtrString("Glassware"), Quantity: 1, UnitPrice: dec("100")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("SO-%d-001", time.Now().UTC().Year()), o.OrderNumber)
	assert.Equal(t, enums.OrderStatusDraft, o.Status)
	assert.True(t, testutil.Today().Equal(o.OrderDate))
	require.Len(t, o.Lines, 2)
	require.NotNil(t, o.Lines[0].RecipeID)
	assert.Equal(t, recipeID, *o.Lines[0].RecipeID)
	assert.Equal(t, "keg_30l", *o.Lines[0].Format)
	assertDecimal(t, "191", o.Lines[0].LineTotal)
	assertDecimal(t, "291", o.Subtotal)
	assertDecimal(t, "58.2", o.Tax)
	assertDecimal(t, "349.2", o.Total)

	other := env.fx.Recipe("50")
	_, err = env.orders.Create(ctx, service.OrderInput{
		CustomerName: "The Crown",
		Lines:        []service.OrderLineInput{{RecipeID: &other, FinishedGoodsID: &fgID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	missing := "missing"
	_, err = env.orders.Create(ctx, service.OrderInput{
		CustomerName: "The Crown",
		Lines:        []service.OrderLineInput{{RecipeID: &missing, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestOrder_ConfirmGuards(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	recipeID := env.fx.Recipe("100")
	delivery := testutil.WithDeliveryDate(testutil.Today().AddDate(0, 0, 7))

	empty := env.fx.Order("draft", delivery)
	_, err := env.orders.Transition(ctx, empty.ID, enums.OrderStatusConfirmed)
	assert.True(t, errors.Is(err, errors.ErrGuardViolation))
	assert.Contains(t, err.Error(), "has no lines")

	unnamed := env.fx.Order("draft", delivery)
	env.fx.OrderLine(unnamed.ID, 1, testutil.ForProduct(recipeID, "keg_30l"))
	env.fx.OrderLine(unnamed.ID, 1)
	_, err = env.orders.Transition(ctx, unnamed.ID, enums.OrderStatusConfirmed)
	assert.True(t, errors.Is(err, errors.ErrGuardViolation))
	assert.Contains(t, err.Error(), "line 2")

	undated := env.fx.Order("draft")
	env.fx.OrderLine(undated.ID, 1, testutil.ForProduct(recipeID, "keg_30l"))
	_, err = env.orders.Transition(ctx, undated.ID, enums.OrderStatusConfirmed)
	assert.True(t, errors.Is(err, errors.ErrGuardViolation))
	assert.Contains(t, err.Error(), "delivery date")
	assert.Equal(t, float64(3), rejections(t, env.reg, errors.CodeGuardViolation))

	ready := env.fx.Order("draft", delivery)
	env.fx.OrderLine(ready.ID, 1, testutil.ForProduct(recipeID, "keg_30l"))
	confirmed, err := env.orders.Transition(ctx, ready.ID, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, confirmed.Status)
	assert.Equal(t, 2, confirmed.Version)

	published := env.pub.OfType(messaging.EventOrderStatusChanged)
	require.Len(t, published, 1)
	payload := published[0].Payload.(messaging.StatusChangedEvent)
	assert.Equal(t, "draft", payload.FromStatus)
	assert.Equal(t, "confirmed", payload.ToStatus)
}

func TestOrder_PickingReservesStock(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	recipeID := env.fx.Recipe("100")
	fgID := env.fx.FinishedGoods(recipeID, "keg_30l", 10, 0)
	o := env.fx.Order("confirmed")
	env.fx.OrderLine(o.ID, 10, testutil.ForProduct(recipeID, "keg_30l"), testutil.FromStock(fgID))

	picked, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusPicking)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPicking, picked.Status)

	fg := env.stockOf(t, fgID)
	assert.Equal(t, 10, fg.QuantityReserved)
	assert.Equal(t, 0, fg.Available())

	_, err = env.orders.Transition(ctx, o.ID, enums.OrderStatusPicking)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	assert.Equal(t, 10, env.stockOf(t, fgID).QuantityReserved)
}

func TestOrder_PickingNeedsAvailableStock(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	recipeID := env.fx.Recipe("100")
	product := testutil.ForProduct(recipeID, "keg_30l")

	t.Run("short", func(t *testing.T) {
		fgID := env.fx.FinishedGoods(recipeID, "keg_30l", 10, 4)
		o := env.fx.Order("confirmed")
		env.fx.OrderLine(o.ID, 8, product, testutil.FromStock(fgID))

		_, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusPicking)
		assert.Equal(t, errors.CodeInsufficientStock, errors.CodeOf(err))
		assert.Contains(t, err.Error(), "line 1 needs 8 keg_30l, only 6 available")
		assert.Equal(t, 4, env.stockOf(t, fgID).QuantityReserved)
	})

	t.Run("unlinked", func(t *testing.T) {
		o := env.fx.Order("confirmed")
		env.fx.OrderLine(o.ID, 1, product)

		_, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusDispatched)
		assert.Equal(t, errors.CodeInsufficientStock, errors.CodeOf(err))
		assert.Contains(t, err.Error(), "line 1 is not linked")
	})

	t.Run("lines share a row", func(t *testing.T) {
		fgID := env.fx.FinishedGoods(recipeID, "keg_30l", 10, 0)
		o := env.fx.Order("confirmed")
		env.fx.OrderLine(o.ID, 6, product, testutil.FromStock(fgID))
		env.fx.OrderLine(o.ID, 6, product, testutil.FromStock(fgID))

		_, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusPicking)
		assert.Equal(t, errors.CodeInsufficientStock, errors.CodeOf(err))
		assert.Contains(t, err.Error(), "line 2 needs 6 keg_30l, only 4 available")
		assert.Equal(t, 0, env.stockOf(t, fgID).QuantityReserved)
	})

	t.Run("guard runs before any write", func(t *testing.T) {
		enough := env.fx.FinishedGoods(recipeID, "keg_30l", 10, 0)
		short := env.fx.FinishedGoods(recipeID, "can_440ml", 1, 0)
		o := env.fx.Order("confirmed")
		env.fx.OrderLine(o.ID, 5, product, testutil.FromStock(enough))
		env.fx.OrderLine(o.ID, 2, testutil.ForProduct(recipeID, "can_440ml"), testutil.FromStock(short))

		_, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusPicking)
		assert.Equal(t, errors.CodeInsufficientStock, errors.CodeOf(err))
		assert.Equal(t, 0, env.stockOf(t, enough).QuantityReserved)

		stored, err := env.orders.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	})

	assert.Equal(t, float64(4), rejections(t, env.reg, errors.CodeInsufficientStock))
	env.pub.AssertNoEvents(t)
}

func TestOrder_DispatchDepletesStock(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	recipeID := env.fx.Recipe("100")
	product := testutil.ForProduct(recipeID, "keg_30l")

	t.Run("from picking", func(t *testing.T) {
		fgID := env.fx.FinishedGoods(recipeID, "keg_30l", 10, 0)
		o := env.fx.Order("confirmed")
		env.fx.OrderLine(o.ID, 4, product, testutil.FromStock(fgID))

		_, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusPicking)
		require.NoError(t, err)
		dispatched, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusDispatched)
		require.NoError(t, err)
		assert.NotNil(t, dispatched.DispatchedAt)

		fg := env.stockOf(t, fgID)
		assert.Equal(t, 6, fg.QuantityOnHand)
		assert.Equal(t, 0, fg.QuantityReserved)
	})

	t.Run("straight from confirmed", func(t *testing.T) {
		fgID := env.fx.FinishedGoods(recipeID, "keg_30l", 10, 3)
		o := env.fx.Order("confirmed")
		env.fx.OrderLine(o.ID, 5, product, testutil.FromStock(fgID))

		_, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusDispatched)
		require.NoError(t, err)

		fg := env.stockOf(t, fgID)
		assert.Equal(t, 5, fg.QuantityOnHand)
		assert.Equal(t, 3, fg.QuantityReserved)
	})
}

func TestOrder_DeliveredToPaid(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	o := env.fx.Order("dispatched")

	delivered, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)

	invoiced, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusInvoiced)
	require.NoError(t, err)
	require.NotNil(t, invoiced.InvoiceNumber)
	assert.Equal(t, fmt.Sprintf("INV-%d-001", time.Now().UTC().Year()), *invoiced.InvoiceNumber)
	assert.NotNil(t, invoiced.InvoicedAt)

	second := env.fx.Order("delivered")
	next, err := env.orders.Transition(ctx, second.ID, enums.OrderStatusInvoiced)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%d-002", time.Now().UTC().Year()), *next.InvoiceNumber)

	paid, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusPaid)
	require.NoError(t, err)
	assert.NotNil(t, paid.PaidAt)

	for _, to := range []enums.OrderStatus{
		enums.OrderStatusDraft, enums.OrderStatusConfirmed, enums.OrderStatusDispatched,
		enums.OrderStatusInvoiced, enums.OrderStatusCancelled,
	} {
		_, err := env.orders.Transition(ctx, o.ID, to)
		assert.True(t, errors.Is(err, errors.ErrInvalidTransition), to.String())
	}

	_, err = env.orders.Transition(ctx, env.fx.Order("dispatched").ID, enums.OrderStatusCancelled)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}

func TestOrder_CancelReleasesReservation(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	recipeID := env.fx.Recipe("100")
	product := testutil.ForProduct(recipeID, "keg_30l")

	fgID := env.fx.FinishedGoods(recipeID, "keg_30l", 12, 2)
	picking := env.fx.Order("confirmed")
	env.fx.OrderLine(picking.ID, 5, product, testutil.FromStock(fgID))
	_, err := env.orders.Transition(ctx, picking.ID, enums.OrderStatusPicking)
	require.NoError(t, err)
	assert.Equal(t, 7, env.stockOf(t, fgID).QuantityReserved)

	_, err = env.orders.Transition(ctx, picking.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	fg := env.stockOf(t, fgID)
	assert.Equal(t, 2, fg.QuantityReserved)
	assert.Equal(t, 12, fg.QuantityOnHand)

	confirmed := env.fx.Order("confirmed")
	env.fx.OrderLine(confirmed.ID, 3, product, testutil.FromStock(fgID))
	cancelled, err := env.orders.Transition(ctx, confirmed.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 2, env.stockOf(t, fgID).QuantityReserved)

	_, err = env.orders.Transition(ctx, picking.ID, enums.OrderStatusConfirmed)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}

func TestOrder_ReleaseNeverGoesNegative(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	recipeID := env.fx.Recipe("100")
	fgID := env.fx.FinishedGoods(recipeID, "keg_30l", 10, 3)
	o := env.fx.Order("picking")
	env.fx.OrderLine(o.ID, 5, testutil.ForProduct(recipeID, "keg_30l"), testutil.FromStock(fgID))

	_, err := env.orders.Transition(ctx, o.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 0, env.stockOf(t, fgID).QuantityReserved)
}

func TestOrder_LineEditing(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	recipeID := env.fx.Recipe("100")
	format := "keg_30l"

	draft := env.fx.Order("draft")
	o, err := env.orders.AddLine(ctx, draft.ID, service.OrderLineInput{Quantity: 3, UnitPrice: dec("10")})
	require.NoError(t, err)
	require.Len(t, o.Lines, 1)
	assertDecimal(t, "30", o.Total)

	o, err = env.orders.UpdateLine(ctx, draft.ID, o.Lines[0].ID, service.OrderLineInput{
		RecipeID:  &recipeID,
		Format:    &format,
		Quantity:  4,
		UnitPrice: dec("10"),
	})
	require.NoError(t, err)
	assertDecimal(t, "40", o.Total)

	confirmed := env.fx.Order("confirmed")
	lineID := env.fx.OrderLine(confirmed.ID, 1, testutil.ForProduct(recipeID, format))
	_, err = env.orders.AddLine(ctx, confirmed.ID, service.OrderLineInput{Quantity: 1})
	assert.True(t, errors.Is(err, errors.ErrGuardViolation))
	_, err = env.orders.RemoveLine(ctx, confirmed.ID, lineID)
	assert.True(t, errors.Is(err, errors.ErrGuardViolation))

	o, err = env.orders.AddLine(ctx, confirmed.ID, service.OrderLineInput{RecipeID: &recipeID, Format: &format, Quantity: 2, UnitPrice: dec("50")})
	require.NoError(t, err)
	require.Len(t, o.Lines, 2)
	o, err = env.orders.RemoveLine(ctx, confirmed.ID, lineID)
	require.NoError(t, err)
	assert.Len(t, o.Lines, 1)
	assertDecimal(t, "100", o.Total)

	_, err = env.orders.RemoveLine(ctx, draft.ID, o.Lines[0].ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	for _, status := range []string{"picking", "dispatched", "paid", "cancelled"} {
		locked := env.fx.Order(status)
		_, err := env.orders.AddLine(ctx, locked.ID, service.OrderLineInput{Quantity: 1})
		assert.Equal(t, errors.CodeInvalidState, errors.CodeOf(err), status)
	}
}

func TestFinishedGoods_Adjust(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	recipeID := env.fx.Recipe("100")

	fg, err := env.stock.CreateFinishedGoods(ctx, service.FinishedGoodsInput{
		RecipeID:       recipeID,
		Format:         "can_440ml",
		QuantityOnHand: 24,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, fg.QuantityReserved)

	_, err = env.stock.CreateFinishedGoods(ctx, service.FinishedGoodsInput{RecipeID: "missing", Format: "can_440ml"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	fg, err = env.stock.AdjustFinishedGoods(ctx, fg.ID, service.AdjustInput{Delta: 48})
	require.NoError(t, err)
	assert.Equal(t, 72, fg.QuantityOnHand)

	reservedID := env.fx.FinishedGoods(recipeID, "keg_30l", 10, 8)
	_, err = env.stock.AdjustFinishedGoods(ctx, reservedID, service.AdjustInput{Delta: -3})
	assert.True(t, errors.Is(err, errors.ErrInvariantViolation))
	assert.Equal(t, 10, env.stockOf(t, reservedID).QuantityOnHand)

	_, err = env.stock.AdjustFinishedGoods(ctx, reservedID, service.AdjustInput{Delta: -2, Reason: testutil.PtrString("damaged")})
	require.NoError(t, err)
	assert.Equal(t, 8, env.stockOf(t, reservedID).QuantityOnHand)

	rows, err := env.stock.ListFinishedGoods(ctx, repository.FinishedGoodsFilter{Format: "keg_30l"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestOrderRepository_UpdateDetectsStaleVersion(t *testing.T) {
	env := newSalesEnv(t)
	ctx := context.Background()
	id := env.fx.Order("draft").ID

	a, err := env.orderRepo.GetByID(ctx, id)
	require.NoError(t, err)
	b, err := env.orderRepo.GetByID(ctx, id)
	require.NoError(t, err)

	a.CustomerName = "The Anchor"
	require.NoError(t, env.orderRepo.Update(ctx, a))

	b.CustomerName = "The Swan"
	err = env.orderRepo.Update(ctx, b)
	assert.Equal(t, errors.CodeConcurrentModification, errors.CodeOf(err))
}
