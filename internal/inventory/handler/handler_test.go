package handler_test

import (
	"net/http"
	"testing"

	"github.com/brewops/brewops-backend/internal/inventory/handler"
	"github.com/brewops/brewops-backend/internal/inventory/repository"
	"github.com/brewops/brewops-backend/internal/inventory/service"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	log := logger.Nop()

	itemRepo := repository.NewItemRepository(db)
	items := service.NewItemService(itemRepo, log)
	ledger := service.NewLedgerService(db, itemRepo, repository.NewLotRepository(db),
		repository.NewMovementRepository(db), nil, nil, log)
	positions := service.NewPositionService(itemRepo, repository.NewPositionRepository(db), log)

	r := chi.NewRouter()
	handler.Routes(r,
		handler.NewItemHandler(items, log),
		handler.NewLedgerHandler(ledger, log),
		handler.NewPositionHandler(positions, log),
	)
	return r, testutil.NewFixtures(t, db)
}

func TestInventoryAPI_ReceiveAndConsume(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/inventory/items", map[string]any{
		"name":          "Maris Otter",
		"category":      "grain",
		"unit":          "kg",
		"reorder_point": "50",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	var item repository.InventoryItem
	testutil.ParseResponse(t, rr, &item)
	require.NotEmpty(t, item.ID)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/inventory/items/"+item.ID+"/lots", map[string]any{
		"lot_number": "MO-2291",
		"quantity":   "40",
		"unit_cost":  "1.10",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	var received service.ReceiveLotResult
	testutil.ParseResponse(t, rr, &received)
	require.NotNil(t, received.Lot)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/inventory/movements", map[string]any{
		"lot_id":        received.Lot.ID,
		"movement_type": "consumed",
		"quantity":      "-41",
	}))
	testutil.AssertErrorCode(t, rr, http.StatusUnprocessableEntity, errors.CodeInvariantViolation)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/inventory/movements", map[string]any{
		"lot_id":        received.Lot.ID,
		"movement_type": "consumed",
		"quantity":      "-15",
		"reason":        "test mash",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/inventory/items/"+item.ID+"/position", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var pos service.InventoryPosition
	testutil.ParseResponse(t, rr, &pos)
	assert.True(t, decimal.NewFromInt(25).Equal(pos.QuantityOnHand), pos.QuantityOnHand.String())
	assert.True(t, pos.BelowReorderPoint)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/inventory/lots/"+received.Lot.ID+"/reconcile", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var rec service.Reconciliation
	testutil.ParseResponse(t, rr, &rec)
	assert.True(t, rec.Balanced)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/inventory/movements?lot_id="+received.Lot.ID, nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var movements []repository.StockMovement
	testutil.ParseResponse(t, rr, &movements)
	assert.Len(t, movements, 2)
}

func TestInventoryAPI_ValidationErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/inventory/items", map[string]any{
		"name":     "Mystery",
		"category": "spaceship",
		"unit":     "kg",
	}))
	testutil.AssertErrorCode(t, rr, http.StatusBadRequest, errors.CodeValidation)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/inventory/items", map[string]any{
		"name":   "Mystery",
		"colour": "red",
	}))
	testutil.AssertErrorCode(t, rr, http.StatusBadRequest, errors.CodeBadRequest)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/inventory/items/missing/position", nil))
	testutil.AssertErrorCode(t, rr, http.StatusNotFound, errors.CodeNotFound)
}

func TestInventoryAPI_MovementsArePaged(t *testing.T) {
	r, fx := newTestRouter(t)
	item := fx.Item()
	for range 5 {
		fx.Lot(item.ID, "10")
	}
	fx.Lot(fx.Item(testutil.WithItemName("Saaz")).ID, "3")

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/inventory/movements?item_id="+item.ID+"&page=2&per_page=2", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var movements []repository.StockMovement
	resp := testutil.ParseResponse(t, rr, &movements)
	assert.Len(t, movements, 2)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, testutil.APIMeta{Page: 2, PerPage: 2, Total: 5, TotalPages: 3}, *resp.Meta)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/inventory/movements?item_id="+item.ID+"&page=3&per_page=2", nil))
	testutil.ParseResponse(t, rr, &movements)
	assert.Len(t, movements, 1)

	// Out-of-range per_page falls back to the default page size.
	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/inventory/movements?per_page=1000", nil))
	resp = testutil.ParseResponse(t, rr, &movements)
	assert.Len(t, movements, 6)
	assert.Equal(t, testutil.APIMeta{Page: 1, PerPage: 20, Total: 6, TotalPages: 1}, *resp.Meta)
}

func TestInventoryAPI_ListAndArchive(t *testing.T) {
	r, fx := newTestRouter(t)
	kept := fx.Item(testutil.WithItemName("Citra"))
	gone := fx.Item(testutil.WithItemName("Brewers Gold"))

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/inventory/items/"+gone.ID+"/archive", nil))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/inventory/positions", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var positions []service.InventoryPosition
	testutil.ParseResponse(t, rr, &positions)
	require.Len(t, positions, 1)
	assert.Equal(t, kept.ID, positions[0].ItemID)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/inventory/items?include_archived=true", nil))
	var items []repository.InventoryItem
	testutil.ParseResponse(t, rr, &items)
	assert.Len(t, items, 2)
}
