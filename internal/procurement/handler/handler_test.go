package handler_test

import (
	"net/http"
	"testing"

	invrepo "github.com/brewops/brewops-backend/internal/inventory/repository"
	invservice "github.com/brewops/brewops-backend/internal/inventory/service"
	"github.com/brewops/brewops-backend/internal/procurement/handler"
	"github.com/brewops/brewops-backend/internal/procurement/repository"
	"github.com/brewops/brewops-backend/internal/procurement/service"
	"github.com/brewops/brewops-backend/pkg/enums"
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

	itemRepo := invrepo.NewItemRepository(db)
	ledger := invservice.NewLedgerService(db, itemRepo, invrepo.NewLotRepository(db),
		invrepo.NewMovementRepository(db), nil, nil, log)
	orders := service.NewPurchaseOrderService(db, repository.NewPurchaseOrderRepository(db), itemRepo,
		ledger, nil, nil, log)

	r := chi.NewRouter()
	handler.Routes(r, handler.NewPurchaseOrderHandler(orders, log))
	return r, testutil.NewFixtures(t, db)
}

func TestProcurementAPI_OrderToReceipt(t *testing.T) {
	r, fx := newTestRouter(t)
	malt := fx.Item()

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/purchase-orders", map[string]any{
		"supplier_name": "Crisp Maltings",
		"tax_rate":      "0.1",
		"lines": []map[string]any{
			{"item_id": malt.ID, "quantity_ordered": "50", "unit_cost": "1.20"},
		},
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	var po repository.PurchaseOrder
	testutil.ParseResponse(t, rr, &po)
	require.Len(t, po.Lines, 1)
	assert.True(t, decimal.NewFromInt(66).Equal(po.Total), po.Total.String())
	lineID := po.Lines[0].ID

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/purchase-orders/lines/"+lineID+"/receive", map[string]any{
		"quantity_received": "10",
		"lot_number":        "CM-1",
	}))
	testutil.AssertErrorCode(t, rr, http.StatusUnprocessableEntity, errors.CodeInvalidState)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/purchase-orders/"+po.ID+"/transition", map[string]any{
		"status": "sent",
	}))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/purchase-orders/"+po.ID+"/lines", map[string]any{
		"item_id":          malt.ID,
		"quantity_ordered": "5",
	}))
	testutil.AssertErrorCode(t, rr, http.StatusUnprocessableEntity, errors.CodeInvalidState)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/purchase-orders/lines/"+lineID+"/receive", map[string]any{
		"quantity_received": "60",
		"lot_number":        "CM-1",
	}))
	testutil.AssertErrorCode(t, rr, http.StatusUnprocessableEntity, errors.CodeOverReceipt)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/purchase-orders/lines/"+lineID+"/receive", map[string]any{
		"quantity_received": "50",
		"lot_number":        "CM-1",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	var result service.ReceiveResult
	testutil.ParseResponse(t, rr, &result)
	assert.Equal(t, enums.PurchaseOrderStatusReceived, result.NewStatus)
	assert.NotEmpty(t, result.LotID)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/purchase-orders?status=received", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var orders []repository.PurchaseOrder
	testutil.ParseResponse(t, rr, &orders)
	assert.Len(t, orders, 1)
}

func TestProcurementAPI_PurchaseOrdersArePaged(t *testing.T) {
	r, fx := newTestRouter(t)
	fx.PurchaseOrder("draft")
	fx.PurchaseOrder("sent")
	fx.PurchaseOrder("sent")

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/purchase-orders?status=sent&per_page=1", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var orders []repository.PurchaseOrder
	resp := testutil.ParseResponse(t, rr, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, enums.PurchaseOrderStatusSent, orders[0].Status)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, testutil.APIMeta{Page: 1, PerPage: 1, Total: 2, TotalPages: 2}, *resp.Meta)
}

func TestProcurementAPI_RequestErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/purchase-orders", map[string]any{
		"tax_rate": "0.1",
	}))
	testutil.AssertErrorCode(t, rr, http.StatusBadRequest, errors.CodeValidation)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/purchase-orders", map[string]any{
		"supplier_name": "Crisp Maltings",
		"discount":      "5",
	}))
	testutil.AssertErrorCode(t, rr, http.StatusBadRequest, errors.CodeBadRequest)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/purchase-orders?status=lost", nil))
	testutil.AssertErrorCode(t, rr, http.StatusBadRequest, errors.CodeValidation)

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/purchase-orders/missing/transition", map[string]any{
		"status": "sent",
	}))
	testutil.AssertErrorCode(t, rr, http.StatusNotFound, errors.CodeNotFound)
}
