package handler

import (
	"net/http"

	"github.com/brewops/brewops-backend/internal/inventory/repository"
	"github.com/brewops/brewops-backend/internal/inventory/service"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/httputil"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// LedgerHandler handles lot and stock movement endpoints
type LedgerHandler struct {
	service *service.LedgerService
	logger  *logger.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(svc *service.LedgerService, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: svc,
		logger:  log,
	}
}

// ReceiveLot books goods into a new lot of the item in the path
func (h *LedgerHandler) ReceiveLot(w http.ResponseWriter, r *http.Request) {
	var req service.ReceiveLotInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	req.ItemID = chi.URLParam(r, "id")
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.ReceiveLot(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, result)
}

// ListLots lists the lots of the item in the path
func (h *LedgerHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	includeEmpty := r.URL.Query().Get("include_empty") == "true"

	lots, err := h.service.ListLots(r.Context(), chi.URLParam(r, "id"), includeEmpty)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.List(w, lots)
}

// GetLot gets a lot by ID
func (h *LedgerHandler) GetLot(w http.ResponseWriter, r *http.Request) {
	lot, err := h.service.GetLot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// ReconcileLot compares a lot's quantity against its movements
func (h *LedgerHandler) ReconcileLot(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.ReconcileLot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// RecordMovement records a manual stock movement
func (h *LedgerHandler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	var req service.MovementInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.RecordMovement(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, result)
}

// ListMovements lists stock movements
func (h *LedgerHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := httputil.PageParams(r)
	filter := repository.MovementFilter{
		ItemID:        q.Get("item_id"),
		LotID:         q.Get("lot_id"),
		ReferenceType: q.Get("reference_type"),
		ReferenceID:   q.Get("reference_id"),
		Page:          database.Page{Page: page, PerPage: perPage},
	}

	movements, total, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Paginated(w, movements, page, perPage, total)
}
