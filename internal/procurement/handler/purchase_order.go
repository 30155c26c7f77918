package handler

import (
	"net/http"

	"github.com/brewops/brewops-backend/internal/procurement/service"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/httputil"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// StatusRequest is the body of the transition endpoint
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PurchaseOrderHandler handles purchase order endpoints
type PurchaseOrderHandler struct {
	service *service.PurchaseOrderService
	logger  *logger.Logger
}

// NewPurchaseOrderHandler creates a new purchase order handler
func NewPurchaseOrderHandler(svc *service.PurchaseOrderService, log *logger.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		service: svc,
		logger:  log,
	}
}

// List lists purchase orders
func (h *PurchaseOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.PageParams(r)
	status := enums.PurchaseOrderStatus(r.URL.Query().Get("status"))

	orders, total, err := h.service.List(r.Context(), status, database.Page{Page: page, PerPage: perPage})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Paginated(w, orders, page, perPage, total)
}

// Get gets a purchase order with its lines
func (h *PurchaseOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	po, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, po)
}

// Create creates a draft purchase order
func (h *PurchaseOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.PurchaseOrderInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	po, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, po)
}

// Transition changes the status of a purchase order
func (h *PurchaseOrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	to, err := enums.ParsePurchaseOrderStatus(req.Status)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{"status": err.Error()}))
		return
	}

	po, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, po)
}

// AddLine adds a line to a draft order
func (h *PurchaseOrderHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req service.LineInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	po, err := h.service.AddLine(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, po)
}

// UpdateLine replaces a line of a draft order
func (h *PurchaseOrderHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req service.LineInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	po, err := h.service.UpdateLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, po)
}

// RemoveLine removes a line from a draft order
func (h *PurchaseOrderHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	po, err := h.service.RemoveLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, po)
}

// ReceiveLine books goods against the line in the path
func (h *PurchaseOrderHandler) ReceiveLine(w http.ResponseWriter, r *http.Request) {
	var req service.ReceiveLineInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	req.PurchaseOrderLineID = chi.URLParam(r, "lineId")
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.ReceiveLine(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, result)
}
