package handler

import (
	"net/http"

	"github.com/brewops/brewops-backend/internal/sales/service"
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

// OrderHandler handles sales order endpoints
type OrderHandler struct {
	service *service.OrderService
	logger  *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(svc *service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  log,
	}
}

// List lists orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.PageParams(r)
	status := enums.OrderStatus(r.URL.Query().Get("status"))

	orders, total, err := h.service.List(r.Context(), status, database.Page{Page: page, PerPage: perPage})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Paginated(w, orders, page, perPage, total)
}

// Get gets an order with its lines
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, o)
}

// Create creates a draft order
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.OrderInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	o, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, o)
}

// Transition changes the status of an order
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	to, err := enums.ParseOrderStatus(req.Status)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{"status": err.Error()}))
		return
	}

	o, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, o)
}

// AddLine adds a line to an order
func (h *OrderHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req service.OrderLineInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	o, err := h.service.AddLine(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, o)
}

// UpdateLine replaces a line of an order
func (h *OrderHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req service.OrderLineInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	o, err := h.service.UpdateLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, o)
}

// RemoveLine removes a line from an order
func (h *OrderHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.RemoveLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, o)
}
