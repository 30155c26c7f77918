package handler

import (
	"net/http"

	"github.com/brewops/brewops-backend/internal/sales/repository"
	"github.com/brewops/brewops-backend/internal/sales/service"
	"github.com/brewops/brewops-backend/pkg/httputil"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// FinishedGoodsHandler handles finished goods endpoints
type FinishedGoodsHandler struct {
	service *service.FinishedGoodsService
	logger  *logger.Logger
}

// NewFinishedGoodsHandler creates a new finished goods handler
func NewFinishedGoodsHandler(svc *service.FinishedGoodsService, log *logger.Logger) *FinishedGoodsHandler {
	return &FinishedGoodsHandler{
		service: svc,
		logger:  log,
	}
}

// List lists finished goods, optionally by recipe and format
func (h *FinishedGoodsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.FinishedGoodsFilter{
		RecipeID: r.URL.Query().Get("recipe_id"),
		Format:   r.URL.Query().Get("format"),
	}

	rows, err := h.service.ListFinishedGoods(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.List(w, rows)
}

// Get gets a finished goods row
func (h *FinishedGoodsHandler) Get(w http.ResponseWriter, r *http.Request) {
	fg, err := h.service.GetFinishedGoods(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, fg)
}

// Create registers packaged product
func (h *FinishedGoodsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.FinishedGoodsInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	fg, err := h.service.CreateFinishedGoods(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, fg)
}

// Adjust changes the on hand count
func (h *FinishedGoodsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req service.AdjustInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	fg, err := h.service.AdjustFinishedGoods(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, fg)
}
