package handler

import (
	"net/http"

	"github.com/brewops/brewops-backend/internal/inventory/service"
	"github.com/brewops/brewops-backend/pkg/httputil"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// PositionHandler handles stock position endpoints
type PositionHandler struct {
	service *service.PositionService
	logger  *logger.Logger
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(svc *service.PositionService, log *logger.Logger) *PositionHandler {
	return &PositionHandler{
		service: svc,
		logger:  log,
	}
}

// Get returns the position of the item in the path
func (h *PositionHandler) Get(w http.ResponseWriter, r *http.Request) {
	position, err := h.service.GetPosition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, position)
}

// List returns the positions of all active items
func (h *PositionHandler) List(w http.ResponseWriter, r *http.Request) {
	positions, err := h.service.GetPositionAll(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.List(w, positions)
}
