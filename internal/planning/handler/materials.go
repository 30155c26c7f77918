package handler

import (
	"net/http"

	"github.com/brewops/brewops-backend/internal/planning/service"
	"github.com/brewops/brewops-backend/pkg/httputil"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// MaterialsHandler handles planning endpoints
type MaterialsHandler struct {
	service *service.MaterialsService
	logger  *logger.Logger
}

// NewMaterialsHandler creates a new materials handler
func NewMaterialsHandler(svc *service.MaterialsService, log *logger.Logger) *MaterialsHandler {
	return &MaterialsHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the planning endpoints on r
func Routes(r chi.Router, h *MaterialsHandler) {
	r.Get("/planning/materials", h.Requirements)
}

// Requirements lists material needs of planned batches
func (h *MaterialsHandler) Requirements(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.GetMaterialsRequirements(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.List(w, reqs)
}
