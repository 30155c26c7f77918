package handler

import (
	"net/http"

	"github.com/brewops/brewops-backend/internal/brewing/repository"
	"github.com/brewops/brewops-backend/internal/brewing/service"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/httputil"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// StatusRequest is the body of status change endpoints
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AssignVesselRequest is the body of the vessel assignment endpoint
type AssignVesselRequest struct {
	VesselID string `json:"vessel_id" validate:"required"`
}

// BatchHandler handles brew batch endpoints
type BatchHandler struct {
	service *service.BatchService
	logger  *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.BatchService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		logger:  log,
	}
}

// List lists batches
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.PageParams(r)
	filter := repository.BatchFilter{
		Status:   enums.BatchStatus(r.URL.Query().Get("status")),
		RecipeID: r.URL.Query().Get("recipe_id"),
		Page:     database.Page{Page: page, PerPage: perPage},
	}

	batches, total, err := h.service.ListBatches(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Paginated(w, batches, page, perPage, total)
}

// Get gets a batch by ID
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Create plans a batch
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.BatchInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.CreateBatch(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// Transition moves a batch to the requested status
func (h *BatchHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	to, err := enums.ParseBatchStatus(req.Status)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{"status": err.Error()}))
		return
	}

	batch, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// AssignVessel assigns a vessel to a batch
func (h *BatchHandler) AssignVessel(w http.ResponseWriter, r *http.Request) {
	var req AssignVesselRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.AssignVessel(r.Context(), chi.URLParam(r, "id"), req.VesselID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// AddFermentationEntry logs a fermentation reading
func (h *BatchHandler) AddFermentationEntry(w http.ResponseWriter, r *http.Request) {
	var req service.FermentationInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	entry, err := h.service.AddFermentationEntry(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, entry)
}

// ListFermentation lists a batch's fermentation log
func (h *BatchHandler) ListFermentation(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListFermentation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.List(w, entries)
}

// RecordConsumption draws stock from a lot into the batch
func (h *BatchHandler) RecordConsumption(w http.ResponseWriter, r *http.Request) {
	var req service.ConsumptionInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	consumption, err := h.service.RecordConsumption(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, consumption)
}

// ListConsumptions lists what a batch consumed
func (h *BatchHandler) ListConsumptions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListConsumptions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.List(w, rows)
}
