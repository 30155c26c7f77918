package handler

import (
	"net/http"

	"github.com/brewops/brewops-backend/internal/brewing/service"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/httputil"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// VesselHandler handles vessel endpoints
type VesselHandler struct {
	service *service.VesselService
	logger  *logger.Logger
}

// NewVesselHandler creates a new vessel handler
func NewVesselHandler(svc *service.VesselService, log *logger.Logger) *VesselHandler {
	return &VesselHandler{
		service: svc,
		logger:  log,
	}
}

// List lists vessels
func (h *VesselHandler) List(w http.ResponseWriter, r *http.Request) {
	status := enums.VesselStatus(r.URL.Query().Get("status"))

	vessels, err := h.service.ListVessels(r.Context(), status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.List(w, vessels)
}

// Get gets a vessel by ID
func (h *VesselHandler) Get(w http.ResponseWriter, r *http.Request) {
	vessel, err := h.service.GetVessel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, vessel)
}

// Create registers a vessel
func (h *VesselHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.VesselInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	vessel, err := h.service.CreateVessel(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, vessel)
}

// SetStatus changes the status of an idle vessel
func (h *VesselHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	vessel, err := h.service.SetVesselStatus(r.Context(), chi.URLParam(r, "id"), enums.VesselStatus(req.Status))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, vessel)
}
