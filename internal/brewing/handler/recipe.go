package handler

import (
	"net/http"

	"github.com/brewops/brewops-backend/internal/brewing/repository"
	"github.com/brewops/brewops-backend/internal/brewing/service"
	"github.com/brewops/brewops-backend/pkg/httputil"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// RecipeHandler handles recipe endpoints
type RecipeHandler struct {
	service *service.RecipeService
	logger  *logger.Logger
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(svc *service.RecipeService, log *logger.Logger) *RecipeHandler {
	return &RecipeHandler{
		service: svc,
		logger:  log,
	}
}

// List lists recipes
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.RecipeFilter{
		Name:       r.URL.Query().Get("name"),
		LatestOnly: r.URL.Query().Get("latest") == "true",
	}

	recipes, err := h.service.ListRecipes(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.List(w, recipes)
}

// Get gets a recipe with its ingredients
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.service.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, recipe)
}

// Create creates a recipe
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.RecipeInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	recipe, err := h.service.CreateRecipe(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, recipe)
}

// NewVersion copies the recipe in the path into its next version
func (h *RecipeHandler) NewVersion(w http.ResponseWriter, r *http.Request) {
	var req service.RecipeVersionInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	recipe, err := h.service.NewRecipeVersion(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, recipe)
}

// Lineage lists the versions leading to the recipe in the path
func (h *RecipeHandler) Lineage(w http.ResponseWriter, r *http.Request) {
	chain, err := h.service.RecipeLineage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.List(w, chain)
}
