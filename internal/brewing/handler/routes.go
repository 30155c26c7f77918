package handler

import "github.com/go-chi/chi/v5"

// Routes mounts the brewing endpoints on r
func Routes(r chi.Router, recipes *RecipeHandler, vessels *VesselHandler, batches *BatchHandler) {
	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", recipes.List)
		r.Post("/", recipes.Create)
		r.Get("/{id}", recipes.Get)
		r.Post("/{id}/versions", recipes.NewVersion)
		r.Get("/{id}/lineage", recipes.Lineage)
	})

	r.Route("/vessels", func(r chi.Router) {
		r.Get("/", vessels.List)
		r.Post("/", vessels.Create)
		r.Get("/{id}", vessels.Get)
		r.Put("/{id}/status", vessels.SetStatus)
	})

	r.Route("/batches", func(r chi.Router) {
		r.Get("/", batches.List)
		r.Post("/", batches.Create)
		r.Get("/{id}", batches.Get)
		r.Post("/{id}/transition", batches.Transition)
		r.Put("/{id}/vessel", batches.AssignVessel)
		r.Get("/{id}/fermentation", batches.ListFermentation)
		r.Post("/{id}/fermentation", batches.AddFermentationEntry)
		r.Get("/{id}/consumptions", batches.ListConsumptions)
		r.Post("/{id}/consumptions", batches.RecordConsumption)
	})
}
