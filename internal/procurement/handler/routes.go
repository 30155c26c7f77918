package handler

import "github.com/go-chi/chi/v5"

// Routes mounts the procurement endpoints on r
func Routes(r chi.Router, h *PurchaseOrderHandler) {
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/transition", h.Transition)
		r.Post("/{id}/lines", h.AddLine)
		r.Put("/{id}/lines/{lineId}", h.UpdateLine)
		r.Delete("/{id}/lines/{lineId}", h.RemoveLine)
		r.Post("/lines/{lineId}/receive", h.ReceiveLine)
	})
}
