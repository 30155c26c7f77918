package handler

import "github.com/go-chi/chi/v5"

// Routes mounts the sales endpoints on r
func Routes(r chi.Router, orders *OrderHandler, stock *FinishedGoodsHandler) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", orders.List)
		r.Post("/", orders.Create)
		r.Get("/{id}", orders.Get)
		r.Post("/{id}/transition", orders.Transition)
		r.Post("/{id}/lines", orders.AddLine)
		r.Put("/{id}/lines/{lineId}", orders.UpdateLine)
		r.Delete("/{id}/lines/{lineId}", orders.RemoveLine)
	})

	r.Route("/finished-goods", func(r chi.Router) {
		r.Get("/", stock.List)
		r.Post("/", stock.Create)
		r.Get("/{id}", stock.Get)
		r.Post("/{id}/adjust", stock.Adjust)
	})
}
