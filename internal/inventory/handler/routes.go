package handler

import "github.com/go-chi/chi/v5"

// Routes mounts the inventory endpoints on r
func Routes(r chi.Router, items *ItemHandler, ledger *LedgerHandler, positions *PositionHandler) {
	r.Route("/inventory", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", items.List)
			r.Post("/", items.Create)
			r.Get("/{id}", items.Get)
			r.Put("/{id}", items.Update)
			r.Post("/{id}/archive", items.Archive)
			r.Get("/{id}/lots", ledger.ListLots)
			r.Post("/{id}/lots", ledger.ReceiveLot)
			r.Get("/{id}/position", positions.Get)
		})

		r.Get("/lots/{id}", ledger.GetLot)
		r.Get("/lots/{id}/reconcile", ledger.ReconcileLot)

		r.Get("/movements", ledger.ListMovements)
		r.Post("/movements", ledger.RecordMovement)

		r.Get("/positions", positions.List)
	})
}
