package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", h.HandleListStocks)
		r.Post("/", h.HandleCreateStock)
		r.Get("/search", h.HandleSearchStocks)
		r.Get("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetStock(w, r, chi.URLParam(r, "symbol"))
		})
		r.Put("/{symbol}/price", func(w http.ResponseWriter, r *http.Request) {
			h.HandleUpdatePrice(w, r, chi.URLParam(r, "symbol"))
		})
	})
}
