package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio/{userId}", func(r chi.Router) {
		r.Get("/holdings", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetHoldings(w, r, chi.URLParam(r, "userId"))
		})
		r.Get("/holdings/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetHolding(w, r, chi.URLParam(r, "userId"), chi.URLParam(r, "symbol"))
		})
		r.Get("/summary", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetSummary(w, r, chi.URLParam(r, "userId"))
		})
		r.Get("/value", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetValue(w, r, chi.URLParam(r, "userId"))
		})
		r.Get("/gain-loss", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetGainLoss(w, r, chi.URLParam(r, "userId"))
		})
	})
}
