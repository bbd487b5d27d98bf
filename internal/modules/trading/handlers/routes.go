package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trading routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/trades", func(r chi.Router) {
		r.Post("/buy", h.HandleBuy)
		r.Post("/sell", h.HandleSell)
		r.Get("/can-execute", h.HandleCanExecute)
		r.Get("/user/{userId}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetUserTrades(w, r, chi.URLParam(r, "userId"))
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetTrade(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
			h.HandleCancelTrade(w, r, chi.URLParam(r, "id"))
		})
	})
}
