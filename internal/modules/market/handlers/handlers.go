// Package handlers provides HTTP handlers for stock market data.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/market"
)

// Handler handles market HTTP requests
type Handler struct {
	service *market.Service
	log     zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(service *market.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// HandleListStocks handles GET /api/stocks
func (h *Handler) HandleListStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.service.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list stocks")
		http.Error(w, "Failed to list stocks", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"stocks": stocks,
			"count":  len(stocks),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSearchStocks handles GET /api/stocks/search?query=
func (h *Handler) HandleSearchStocks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	stocks, err := h.service.Search(query)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to search stocks")
		http.Error(w, "Failed to search stocks", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"stocks": stocks,
			"count":  len(stocks),
			"query":  query,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetStock handles GET /api/stocks/{symbol}
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request, symbol string) {
	stock, err := h.service.Get(symbol)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Stock not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, domain.ErrInvalidArgument) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get stock")
		http.Error(w, "Failed to get stock", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": stock,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCreateStock handles POST /api/stocks
func (h *Handler) HandleCreateStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol      string          `json:"symbol"`
		CompanyName string          `json:"company_name"`
		Price       decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	stock, err := h.service.Add(req.Symbol, req.CompanyName, req.Price)
	if errors.Is(err, domain.ErrInvalidArgument) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Failed to create stock")
		http.Error(w, "Failed to create stock", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": stock,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleUpdatePrice handles PUT /api/stocks/{symbol}/price
func (h *Handler) HandleUpdatePrice(w http.ResponseWriter, r *http.Request, symbol string) {
	var req struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.service.UpdatePrice(symbol, req.Price)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Stock not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, domain.ErrInvalidArgument) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to update price")
		http.Error(w, "Failed to update price", http.StatusInternalServerError)
		return
	}

	stock, err := h.service.Get(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to reload stock")
		http.Error(w, "Failed to reload stock", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": stock,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
