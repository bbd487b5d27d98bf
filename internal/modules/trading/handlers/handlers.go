// Package handlers provides HTTP handlers for trade submission and history.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/trading"
)

// Handler handles trading HTTP requests
type Handler struct {
	service *trading.Service
	log     zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(service *trading.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

type orderRequest struct {
	UserID   string `json:"user_id"`
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// HandleBuy handles POST /api/trades/buy
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.service.Buy)
}

// HandleSell handles POST /api/trades/sell
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.service.Sell)
}

func (h *Handler) handleOrder(w http.ResponseWriter, r *http.Request, submit func(string, string, int64) (*trading.Trade, error)) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := submit(req.UserID, req.Symbol, req.Quantity)
	if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInsufficientHoldings) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Failed to submit order")
		http.Error(w, "Failed to submit order", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": trade,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetTrade handles GET /api/trades/{id}
func (h *Handler) HandleGetTrade(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade ID", http.StatusBadRequest)
		return
	}

	trade, err := h.service.GetTrade(id)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Trade not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("trade_id", id).Msg("Failed to get trade")
		http.Error(w, "Failed to get trade", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": trade,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCancelTrade handles POST /api/trades/{id}/cancel
func (h *Handler) HandleCancelTrade(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade ID", http.StatusBadRequest)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cancelled, err := h.service.Cancel(id, req.UserID)
	if errors.Is(err, domain.ErrInvalidArgument) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("trade_id", id).Msg("Failed to cancel trade")
		http.Error(w, "Failed to cancel trade", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"trade_id":  id,
			"cancelled": cancelled,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetUserTrades handles GET /api/trades/user/{userId}
func (h *Handler) HandleGetUserTrades(w http.ResponseWriter, r *http.Request, userID string) {
	symbol := r.URL.Query().Get("symbol")

	var trades []trading.Trade
	var err error
	if symbol != "" {
		trades, err = h.service.UserSymbolTrades(userID, symbol)
	} else {
		trades, err = h.service.UserTrades(userID)
	}
	if errors.Is(err, domain.ErrInvalidArgument) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get trades")
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []trading.Trade{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"trades": trades,
			"count":  len(trades),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCanExecute handles GET /api/trades/can-execute
func (h *Handler) HandleCanExecute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quantity, err := strconv.ParseInt(q.Get("quantity"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid quantity", http.StatusBadRequest)
		return
	}

	ok := h.service.CanExecute(
		q.Get("user_id"),
		q.Get("symbol"),
		trading.TradeSide(q.Get("trade_type")),
		quantity,
	)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"can_execute": ok,
		},
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
