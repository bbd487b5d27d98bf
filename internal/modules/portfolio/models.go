// Package portfolio provides the portfolio ledger: holdings keyed by
// (user, symbol), the average-cost-basis bookkeeping applied on every
// trade, and portfolio valuation.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents one user's position in one symbol.
// Identity is the (user, symbol) pair; at most one Holding exists per pair.
// A Holding never survives at quantity zero - it is deleted instead.
type Holding struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	Symbol      string          `json:"symbol"`
	Quantity    int64           `json:"quantity"`
	AvgPrice    decimal.Decimal `json:"average_purchase_price"`
	LastUpdated time.Time       `json:"last_updated"`
}

// TotalCost returns avgPrice * quantity
func (h Holding) TotalCost() decimal.Decimal {
	return h.AvgPrice.Mul(decimal.NewFromInt(h.Quantity))
}

// TotalValue returns currentPrice * quantity
func (h Holding) TotalValue(currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Mul(decimal.NewFromInt(h.Quantity))
}

// GainLoss returns the unrealized gain or loss at the given price
func (h Holding) GainLoss(currentPrice decimal.Decimal) decimal.Decimal {
	return h.TotalValue(currentPrice).Sub(h.TotalCost())
}

// Summary aggregates a user's portfolio
type Summary struct {
	TotalValue       decimal.Decimal `json:"total_value"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	TotalGainLoss    decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPct decimal.Decimal `json:"total_gain_loss_percentage"`
	PositionCount    int             `json:"position_count"`
}
