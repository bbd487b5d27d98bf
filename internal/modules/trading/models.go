// Package trading implements the trade engine: order intake, validation,
// execution against the portfolio ledger, and the trade history record.
package trading

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
)

// TradeSide is the direction of a trade
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// TradeStatus is the lifecycle state of a trade.
// PENDING is the only non-terminal state; EXECUTED, FAILED and
// CANCELLED are terminal and never transition again.
type TradeStatus string

const (
	StatusPending   TradeStatus = "PENDING"
	StatusExecuted  TradeStatus = "EXECUTED"
	StatusFailed    TradeStatus = "FAILED"
	StatusCancelled TradeStatus = "CANCELLED"
)

// Trade is one order and its outcome
type Trade struct {
	ID            int64           `json:"id"`
	OrderRef      string          `json:"order_ref"`
	UserID        string          `json:"user_id"`
	Symbol        string          `json:"symbol"`
	Side          TradeSide       `json:"trade_type"`
	Quantity      int64           `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Status        TradeStatus     `json:"status"`
	StatusMessage string          `json:"status_message"`
	CreatedAt     time.Time       `json:"timestamp"`
}

// Validate checks order fields before any side effect
func (t *Trade) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", domain.ErrInvalidArgument)
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return fmt.Errorf("%w: trade type must be BUY or SELL", domain.ErrInvalidArgument)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidArgument)
	}
	return nil
}

// IsPending reports whether the trade can still change state
func (t *Trade) IsPending() bool {
	return t.Status == StatusPending
}

// IsTerminal reports whether the trade reached a final state
func (t *Trade) IsTerminal() bool {
	return t.Status == StatusExecuted || t.Status == StatusFailed || t.Status == StatusCancelled
}

// MarkExecuted moves the trade to EXECUTED
func (t *Trade) MarkExecuted() {
	t.Status = StatusExecuted
	t.StatusMessage = "Trade executed successfully"
}

// MarkFailed moves the trade to FAILED with a reason
func (t *Trade) MarkFailed(reason string) {
	t.Status = StatusFailed
	t.StatusMessage = reason
}

// MarkCancelled moves the trade to CANCELLED with a reason
func (t *Trade) MarkCancelled(reason string) {
	t.Status = StatusCancelled
	t.StatusMessage = reason
}
