// Package market provides the simulated stock market: quoted instruments,
// their current prices, and the background price simulator.
package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stock represents a quoted instrument with its current price
type Stock struct {
	ID           int64           `json:"id"`
	Symbol       string          `json:"symbol"`
	CompanyName  string          `json:"company_name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	ChangePct    decimal.Decimal `json:"change_percentage"`
	OpenPrice    decimal.Decimal `json:"open_price"`
	HighPrice    decimal.Decimal `json:"high_price"`
	LowPrice     decimal.Decimal `json:"low_price"`
	Volume       int64           `json:"volume"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// Validate checks stock invariants before persistence
func (s Stock) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if strings.TrimSpace(s.CompanyName) == "" {
		return fmt.Errorf("company name is required")
	}
	if s.CurrentPrice.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("current price must be positive")
	}
	return nil
}

// NormalizeSymbol upper-cases and trims a symbol. All market lookups assume
// normalized input.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
