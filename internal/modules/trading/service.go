package trading

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
)

// TradeRepositoryInterface defines the persistence operations the service needs
type TradeRepositoryInterface interface {
	Create(t *Trade) error
	GetByID(id int64) (*Trade, error)
	GetByUser(userID string) ([]Trade, error)
	GetByUserAndSymbol(userID, symbol string) ([]Trade, error)
	UpdateStatus(id int64, status TradeStatus, message string) (int64, error)
}

// Compile-time check
var _ TradeRepositoryInterface = (*TradeRepository)(nil)

// QuoteSource answers symbol existence and current price questions
type QuoteSource interface {
	Exists(symbol string) bool
	CurrentPrice(symbol string) (decimal.Decimal, bool)
}

// Ledger applies executed trades to positions
type Ledger interface {
	HasEnoughShares(userID, symbol string, quantity int64) (bool, error)
	ApplyTrade(userID, symbol string, isBuy bool, quantity int64, price decimal.Decimal) error
}

// Service implements the trade engine
type Service struct {
	repo         TradeRepositoryInterface
	quotes       QuoteSource
	ledger       Ledger
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a trading service
func NewService(repo TradeRepositoryInterface, quotes QuoteSource, ledger Ledger, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		quotes:       quotes,
		ledger:       ledger,
		eventManager: eventManager,
		log:          log.With().Str("service", "trading").Logger(),
	}
}

// Buy submits a market buy order. The order is priced at the current
// quote, settled against the portfolio, and recorded in the ledger in
// a terminal state. Validation failures surface as errors before
// anything is persisted; settlement failures are recorded as a FAILED
// trade and returned without error.
func (s *Service) Buy(userID, symbol string, quantity int64) (*Trade, error) {
	return s.submit(userID, symbol, SideBuy, quantity)
}

// Sell submits a market sell order. Selling shares the user does not
// hold fails validation with ErrInsufficientHoldings before pricing.
func (s *Service) Sell(userID, symbol string, quantity int64) (*Trade, error) {
	return s.submit(userID, symbol, SideSell, quantity)
}

func (s *Service) submit(userID, symbol string, side TradeSide, quantity int64) (*Trade, error) {
	// Normalize once; the trade record and the ledger must agree on the
	// (user, symbol) identity or the position diverges from the audit log.
	userID = strings.TrimSpace(userID)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	trade := &Trade{
		OrderRef: uuid.New().String(),
		UserID:   userID,
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Status:   StatusPending,
	}
	if err := trade.Validate(); err != nil {
		return nil, err
	}

	if !s.quotes.Exists(symbol) {
		return nil, fmt.Errorf("%w: unknown symbol %s", domain.ErrInvalidArgument, symbol)
	}

	// Sells check share coverage before pricing so a short order is
	// rejected cheaply. The check is advisory; the ledger re-checks
	// under its own lock during settlement.
	if side == SideSell {
		enough, err := s.ledger.HasEnoughShares(userID, symbol, quantity)
		if err != nil {
			return nil, err
		}
		if !enough {
			return nil, fmt.Errorf("%w: %w: cannot sell %d shares of %s",
				domain.ErrInvalidArgument, domain.ErrInsufficientHoldings, quantity, symbol)
		}
	}

	price, ok := s.quotes.CurrentPrice(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: no price available for %s", domain.ErrInvalidArgument, symbol)
	}
	trade.Price = price

	if err := s.ledger.ApplyTrade(userID, symbol, side == SideBuy, quantity, price); err != nil {
		trade.MarkFailed(err.Error())
		s.log.Warn().
			Str("user_id", userID).
			Str("symbol", symbol).
			Str("side", string(side)).
			Err(err).
			Msg("Trade settlement failed")
	} else {
		trade.MarkExecuted()
	}

	if err := s.repo.Create(trade); err != nil {
		return nil, fmt.Errorf("failed to record trade: %w", err)
	}

	if trade.Status == StatusExecuted {
		s.eventManager.Emit(events.TradeExecuted, "trading", tradeEventData(trade))
		s.log.Info().
			Str("order_ref", trade.OrderRef).
			Str("user_id", userID).
			Str("symbol", symbol).
			Str("side", string(side)).
			Int64("quantity", quantity).
			Str("price", price.String()).
			Msg("Trade executed")
	} else {
		s.eventManager.Emit(events.TradeFailed, "trading", tradeEventData(trade))
	}
	return trade, nil
}

func tradeEventData(t *Trade) map[string]interface{} {
	return map[string]interface{}{
		"trade_id":  t.ID,
		"order_ref": t.OrderRef,
		"user_id":   t.UserID,
		"symbol":    t.Symbol,
		"side":      string(t.Side),
		"quantity":  t.Quantity,
		"price":     t.Price.StringFixed(2),
		"status":    string(t.Status),
	}
}

// CanExecute reports whether an order would pass validation right now.
// Any lookup failure collapses to false.
func (s *Service) CanExecute(userID, symbol string, side TradeSide, quantity int64) bool {
	userID = strings.TrimSpace(userID)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	probe := &Trade{UserID: userID, Symbol: symbol, Side: side, Quantity: quantity}
	if err := probe.Validate(); err != nil {
		return false
	}
	if !s.quotes.Exists(symbol) {
		return false
	}
	if side == SideSell {
		enough, err := s.ledger.HasEnoughShares(userID, symbol, quantity)
		if err != nil || !enough {
			return false
		}
	}
	_, ok := s.quotes.CurrentPrice(symbol)
	return ok
}

// Cancel cancels a PENDING trade owned by the user. It returns true
// when the trade moved to CANCELLED, and false without error when the
// trade does not exist or already reached a terminal state. A user
// trying to cancel someone else's trade gets ErrInvalidArgument.
func (s *Service) Cancel(tradeID int64, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)

	trade, err := s.repo.GetByID(tradeID)
	if err != nil {
		return false, err
	}
	if trade == nil || !trade.IsPending() {
		return false, nil
	}
	if trade.UserID != userID {
		return false, fmt.Errorf("%w: trade %d does not belong to user %s", domain.ErrInvalidArgument, tradeID, userID)
	}

	affected, err := s.repo.UpdateStatus(tradeID, StatusCancelled, "Cancelled by user")
	if err != nil {
		return false, err
	}
	if affected == 0 {
		// Lost a race with another transition.
		return false, nil
	}

	trade.MarkCancelled("Cancelled by user")
	s.eventManager.Emit(events.TradeCancelled, "trading", tradeEventData(trade))
	s.log.Info().
		Int64("trade_id", tradeID).
		Str("user_id", userID).
		Msg("Trade cancelled")
	return true, nil
}

// GetTrade returns one trade by id
func (s *Service) GetTrade(tradeID int64) (*Trade, error) {
	trade, err := s.repo.GetByID(tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: trade %d", domain.ErrNotFound, tradeID)
	}
	return trade, nil
}

// UserTrades returns a user's full trade history, newest first
func (s *Service) UserTrades(userID string) ([]Trade, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetByUser(userID)
}

// UserSymbolTrades returns a user's trade history in one symbol, newest first
func (s *Service) UserSymbolTrades(userID, symbol string) ([]Trade, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetByUserAndSymbol(userID, symbol)
}
