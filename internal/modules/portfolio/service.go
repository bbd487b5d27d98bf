package portfolio

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
)

// HoldingStore defines the read and mutation operations on holdings.
// The same surface is served by the repository directly and by its
// transaction-bound form inside InTransaction.
type HoldingStore interface {
	GetByUser(userID string) ([]Holding, error)
	GetByUserAndSymbol(userID, symbol string) (*Holding, error)
	Upsert(userID, symbol string, quantity int64, avgPrice decimal.Decimal) error
	Delete(userID, symbol string) error
}

// HoldingRepositoryInterface defines the persistence operations the service needs
type HoldingRepositoryInterface interface {
	HoldingStore
	InTransaction(fn func(repo HoldingStore) error) error
}

// Compile-time check
var _ HoldingRepositoryInterface = (*HoldingRepository)(nil)

// QuoteSource provides current prices for valuation
type QuoteSource interface {
	CurrentPrice(symbol string) (decimal.Decimal, bool)
}

// Service implements portfolio ledger operations
type Service struct {
	repo         HoldingRepositoryInterface
	quotes       QuoteSource
	eventManager *events.Manager
	log          zerolog.Logger

	// mu guards locks; each (user, symbol) pair gets its own mutex so
	// concurrent trades on the same position serialize while trades on
	// different positions proceed in parallel.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a portfolio service
func NewService(repo HoldingRepositoryInterface, quotes QuoteSource, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		quotes:       quotes,
		eventManager: eventManager,
		log:          log.With().Str("service", "portfolio").Logger(),
		locks:        make(map[string]*sync.Mutex),
	}
}

func (s *Service) positionLock(userID, symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "\x00" + symbol
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Holdings returns all positions for a user in insertion order
func (s *Service) Holdings(userID string) ([]Holding, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetByUser(userID)
}

// Holding returns the position for (user, symbol), or nil if the user
// holds no shares of the symbol
func (s *Service) Holding(userID, symbol string) (*Holding, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetByUserAndSymbol(userID, symbol)
}

// HasEnoughShares reports whether the user holds at least quantity shares
func (s *Service) HasEnoughShares(userID, symbol string, quantity int64) (bool, error) {
	h, err := s.Holding(userID, symbol)
	if err != nil {
		return false, err
	}
	return h != nil && h.Quantity >= quantity, nil
}

// ApplyTrade applies an executed buy or sell to the user's position.
//
// A buy folds the fill into the position at a recomputed average cost:
//
//	newAvg = (oldAvg*oldQty + price*qty) / (oldQty + qty)
//
// rounded to cents, half up. A sell reduces quantity and leaves the
// average untouched; selling the position down to zero deletes it.
// Selling more shares than held returns ErrInsufficientHoldings and
// leaves the position unchanged.
func (s *Service) ApplyTrade(userID, symbol string, isBuy bool, quantity int64, price decimal.Decimal) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", domain.ErrInvalidArgument)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidArgument)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidArgument)
	}

	lock := s.positionLock(userID, symbol)
	lock.Lock()
	defer lock.Unlock()

	// The read and the write commit or roll back together; the mutex
	// alone cannot undo a half-applied mutation.
	removed := false
	err := s.repo.InTransaction(func(store HoldingStore) error {
		existing, err := store.GetByUserAndSymbol(userID, symbol)
		if err != nil {
			return err
		}

		if isBuy {
			return s.applyBuy(store, userID, symbol, existing, quantity, price)
		}

		err = s.applySell(store, userID, symbol, existing, quantity)
		removed = err == nil && existing != nil && existing.Quantity == quantity
		return err
	})
	if err != nil {
		return err
	}

	if removed {
		s.eventManager.Emit(events.HoldingRemoved, "portfolio", map[string]interface{}{
			"user_id": userID,
			"symbol":  symbol,
		})
	}
	return nil
}

func (s *Service) applyBuy(store HoldingStore, userID, symbol string, existing *Holding, quantity int64, price decimal.Decimal) error {
	newQty := quantity
	newAvg := price.Round(2)

	if existing != nil {
		newQty = existing.Quantity + quantity
		oldCost := existing.AvgPrice.Mul(decimal.NewFromInt(existing.Quantity))
		addCost := price.Mul(decimal.NewFromInt(quantity))
		newAvg = oldCost.Add(addCost).DivRound(decimal.NewFromInt(newQty), 2)
	}

	if err := store.Upsert(userID, symbol, newQty, newAvg); err != nil {
		return err
	}

	s.log.Debug().
		Str("user_id", userID).
		Str("symbol", symbol).
		Int64("quantity", newQty).
		Str("avg_price", newAvg.String()).
		Msg("Position increased")
	return nil
}

func (s *Service) applySell(store HoldingStore, userID, symbol string, existing *Holding, quantity int64) error {
	if existing == nil || existing.Quantity < quantity {
		return fmt.Errorf("%w: cannot sell %d shares of %s", domain.ErrInsufficientHoldings, quantity, symbol)
	}

	remaining := existing.Quantity - quantity
	if remaining == 0 {
		if err := store.Delete(userID, symbol); err != nil {
			return err
		}
		s.log.Debug().
			Str("user_id", userID).
			Str("symbol", symbol).
			Msg("Position closed")
		return nil
	}

	// Average purchase price never changes on a sell.
	if err := store.Upsert(userID, symbol, remaining, existing.AvgPrice); err != nil {
		return err
	}

	s.log.Debug().
		Str("user_id", userID).
		Str("symbol", symbol).
		Int64("quantity", remaining).
		Msg("Position reduced")
	return nil
}

// TotalValue returns the sum of quantity * currentPrice over all holdings.
// Holdings with no available quote contribute zero.
func (s *Service) TotalValue(userID string) (decimal.Decimal, error) {
	holdings, err := s.Holdings(userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, h := range holdings {
		price, ok := s.quotes.CurrentPrice(h.Symbol)
		if !ok {
			s.log.Warn().Str("symbol", h.Symbol).Msg("No quote available for valuation")
			continue
		}
		total = total.Add(h.TotalValue(price))
	}
	return total, nil
}

// TotalGainLoss returns total value minus total cost over all holdings
func (s *Service) TotalGainLoss(userID string) (decimal.Decimal, error) {
	summary, err := s.Summary(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.TotalGainLoss, nil
}

// Summary computes the aggregate portfolio view for a user
func (s *Service) Summary(userID string) (*Summary, error) {
	holdings, err := s.Holdings(userID)
	if err != nil {
		return nil, err
	}

	totalValue := decimal.Zero
	totalCost := decimal.Zero
	for _, h := range holdings {
		totalCost = totalCost.Add(h.TotalCost())
		price, ok := s.quotes.CurrentPrice(h.Symbol)
		if !ok {
			continue
		}
		totalValue = totalValue.Add(h.TotalValue(price))
	}

	gainLoss := totalValue.Sub(totalCost)
	gainLossPct := decimal.Zero
	if totalCost.GreaterThan(decimal.Zero) {
		gainLossPct = gainLoss.DivRound(totalCost, 4).Mul(decimal.NewFromInt(100))
	}

	return &Summary{
		TotalValue:       totalValue,
		TotalCost:        totalCost,
		TotalGainLoss:    gainLoss,
		TotalGainLossPct: gainLossPct,
		PositionCount:    len(holdings),
	}, nil
}
