package market

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
)

// StockRepositoryInterface defines the interface for stock persistence
type StockRepositoryInterface interface {
	Create(stock Stock) (*Stock, error)
	GetBySymbol(symbol string) (*Stock, error)
	Exists(symbol string) (bool, error)
	GetAll() ([]Stock, error)
	Search(term string) ([]Stock, error)
	Count() (int, error)
	UpdatePrice(symbol string, price, changePct decimal.Decimal) (int64, error)
	SetDailyData(symbol string, open, high, low decimal.Decimal, volume int64) error
}

// Compile-time check that StockRepository implements StockRepositoryInterface
var _ StockRepositoryInterface = (*StockRepository)(nil)

// Service is the quote source for the trading core: it answers price and
// registration queries, and owns price mutations.
type Service struct {
	repo         StockRepositoryInterface
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new market service
func NewService(repo StockRepositoryInterface, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		eventManager: eventManager,
		log:          log.With().Str("service", "market").Logger(),
	}
}

// CurrentPrice returns the current price for a registered symbol.
// The second return value is false when the symbol is unknown or the
// price cannot be read.
func (s *Service) CurrentPrice(symbol string) (decimal.Decimal, bool) {
	stock, err := s.repo.GetBySymbol(symbol)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to look up price")
		return decimal.Zero, false
	}
	if stock == nil {
		return decimal.Zero, false
	}
	return stock.CurrentPrice, true
}

// Exists reports whether a symbol is registered
func (s *Service) Exists(symbol string) bool {
	exists, err := s.repo.Exists(symbol)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to check symbol existence")
		return false
	}
	return exists
}

// Get returns a stock by symbol
func (s *Service) Get(symbol string) (*Stock, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("symbol cannot be empty: %w", domain.ErrInvalidArgument)
	}

	stock, err := s.repo.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, fmt.Errorf("stock %s: %w", NormalizeSymbol(symbol), domain.ErrNotFound)
	}
	return stock, nil
}

// List returns all registered stocks, most recently updated first
func (s *Service) List() ([]Stock, error) {
	return s.repo.GetAll()
}

// Search returns stocks matching the term by symbol or company name.
// An empty term returns the full list.
func (s *Service) Search(term string) ([]Stock, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.repo.GetAll()
	}
	return s.repo.Search(term)
}

// Add registers a new stock
func (s *Service) Add(symbol, companyName string, price decimal.Decimal) (*Stock, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("symbol cannot be empty: %w", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(companyName) == "" {
		return nil, fmt.Errorf("company name cannot be empty: %w", domain.ErrInvalidArgument)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("price must be positive: %w", domain.ErrInvalidArgument)
	}

	normalized := NormalizeSymbol(symbol)
	exists, err := s.repo.Exists(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing stock: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("stock %s already exists: %w", normalized, domain.ErrInvalidArgument)
	}

	return s.repo.Create(Stock{
		Symbol:       normalized,
		CompanyName:  strings.TrimSpace(companyName),
		CurrentPrice: price.Round(2),
	})
}

// UpdatePrice sets a new price for a registered symbol and recomputes the
// change percentage against the previous price: (new-old)/old rounded
// half-up at scale 4, then scaled to a percentage.
func (s *Service) UpdatePrice(symbol string, price decimal.Decimal) error {
	if price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("price must be positive: %w", domain.ErrInvalidArgument)
	}

	stock, err := s.repo.GetBySymbol(symbol)
	if err != nil {
		return err
	}
	if stock == nil {
		return fmt.Errorf("stock %s: %w", NormalizeSymbol(symbol), domain.ErrNotFound)
	}

	price = price.Round(2)

	changePct := decimal.Zero
	if stock.CurrentPrice.IsPositive() {
		changePct = price.Sub(stock.CurrentPrice).
			DivRound(stock.CurrentPrice, 4).
			Mul(decimal.NewFromInt(100))
	}

	if _, err := s.repo.UpdatePrice(stock.Symbol, price, changePct); err != nil {
		return err
	}

	if s.eventManager != nil {
		s.eventManager.Emit(events.PriceUpdated, "market", map[string]interface{}{
			"symbol":     stock.Symbol,
			"price":      price.StringFixed(2),
			"change_pct": changePct.String(),
		})
	}

	return nil
}

// RecordDailyData updates the open/high/low/volume figures for a symbol
func (s *Service) RecordDailyData(symbol string, open, high, low decimal.Decimal, volume int64) error {
	return s.repo.SetDailyData(symbol, open, high, low, volume)
}

// seedStock is a symbol/name/price triple used for first-run seeding
type seedStock struct {
	symbol      string
	companyName string
	price       string
}

var seedStocks = []seedStock{
	{"AAPL", "Apple Inc.", "175.50"},
	{"GOOGL", "Alphabet Inc.", "142.30"},
	{"MSFT", "Microsoft Corporation", "380.90"},
	{"AMZN", "Amazon.com Inc.", "155.20"},
	{"TSLA", "Tesla Inc.", "248.75"},
	{"META", "Meta Platforms Inc.", "485.60"},
	{"NVDA", "NVIDIA Corporation", "875.30"},
	{"NFLX", "Netflix Inc.", "456.80"},
	{"AMD", "Advanced Micro Devices", "185.40"},
	{"CRM", "Salesforce Inc.", "275.90"},
}

// Seed populates the market with the default instrument set when the
// stocks table is empty. Idempotent across restarts.
func (s *Service) Seed() error {
	count, err := s.repo.Count()
	if err != nil {
		return fmt.Errorf("failed to count stocks: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, seed := range seedStocks {
		price, err := decimal.NewFromString(seed.price)
		if err != nil {
			return fmt.Errorf("invalid seed price for %s: %w", seed.symbol, err)
		}
		if _, err := s.repo.Create(Stock{
			Symbol:       seed.symbol,
			CompanyName:  seed.companyName,
			CurrentPrice: price,
		}); err != nil {
			return fmt.Errorf("failed to seed stock %s: %w", seed.symbol, err)
		}
	}

	s.log.Info().Int("count", len(seedStocks)).Msg("Market seeded with default stocks")
	return nil
}
