package market

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// stocksColumns is the list of columns for the stocks table
// Used to avoid SELECT * which can break when schema changes
// Column order must match scanStock() expectations
const stocksColumns = `id, symbol, company_name, current_price, change_pct, open_price, high_price, low_price, volume, last_updated`

// StockRepository handles stock database operations
type StockRepository struct {
	marketDB *sql.DB // market.db - stocks table
	log      zerolog.Logger
}

// NewStockRepository creates a new stock repository
func NewStockRepository(marketDB *sql.DB, log zerolog.Logger) *StockRepository {
	return &StockRepository{
		marketDB: marketDB,
		log:      log.With().Str("repo", "stock").Logger(),
	}
}

// Create inserts a new stock record
func (r *StockRepository) Create(stock Stock) (*Stock, error) {
	if err := stock.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create stock: %w", err)
	}

	symbol := NormalizeSymbol(stock.Symbol)
	now := time.Now().Unix()

	query := `
		INSERT INTO stocks
		(symbol, company_name, current_price, change_pct, open_price, high_price, low_price, volume, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.marketDB.Exec(query,
		symbol,
		stock.CompanyName,
		stock.CurrentPrice.StringFixed(2),
		stock.ChangePct.String(),
		stock.OpenPrice.StringFixed(2),
		stock.HighPrice.StringFixed(2),
		stock.LowPrice.StringFixed(2),
		stock.Volume,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stock: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get stock id: %w", err)
	}

	stock.ID = id
	stock.Symbol = symbol
	stock.LastUpdated = time.Unix(now, 0).UTC()

	r.log.Info().
		Str("symbol", symbol).
		Str("price", stock.CurrentPrice.StringFixed(2)).
		Msg("Stock created")

	return &stock, nil
}

// GetBySymbol retrieves a stock by symbol, nil if not found
func (r *StockRepository) GetBySymbol(symbol string) (*Stock, error) {
	query := "SELECT " + stocksColumns + " FROM stocks WHERE symbol = ?"

	row := r.marketDB.QueryRow(query, NormalizeSymbol(symbol))
	stock, err := scanStockRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock by symbol: %w", err)
	}

	return &stock, nil
}

// Exists checks if a stock with the given symbol is registered
func (r *StockRepository) Exists(symbol string) (bool, error) {
	query := "SELECT 1 FROM stocks WHERE symbol = ? LIMIT 1"

	var exists int
	err := r.marketDB.QueryRow(query, NormalizeSymbol(symbol)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check stock existence: %w", err)
	}

	return true, nil
}

// GetAll retrieves all stocks, most recently updated first
func (r *StockRepository) GetAll() ([]Stock, error) {
	query := "SELECT " + stocksColumns + " FROM stocks ORDER BY last_updated DESC, symbol ASC"

	rows, err := r.marketDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get stocks: %w", err)
	}
	defer rows.Close()

	return collectStocks(rows)
}

// Search retrieves stocks whose symbol or company name contains the term
func (r *StockRepository) Search(term string) ([]Stock, error) {
	pattern := "%" + term + "%"
	query := `
		SELECT ` + stocksColumns + ` FROM stocks
		WHERE symbol LIKE ? OR company_name LIKE ?
		ORDER BY symbol ASC
	`

	rows, err := r.marketDB.Query(query, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search stocks: %w", err)
	}
	defer rows.Close()

	return collectStocks(rows)
}

// Count returns the total number of registered stocks
func (r *StockRepository) Count() (int, error) {
	var count int
	err := r.marketDB.QueryRow("SELECT COUNT(*) as cnt FROM stocks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count stocks: %w", err)
	}
	return count, nil
}

// UpdatePrice sets a new current price and change percentage for a symbol.
// Returns the number of rows affected (0 when the symbol is unknown).
func (r *StockRepository) UpdatePrice(symbol string, price, changePct decimal.Decimal) (int64, error) {
	now := time.Now().Unix()

	query := `
		UPDATE stocks SET
			current_price = ?,
			change_pct = ?,
			last_updated = ?
		WHERE symbol = ?
	`

	result, err := r.marketDB.Exec(query,
		price.StringFixed(2),
		changePct.String(),
		now,
		NormalizeSymbol(symbol),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update price: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()

	r.log.Debug().
		Str("symbol", NormalizeSymbol(symbol)).
		Str("price", price.StringFixed(2)).
		Int64("rows_affected", rowsAffected).
		Msg("Stock price updated")

	return rowsAffected, nil
}

// SetDailyData updates the open/high/low/volume fields for a symbol
func (r *StockRepository) SetDailyData(symbol string, open, high, low decimal.Decimal, volume int64) error {
	query := `
		UPDATE stocks SET
			open_price = ?,
			high_price = ?,
			low_price = ?,
			volume = ?
		WHERE symbol = ?
	`

	_, err := r.marketDB.Exec(query,
		open.StringFixed(2),
		high.StringFixed(2),
		low.StringFixed(2),
		volume,
		NormalizeSymbol(symbol),
	)
	if err != nil {
		return fmt.Errorf("failed to set daily data: %w", err)
	}

	return nil
}

// Helper methods

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStockRow(row rowScanner) (Stock, error) {
	var stock Stock
	var currentPrice, changePct, openPrice, highPrice, lowPrice string
	var lastUpdated int64

	err := row.Scan(
		&stock.ID,          // 0: id
		&stock.Symbol,      // 1: symbol
		&stock.CompanyName, // 2: company_name
		&currentPrice,      // 3: current_price
		&changePct,         // 4: change_pct
		&openPrice,         // 5: open_price
		&highPrice,         // 6: high_price
		&lowPrice,          // 7: low_price
		&stock.Volume,      // 8: volume
		&lastUpdated,       // 9: last_updated (Unix timestamp)
	)
	if err != nil {
		return stock, err
	}

	stock.CurrentPrice, err = decimal.NewFromString(currentPrice)
	if err != nil {
		return stock, fmt.Errorf("invalid current_price %q: %w", currentPrice, err)
	}
	stock.ChangePct, err = decimal.NewFromString(changePct)
	if err != nil {
		return stock, fmt.Errorf("invalid change_pct %q: %w", changePct, err)
	}
	stock.OpenPrice, err = decimal.NewFromString(openPrice)
	if err != nil {
		return stock, fmt.Errorf("invalid open_price %q: %w", openPrice, err)
	}
	stock.HighPrice, err = decimal.NewFromString(highPrice)
	if err != nil {
		return stock, fmt.Errorf("invalid high_price %q: %w", highPrice, err)
	}
	stock.LowPrice, err = decimal.NewFromString(lowPrice)
	if err != nil {
		return stock, fmt.Errorf("invalid low_price %q: %w", lowPrice, err)
	}

	stock.LastUpdated = time.Unix(lastUpdated, 0).UTC()
	stock.Symbol = NormalizeSymbol(stock.Symbol)

	return stock, nil
}

func collectStocks(rows *sql.Rows) ([]Stock, error) {
	var stocks []Stock
	for rows.Next() {
		stock, err := scanStockRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, stock)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}

	return stocks, nil
}
