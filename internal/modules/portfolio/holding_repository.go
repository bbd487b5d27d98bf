package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/database"
)

// holdingsColumns is the canonical column list for holdings queries
const holdingsColumns = "id, user_id, symbol, quantity, average_purchase_price, last_updated"

// querier is satisfied by both *sql.DB and *sql.Tx, so repository methods
// run against the pool or inside a transaction without duplication.
type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// HoldingRepository handles holding persistence in portfolio.db
type HoldingRepository struct {
	portfolioDB *sql.DB
	q           querier
	log         zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(portfolioDB *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		portfolioDB: portfolioDB,
		q:           portfolioDB,
		log:         log.With().Str("repo", "holding").Logger(),
	}
}

// InTransaction runs fn against a transaction-bound copy of the repository.
// The transaction commits when fn returns nil and rolls back otherwise.
// Must not be nested.
func (r *HoldingRepository) InTransaction(fn func(repo HoldingStore) error) error {
	return database.WithTransaction(r.portfolioDB, func(tx *sql.Tx) error {
		return fn(&HoldingRepository{portfolioDB: r.portfolioDB, q: tx, log: r.log})
	})
}

// GetByUser returns all holdings for a user in insertion order
func (r *HoldingRepository) GetByUser(userID string) ([]Holding, error) {
	query := fmt.Sprintf("SELECT %s FROM holdings WHERE user_id = ? ORDER BY id ASC", holdingsColumns)

	rows, err := r.q.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := r.scanHoldingRow(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}
	return holdings, rows.Err()
}

// GetByUserAndSymbol returns the holding for (user, symbol), or nil if absent
func (r *HoldingRepository) GetByUserAndSymbol(userID, symbol string) (*Holding, error) {
	query := fmt.Sprintf("SELECT %s FROM holdings WHERE user_id = ? AND symbol = ?", holdingsColumns)

	h, err := r.scanHoldingRow(r.q.QueryRow(query, userID, symbol))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return h, nil
}

// Upsert inserts or replaces the holding for (user, symbol)
func (r *HoldingRepository) Upsert(userID, symbol string, quantity int64, avgPrice decimal.Decimal) error {
	_, err := r.q.Exec(`
		INSERT INTO holdings (user_id, symbol, quantity, average_purchase_price, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			average_purchase_price = excluded.average_purchase_price,
			last_updated = excluded.last_updated`,
		userID, symbol, quantity, avgPrice.StringFixed(2), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

// Delete removes the holding for (user, symbol)
func (r *HoldingRepository) Delete(userID, symbol string) error {
	_, err := r.q.Exec("DELETE FROM holdings WHERE user_id = ? AND symbol = ?", userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *HoldingRepository) scanHoldingRow(row rowScanner) (*Holding, error) {
	var h Holding
	var avgPrice string
	var lastUpdated int64

	if err := row.Scan(&h.ID, &h.UserID, &h.Symbol, &h.Quantity, &avgPrice, &lastUpdated); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(avgPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid average price for %s/%s: %w", h.UserID, h.Symbol, err)
	}
	h.AvgPrice = price
	h.LastUpdated = time.Unix(lastUpdated, 0)
	return &h, nil
}
