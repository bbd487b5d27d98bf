package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// tradesColumns is the canonical column list for trade queries
const tradesColumns = "id, order_ref, user_id, symbol, trade_type, quantity, price, status, status_message, created_at"

// TradeRepository handles trade persistence in ledger.db
type TradeRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(ledgerDB *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "trade").Logger(),
	}
}

// Create persists a trade and fills in its ID
func (r *TradeRepository) Create(t *Trade) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	result, err := r.ledgerDB.Exec(`
		INSERT INTO trades (order_ref, user_id, symbol, trade_type, quantity, price, status, status_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OrderRef, t.UserID, t.Symbol, string(t.Side), t.Quantity,
		t.Price.StringFixed(2), string(t.Status), t.StatusMessage, t.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get trade id: %w", err)
	}
	t.ID = id
	return nil
}

// GetByID returns the trade with the given id, or nil if absent
func (r *TradeRepository) GetByID(id int64) (*Trade, error) {
	query := fmt.Sprintf("SELECT %s FROM trades WHERE id = ?", tradesColumns)

	t, err := r.scanTradeRow(r.ledgerDB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// GetByUser returns a user's trades, newest first
func (r *TradeRepository) GetByUser(userID string) ([]Trade, error) {
	query := fmt.Sprintf("SELECT %s FROM trades WHERE user_id = ? ORDER BY created_at DESC, id DESC", tradesColumns)
	return r.queryTrades(query, userID)
}

// GetByUserAndSymbol returns a user's trades in one symbol, newest first
func (r *TradeRepository) GetByUserAndSymbol(userID, symbol string) ([]Trade, error) {
	query := fmt.Sprintf("SELECT %s FROM trades WHERE user_id = ? AND symbol = ? ORDER BY created_at DESC, id DESC", tradesColumns)
	return r.queryTrades(query, userID, symbol)
}

// UpdateStatus moves a trade out of PENDING. The WHERE clause guards
// against terminal rows changing state; the returned count is zero when
// the trade was already terminal or does not exist.
func (r *TradeRepository) UpdateStatus(id int64, status TradeStatus, message string) (int64, error) {
	result, err := r.ledgerDB.Exec(
		"UPDATE trades SET status = ?, status_message = ? WHERE id = ? AND status = 'PENDING'",
		string(status), message, id)
	if err != nil {
		return 0, fmt.Errorf("failed to update trade status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}

func (r *TradeRepository) queryTrades(query string, args ...interface{}) ([]Trade, error) {
	rows, err := r.ledgerDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		t, err := r.scanTradeRow(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *TradeRepository) scanTradeRow(row rowScanner) (*Trade, error) {
	var t Trade
	var side, status, price string
	var createdAt int64

	err := row.Scan(&t.ID, &t.OrderRef, &t.UserID, &t.Symbol, &side,
		&t.Quantity, &price, &status, &t.StatusMessage, &createdAt)
	if err != nil {
		return nil, err
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price for trade %d: %w", t.ID, err)
	}
	t.Side = TradeSide(side)
	t.Status = TradeStatus(status)
	t.Price = p
	t.CreatedAt = time.Unix(createdAt, 0)
	return &t, nil
}
