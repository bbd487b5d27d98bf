package trading

import "database/sql"

// TradesSchema creates the trades table in ledger.db.
// The ledger is append-mostly: rows are inserted once and the only
// permitted update is PENDING -> terminal.
const TradesSchema = `
CREATE TABLE IF NOT EXISTS trades (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_ref TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    trade_type TEXT NOT NULL CHECK (trade_type IN ('BUY', 'SELL')),
    quantity INTEGER NOT NULL,
    price TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('PENDING', 'EXECUTED', 'FAILED', 'CANCELLED')),
    status_message TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_user_symbol ON trades(user_id, symbol);
`

// InitSchema applies the trading schema
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(TradesSchema)
	return err
}
