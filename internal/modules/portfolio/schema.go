package portfolio

import "database/sql"

// HoldingsSchema creates the holdings table in portfolio.db.
// Prices are stored as TEXT to keep exact decimal values.
const HoldingsSchema = `
CREATE TABLE IF NOT EXISTS holdings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    average_purchase_price TEXT NOT NULL,
    last_updated INTEGER NOT NULL,
    UNIQUE(user_id, symbol)
);

CREATE INDEX IF NOT EXISTS idx_holdings_user ON holdings(user_id);
`

// InitSchema applies the portfolio schema
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(HoldingsSchema)
	return err
}
