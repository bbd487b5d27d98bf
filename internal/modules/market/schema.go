package market

import "database/sql"

// StocksSchema defines the stocks table in market.db
const StocksSchema = `
CREATE TABLE IF NOT EXISTS stocks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT UNIQUE NOT NULL,
    company_name TEXT NOT NULL,
    current_price TEXT NOT NULL,
    change_pct TEXT NOT NULL DEFAULT '0',
    open_price TEXT NOT NULL DEFAULT '0',
    high_price TEXT NOT NULL DEFAULT '0',
    low_price TEXT NOT NULL DEFAULT '0',
    volume INTEGER NOT NULL DEFAULT 0,
    last_updated INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stocks_last_updated ON stocks(last_updated);
`

// InitSchema ensures the stocks table exists
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(StocksSchema)
	return err
}
