package journal

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	amount REAL NOT NULL,
	price REAL NOT NULL,
	fee REAL NOT NULL,
	time DATETIME NOT NULL,
	realized_pnl REAL NOT NULL,
	base_after REAL NOT NULL,
	asset_after REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	fee DOUBLE PRECISION NOT NULL,
	time TIMESTAMPTZ NOT NULL,
	realized_pnl DOUBLE PRECISION NOT NULL,
	base_after DOUBLE PRECISION NOT NULL,
	asset_after DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);
`
