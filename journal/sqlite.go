package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"condorbot/market"
	"condorbot/portfolio"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t portfolio.Trade) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, order_id, symbol, side, amount, price, fee, time, realized_pnl, base_after, asset_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrderID, t.Symbol, string(t.Side), t.Amount, t.Price,
		t.Fee, t.Time, t.RealizedPnL, t.BaseAfter, t.AssetAfter,
	)
	return err
}

func (j *SQLiteJournal) ListTrades(limit int) ([]portfolio.Trade, error) {
	q := `
		SELECT trade_id, order_id, symbol, side, amount, price, fee, time, realized_pnl, base_after, asset_after
		FROM trades ORDER BY time DESC, trade_id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = j.db.Query(q+` LIMIT ?`, limit)
	} else {
		rows, err = j.db.Query(q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []portfolio.Trade
	for rows.Next() {
		var t portfolio.Trade
		var side string
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &side, &t.Amount, &t.Price,
			&t.Fee, &t.Time, &t.RealizedPnL, &t.BaseAfter, &t.AssetAfter); err != nil {
			return nil, err
		}
		t.Side = market.Side(side)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
