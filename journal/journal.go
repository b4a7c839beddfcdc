// Package journal persists filled trades. Three backends implement the
// same interface: sqlite for the default single-binary setup, postgres for
// shared deployments, and an in-memory journal for paper runs and tests.
package journal

import (
	"condorbot/portfolio"
)

type Journal interface {
	RecordTrade(t portfolio.Trade) error

	// ListTrades returns up to limit trades, newest first. limit <= 0 means
	// no limit.
	ListTrades(limit int) ([]portfolio.Trade, error)

	Close() error
}
