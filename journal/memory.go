package journal

import (
	"sync"

	"condorbot/portfolio"
)

// MemoryJournal keeps trades in process memory. Used by paper runs that do
// not need persistence, and by tests.
type MemoryJournal struct {
	mu     sync.Mutex
	trades []portfolio.Trade
}

func NewMemory() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) RecordTrade(t portfolio.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, t)
	return nil
}

func (j *MemoryJournal) ListTrades(limit int) ([]portfolio.Trade, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := len(j.trades)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]portfolio.Trade, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, j.trades[i])
	}
	return out, nil
}

func (j *MemoryJournal) Close() error { return nil }
