package market

import (
	"errors"
	"sync"
	"time"
)

// Ticker is the latest exchange quote for a symbol.
type Ticker struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	Volume    float64   `json:"volume"`
	Time      time.Time `json:"time"`
}

// Snapshot is one tick's view of the market: last price plus the rolling
// OHLCV window it was derived from. It is immutable once produced; each
// tick replaces the previous snapshot wholesale.
type Snapshot struct {
	Symbol  string
	Time    time.Time
	Price   float64
	candles []Candle
}

func NewSnapshot(symbol string, at time.Time, price float64, w *Window) Snapshot {
	return Snapshot{
		Symbol:  symbol,
		Time:    at,
		Price:   price,
		candles: w.Candles(),
	}
}

// Candles returns the snapshot's window, oldest first. Callers get a copy
// and cannot mutate the snapshot.
func (s Snapshot) Candles() []Candle {
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

func (s Snapshot) Closes() []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.Close
	}
	return out
}

func (s Snapshot) Len() int { return len(s.candles) }

// ErrTickerNotFound is returned by TickerStore.Get for unknown symbols.
var ErrTickerNotFound = errors.New("market: ticker not found")

// TickerStore keeps the last known ticker per symbol for status reads.
type TickerStore struct {
	mu      sync.RWMutex
	tickers map[string]Ticker
}

func NewTickerStore() *TickerStore {
	return &TickerStore{tickers: make(map[string]Ticker)}
}

func (ts *TickerStore) Set(t Ticker) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tickers[t.Symbol] = t
}

func (ts *TickerStore) Get(symbol string) (Ticker, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.tickers[symbol]
	if !ok {
		return Ticker{}, ErrTickerNotFound
	}
	return t, nil
}
