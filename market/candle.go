// Package market holds the spot-market domain types shared by the engine:
// candles, rolling windows, tickers and point-in-time snapshots.
package market

import "time"

// Candle is one OHLCV bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Side is the direction of an order or trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Window is a fixed-capacity ordered candle sequence. Pushing past capacity
// evicts the oldest bar.
type Window struct {
	capacity int
	candles  []Candle
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		candles:  make([]Candle, 0, capacity),
	}
}

// NewWindowFrom builds a window from an already-ordered candle slice,
// keeping only the newest `capacity` bars.
func NewWindowFrom(capacity int, candles []Candle) *Window {
	w := NewWindow(capacity)
	for _, c := range candles {
		w.Push(c)
	}
	return w
}

func (w *Window) Push(c Candle) {
	if len(w.candles) == w.capacity {
		copy(w.candles, w.candles[1:])
		w.candles = w.candles[:w.capacity-1]
	}
	w.candles = append(w.candles, c)
}

func (w *Window) Len() int { return len(w.candles) }

func (w *Window) Capacity() int { return w.capacity }

// Candles returns a copy of the window contents, oldest first.
func (w *Window) Candles() []Candle {
	out := make([]Candle, len(w.candles))
	copy(out, w.candles)
	return out
}

// Closes returns the close prices, oldest first.
func (w *Window) Closes() []float64 {
	out := make([]float64, len(w.candles))
	for i, c := range w.candles {
		out[i] = c.Close
	}
	return out
}

// Last returns the newest candle, if any.
func (w *Window) Last() (Candle, bool) {
	if len(w.candles) == 0 {
		return Candle{}, false
	}
	return w.candles[len(w.candles)-1], true
}
