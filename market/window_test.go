package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func bar(close float64) Candle {
	return Candle{Close: close}
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for _, c := range []float64{1, 2, 3, 4, 5} {
		w.Push(bar(c))
	}

	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{3, 4, 5}, w.Closes())

	last, ok := w.Last()
	assert.True(t, ok)
	assert.Equal(t, 5.0, last.Close)
}

func TestWindowEmpty(t *testing.T) {
	w := NewWindow(4)
	_, ok := w.Last()
	assert.False(t, ok)
	assert.Equal(t, 0, w.Len())
}

func TestNewWindowFromKeepsNewest(t *testing.T) {
	candles := []Candle{bar(1), bar(2), bar(3), bar(4)}
	w := NewWindowFrom(2, candles)
	assert.Equal(t, []float64{3, 4}, w.Closes())
}

func TestSnapshotIsolatedFromWindow(t *testing.T) {
	w := NewWindow(3)
	w.Push(bar(10))
	w.Push(bar(11))

	snap := NewSnapshot("BTC-CLP", time.Now(), 11, w)
	w.Push(bar(12))
	w.Push(bar(13))

	// Snapshot keeps the window as it was at creation time.
	assert.Equal(t, []float64{10, 11}, snap.Closes())
	assert.Equal(t, []float64{11, 12, 13}, w.Closes())
}

func TestTickerStore(t *testing.T) {
	ts := NewTickerStore()
	_, err := ts.Get("BTC-CLP")
	assert.ErrorIs(t, err, ErrTickerNotFound)

	ts.Set(Ticker{Symbol: "BTC-CLP", Price: 95_000_000})
	got, err := ts.Get("BTC-CLP")
	assert.NoError(t, err)
	assert.Equal(t, 95_000_000.0, got.Price)
}
