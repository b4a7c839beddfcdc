package bot

import (
	"sync"
	"time"

	"condorbot/market"
	"condorbot/portfolio"
)

// stats accumulates per-run counters. Reset on every Start.
type stats struct {
	mu sync.Mutex

	startTime    time.Time
	ticks        int
	skippedTicks int
	errors       int

	totalTrades int
	wins        int
	losses      int

	lastPrice  float64
	lastRSI    float64
	lastSignal string
	lastReason string
	lastTick   time.Time

	initialValue float64
	peakValue    float64
	maxDrawdown  float64 // fraction of peak, 0..1
}

func (s *stats) reset(now time.Time, initialValue float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTime = now
	s.ticks = 0
	s.skippedTicks = 0
	s.errors = 0
	s.totalTrades = 0
	s.wins = 0
	s.losses = 0
	s.lastPrice = 0
	s.lastRSI = 0
	s.lastSignal = ""
	s.lastReason = ""
	s.lastTick = time.Time{}
	s.initialValue = initialValue
	s.peakValue = initialValue
	s.maxDrawdown = 0
}

func (s *stats) recordTick(price, rsi float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	s.lastPrice = price
	s.lastRSI = rsi
	s.lastTick = at
}

func (s *stats) recordSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skippedTicks++
}

func (s *stats) recordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

func (s *stats) recordSignal(action, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSignal = action
	s.lastReason = reason
}

// recordFill counts the trade; only sells book a win or a loss, since a buy
// has no realized outcome yet.
func (s *stats) recordFill(t portfolio.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalTrades++
	if t.Side == market.SideSell {
		if t.RealizedPnL >= 0 {
			s.wins++
		} else {
			s.losses++
		}
	}
}

// markValue tracks the portfolio's peak and the deepest drop from it.
func (s *stats) markValue(total float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total > s.peakValue {
		s.peakValue = total
	}
	if s.peakValue > 0 {
		if dd := 1 - total/s.peakValue; dd > s.maxDrawdown {
			s.maxDrawdown = dd
		}
	}
}

func (s *stats) winRate() float64 {
	closed := s.wins + s.losses
	if closed == 0 {
		return 0
	}
	return float64(s.wins) / float64(closed)
}
