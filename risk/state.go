package risk

import (
	"sync"
	"time"
)

// StateSnapshot is a read-only copy of the mutable risk counters, used by
// status reporting and by Authorize.
type StateSnapshot struct {
	Day           time.Time `json:"day"`
	DailyLoss     float64   `json:"daily_loss"`
	DailyTrades   int       `json:"daily_trades"`
	OpenOrders    int       `json:"open_orders"`
	CooldownUntil time.Time `json:"cooldown_until,omitempty"`
}

// State tracks the counters the rules consume: realized loss and fill count
// for the current UTC day, in-flight order count, and the cooldown expiry.
// Only the risk manager and the executor mutate it.
type State struct {
	mu            sync.Mutex
	day           time.Time // UTC midnight of the day the counters belong to
	dailyLoss     float64   // positive number, accumulated realized losses
	dailyTrades   int
	openOrders    int
	cooldownUntil time.Time
}

func NewState() *State {
	return &State{}
}

// rollover clears the daily counters when the UTC calendar day changes.
// Callers hold s.mu.
func (s *State) rollover(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if day.Equal(s.day) {
		return
	}
	s.day = day
	s.dailyLoss = 0
	s.dailyTrades = 0
}

// BeginOrder increments the open-order counter once the executor takes an
// approval.
func (s *State) BeginOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openOrders++
}

// EndOrder decrements the counter when an order reaches a terminal state.
func (s *State) EndOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openOrders > 0 {
		s.openOrders--
	}
}

// RecordFill folds a filled trade into the daily counters. A realized loss
// adds to the daily-loss total and starts the cooldown.
func (s *State) RecordFill(now time.Time, realizedPnL float64, cooldown time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)
	s.dailyTrades++
	if realizedPnL < 0 {
		s.dailyLoss += -realizedPnL
		until := now.Add(cooldown)
		if until.After(s.cooldownUntil) {
			s.cooldownUntil = until
		}
	}
}

// StartCooldown pauses trading until now+d, keeping a later existing expiry.
func (s *State) StartCooldown(now time.Time, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until := now.Add(d)
	if until.After(s.cooldownUntil) {
		s.cooldownUntil = until
	}
}

// Snapshot returns a copy after applying day rollover for `now`.
func (s *State) Snapshot(now time.Time) StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)
	return StateSnapshot{
		Day:           s.day,
		DailyLoss:     s.dailyLoss,
		DailyTrades:   s.dailyTrades,
		OpenOrders:    s.openOrders,
		CooldownUntil: s.cooldownUntil,
	}
}
