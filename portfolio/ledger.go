// Package portfolio owns the financial state of the bot. The Ledger is the
// single writer of balances; every other component reads committed
// snapshots.
package portfolio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"condorbot/market"
)

// ErrInconsistentState means a trade would drive a balance negative. This
// is a logic defect, not a recoverable business condition: the controller
// must halt order submission when it sees it.
var ErrInconsistentState = errors.New("portfolio: inconsistent state")

// Trade is a terminal, filled order with its actual fill economics.
// Immutable once applied to the ledger.
type Trade struct {
	ID      string      `json:"id"`
	OrderID string      `json:"order_id"`
	Symbol  string      `json:"symbol"`
	Side    market.Side `json:"side"`
	// Amount is the asset quantity bought or sold.
	Amount float64 `json:"amount"`
	// Price is the fill price in base currency per asset unit.
	Price float64 `json:"price"`
	// Fee is the exchange fee in base currency.
	Fee  float64   `json:"fee"`
	Time time.Time `json:"time"`

	// Set by the ledger when the trade is applied.
	RealizedPnL float64 `json:"realized_pnl"`
	BaseAfter   float64 `json:"base_after"`
	AssetAfter  float64 `json:"asset_after"`
}

// Value returns the gross trade value (amount x price), excluding fees.
func (t Trade) Value() float64 { return t.Amount * t.Price }

// State is a committed snapshot of the portfolio.
type State struct {
	Base          float64 `json:"base_balance"`
	Asset         float64 `json:"asset_balance"`
	AvgBuyPrice   float64 `json:"avg_buy_price"`
	RealizedPnL   float64 `json:"realized_pnl"`
	TotalInvested float64 `json:"total_invested"`
	TotalFees     float64 `json:"total_fees"`
}

// TotalValue returns base plus asset holdings marked at the given price.
func (s State) TotalValue(price float64) float64 {
	return s.Base + s.Asset*price
}

// UnrealizedPnL returns the open position's gain against the average buy
// price at the given mark.
func (s State) UnrealizedPnL(price float64) float64 {
	return s.Asset * (price - s.AvgBuyPrice)
}

// Ledger is the sole mutator of portfolio state. All writes are serialized;
// a mutation either commits fully or leaves the state untouched.
type Ledger struct {
	mu          sync.Mutex
	st          State
	totalBought float64 // cumulative asset bought, weights the avg buy price
}

func NewLedger(initialBase float64) *Ledger {
	return &Ledger{st: State{Base: initialBase}}
}

// Snapshot returns the current committed state.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st
}

// ApplyTrade books a filled trade: balances, weighted average buy price,
// and realized P&L (sells only, against the average buy price). It fills in
// the trade's RealizedPnL and balances-after fields. Validation happens
// before any mutation, so a rejected trade leaves the ledger unchanged.
func (l *Ledger) ApplyTrade(t *Trade) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch t.Side {
	case market.SideBuy:
		cost := t.Value() + t.Fee
		if cost > l.st.Base {
			return l.st, fmt.Errorf("%w: buy cost %.2f exceeds base balance %.2f",
				ErrInconsistentState, cost, l.st.Base)
		}

		l.st.Base -= cost
		l.st.Asset += t.Amount
		l.st.TotalInvested += cost
		l.st.TotalFees += t.Fee

		prev := l.totalBought * l.st.AvgBuyPrice
		l.totalBought += t.Amount
		if l.totalBought > 0 {
			l.st.AvgBuyPrice = (prev + t.Value()) / l.totalBought
		}
		t.RealizedPnL = 0

	case market.SideSell:
		if t.Amount > l.st.Asset {
			return l.st, fmt.Errorf("%w: sell amount %.8f exceeds asset balance %.8f",
				ErrInconsistentState, t.Amount, l.st.Asset)
		}

		proceeds := t.Value() - t.Fee
		pnl := t.Amount*(t.Price-l.st.AvgBuyPrice) - t.Fee

		l.st.Asset -= t.Amount
		l.st.Base += proceeds
		l.st.RealizedPnL += pnl
		l.st.TotalFees += t.Fee
		t.RealizedPnL = pnl

	default:
		return l.st, fmt.Errorf("portfolio: unknown trade side %q", t.Side)
	}

	t.BaseAfter = l.st.Base
	t.AssetAfter = l.st.Asset
	return l.st, nil
}
