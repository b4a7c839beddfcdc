package risk

import (
	"fmt"
	"log/slog"
	"time"

	"condorbot/market"
	"condorbot/portfolio"
	"condorbot/strategy"
)

// Reason is the typed cause of a veto.
type Reason string

const (
	ReasonCooldown        Reason = "in_cooldown"
	ReasonOpenOrders      Reason = "too_many_open_orders"
	ReasonDailyTradeLimit Reason = "daily_trade_limit"
	ReasonMinReserve      Reason = "below_min_reserve"
	ReasonDailyLossLimit  Reason = "daily_loss_limit_exceeded"
	ReasonTradeTooSmall   Reason = "trade_too_small"
)

// Veto explains why a signal was refused. It is an ordinary value; the
// controller logs and broadcasts it, never retries it.
type Veto struct {
	Reason Reason
	Detail string
}

// Approval is an authorized, concretely sized order request. Amount is in
// asset units, Quote is its base-currency value at Price.
type Approval struct {
	Side     market.Side
	Amount   float64
	Quote    float64
	Price    float64
	Fraction float64 // effective fraction after clamping
	Strategy string
	Reason   string // the originating signal's reason
}

// Manager applies the policy rules to each signal, in a fixed order:
// cooldown, open-order cap, daily trade cap, reserve floor, single-trade
// clamp, daily-loss breaker, minimum notional.
type Manager struct {
	policy Policy
	state  *State
	log    *slog.Logger
}

func NewManager(p Policy, st *State, log *slog.Logger) *Manager {
	return &Manager{policy: p.withDefaults(), state: st, log: log}
}

func (m *Manager) Policy() Policy { return m.policy }

func (m *Manager) State() *State { return m.state }

// Cooldown is the configured pause after a losing trade.
func (m *Manager) Cooldown() time.Duration {
	return time.Duration(m.policy.CooldownMinutes) * time.Minute
}

// Authorize turns a strategy signal into either an approval carrying a
// concrete order size, or a veto. Hold signals are never passed in.
func (m *Manager) Authorize(sig strategy.Signal, pf portfolio.State, price float64, now time.Time) (Approval, *Veto) {
	st := m.state.Snapshot(now)
	total := pf.TotalValue(price)

	if now.Before(st.CooldownUntil) {
		return Approval{}, &Veto{
			Reason: ReasonCooldown,
			Detail: fmt.Sprintf("cooldown active until %s", st.CooldownUntil.UTC().Format(time.RFC3339)),
		}
	}

	if st.OpenOrders >= m.policy.MaxOpenOrders {
		return Approval{}, &Veto{
			Reason: ReasonOpenOrders,
			Detail: fmt.Sprintf("%d open orders at limit %d", st.OpenOrders, m.policy.MaxOpenOrders),
		}
	}

	if st.DailyTrades >= m.policy.MaxDailyTrades {
		return Approval{}, &Veto{
			Reason: ReasonDailyTradeLimit,
			Detail: fmt.Sprintf("%d trades today at limit %d", st.DailyTrades, m.policy.MaxDailyTrades),
		}
	}

	// Requested notional in base currency.
	fraction := sig.Fraction
	var quote float64
	switch sig.Action {
	case strategy.ActionBuy:
		quote = fraction * pf.Base
	case strategy.ActionSell:
		quote = fraction * pf.Asset * price
	default:
		return Approval{}, &Veto{Reason: ReasonTradeTooSmall, Detail: "hold signal carries no trade"}
	}

	if sig.Action == strategy.ActionBuy {
		cost := quote * (1 + m.policy.FeeRate)
		if pf.Base-cost < m.policy.MinBaseReserve {
			return Approval{}, &Veto{
				Reason: ReasonMinReserve,
				Detail: fmt.Sprintf("buy of %.2f would leave %.2f, reserve is %.2f",
					cost, pf.Base-cost, m.policy.MinBaseReserve),
			}
		}
	}

	// Clamp, never veto, on the single-trade cap.
	if maxQuote := m.policy.MaxSingleTradeFraction * total; quote > maxQuote {
		m.log.Debug("resizing trade to single-trade cap",
			"requested", quote, "clamped", maxQuote)
		quote = maxQuote
		if total > 0 {
			switch sig.Action {
			case strategy.ActionBuy:
				fraction = quote / pf.Base
			case strategy.ActionSell:
				fraction = quote / (pf.Asset * price)
			}
		}
	}

	if lossLimit := m.policy.MaxDailyLossFraction * total; st.DailyLoss > lossLimit {
		m.state.StartCooldown(now, m.Cooldown())
		return Approval{}, &Veto{
			Reason: ReasonDailyLossLimit,
			Detail: fmt.Sprintf("daily loss %.2f over limit %.2f, cooling down", st.DailyLoss, lossLimit),
		}
	}

	if quote < m.policy.MinTradeValue {
		return Approval{}, &Veto{
			Reason: ReasonTradeTooSmall,
			Detail: fmt.Sprintf("trade value %.2f below minimum %.2f", quote, m.policy.MinTradeValue),
		}
	}

	if price <= 0 || quote <= 0 {
		return Approval{}, &Veto{
			Reason: ReasonTradeTooSmall,
			Detail: fmt.Sprintf("degenerate trade: price %.4f, value %.4f", price, quote),
		}
	}

	side := market.SideBuy
	if sig.Action == strategy.ActionSell {
		side = market.SideSell
	}
	return Approval{
		Side:     side,
		Amount:   quote / price,
		Quote:    quote,
		Price:    price,
		Fraction: fraction,
		Strategy: sig.Strategy,
		Reason:   sig.Reason,
	}, nil
}
