// Package risk guards every signal before it reaches the executor. The
// manager applies a fixed rule sequence and either vetoes the trade with a
// typed reason or returns an approval with a concrete, clamped order
// amount. Vetoes are values, not errors.
package risk

// Policy holds the hard safety limits. Zero values are replaced by the
// defaults below at construction time.
type Policy struct {
	// MaxOpenOrders caps concurrently in-flight orders.
	MaxOpenOrders int `yaml:"max_open_orders"` // 1

	// MaxDailyTrades caps fills per UTC day.
	MaxDailyTrades int `yaml:"max_daily_trades"` // 10

	// MinBaseReserve is the base-currency floor a buy may never dip below.
	MinBaseReserve float64 `yaml:"min_base_reserve"` // 0

	// MaxSingleTradeFraction clamps one trade's value against total
	// portfolio value.
	MaxSingleTradeFraction float64 `yaml:"max_single_trade_fraction"` // 0.25

	// MaxDailyLossFraction is the realized-loss circuit breaker, as a
	// fraction of total portfolio value.
	MaxDailyLossFraction float64 `yaml:"max_daily_loss_fraction"` // 0.05

	// MinTradeValue vetoes trades so small the exchange fee eats the edge.
	MinTradeValue float64 `yaml:"min_trade_value"` // 0

	// CooldownMinutes is how long trading pauses after a losing fill or a
	// daily-loss veto.
	CooldownMinutes int `yaml:"cooldown_minutes"` // 60

	// FeeRate mirrors the exchange taker fee so the reserve check accounts
	// for the full debit.
	FeeRate float64 `yaml:"fee_rate"` // 0.008
}

func (p Policy) withDefaults() Policy {
	if p.MaxOpenOrders <= 0 {
		p.MaxOpenOrders = 1
	}
	if p.MaxDailyTrades <= 0 {
		p.MaxDailyTrades = 10
	}
	if p.MaxSingleTradeFraction <= 0 {
		p.MaxSingleTradeFraction = 0.25
	}
	if p.MaxDailyLossFraction <= 0 {
		p.MaxDailyLossFraction = 0.05
	}
	if p.CooldownMinutes <= 0 {
		p.CooldownMinutes = 60
	}
	return p
}
