package bot

import (
	"time"

	"condorbot/market"
	"condorbot/portfolio"
	"condorbot/risk"
)

// Status is the point-in-time answer to "what is the bot doing". The
// simulated-run summary fields are set in paper mode only.
type Status struct {
	Lifecycle Lifecycle          `json:"lifecycle"`
	Mode      Mode               `json:"mode"`
	Strategy  string             `json:"strategy"`
	Symbol    string             `json:"symbol"`
	UptimeSec float64            `json:"uptime_seconds"`
	Ticks     int                `json:"ticks"`
	Skipped   int                `json:"skipped_ticks"`
	Errors    int                `json:"errors"`
	LastPrice float64            `json:"last_price"`
	LastRSI   float64            `json:"last_rsi"`
	LastSig   string             `json:"last_signal"`
	LastNote  string             `json:"last_signal_reason"`
	Portfolio portfolio.State    `json:"portfolio"`
	Risk      risk.StateSnapshot `json:"risk"`

	InitialBalance float64 `json:"initial_balance,omitempty"`
	WinRate        float64 `json:"win_rate,omitempty"`
}

// Performance aggregates the run's trading outcome.
type Performance struct {
	InitialBalance float64 `json:"initial_balance"`
	CurrentValue   float64 `json:"current_value"`
	RealizedPnL    float64 `json:"realized_pnl"`
	UnrealizedPnL  float64 `json:"unrealized_pnl"`
	TotalFees      float64 `json:"total_fees"`
	TotalTrades    int     `json:"total_trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	ReturnPct      float64 `json:"return_pct"`
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	lifecycle := c.lifecycle
	startedAt := c.startedAt
	mode := c.opts.Mode
	stratName := c.strat.Name()
	ledger := c.ledger
	c.mu.Unlock()

	var uptime float64
	if lifecycle != Stopped && !startedAt.IsZero() {
		uptime = time.Since(startedAt).Seconds()
	}

	now := time.Now().UTC()
	c.stats.mu.Lock()
	st := Status{
		Lifecycle: lifecycle,
		Mode:      mode,
		Strategy:  stratName,
		Symbol:    c.opts.Symbol,
		UptimeSec: uptime,
		Ticks:     c.stats.ticks,
		Skipped:   c.stats.skippedTicks,
		Errors:    c.stats.errors,
		LastPrice: c.stats.lastPrice,
		LastRSI:   c.stats.lastRSI,
		LastSig:   c.stats.lastSignal,
		LastNote:  c.stats.lastReason,
	}
	if mode == ModePaper {
		st.InitialBalance = c.stats.initialValue
		st.WinRate = c.stats.winRate()
	}
	c.stats.mu.Unlock()

	st.Portfolio = ledger.Snapshot()
	st.Risk = c.riskMgr.State().Snapshot(now)
	return st
}

func (c *Controller) Performance() Performance {
	c.mu.Lock()
	ledger := c.ledger
	c.mu.Unlock()
	pf := ledger.Snapshot()

	var price float64
	if tk, err := c.tickers.Get(c.opts.Symbol); err == nil {
		price = tk.Price
	}

	c.stats.mu.Lock()
	perf := Performance{
		InitialBalance: c.stats.initialValue,
		TotalTrades:    c.stats.totalTrades,
		Wins:           c.stats.wins,
		Losses:         c.stats.losses,
		WinRate:        c.stats.winRate(),
		MaxDrawdown:    c.stats.maxDrawdown,
	}
	c.stats.mu.Unlock()

	perf.RealizedPnL = pf.RealizedPnL
	perf.UnrealizedPnL = pf.UnrealizedPnL(price)
	perf.TotalFees = pf.TotalFees
	perf.CurrentValue = pf.TotalValue(price)
	if perf.InitialBalance > 0 {
		perf.ReturnPct = (perf.CurrentValue/perf.InitialBalance - 1) * 100
	}
	return perf
}

// History returns up to limit trades, newest first.
func (c *Controller) History(limit int) ([]portfolio.Trade, error) {
	return c.journal.ListTrades(limit)
}

// Ticker returns the last observed quote for the bot's symbol.
func (c *Controller) Ticker() (market.Ticker, error) {
	return c.tickers.Get(c.opts.Symbol)
}
