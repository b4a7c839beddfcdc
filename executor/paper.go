package executor

import (
	"context"
	"log/slog"
	"time"

	"condorbot/journal"
	"condorbot/pkg/id"
	"condorbot/portfolio"
	"condorbot/risk"
)

// Paper fills orders synthetically at the approval price: no venue call,
// fee simulated from the configured rate, ledger updated immediately.
type Paper struct {
	ledger  *portfolio.Ledger
	journal journal.Journal
	risk    *risk.Manager
	feeRate float64
	log     *slog.Logger
	now     func() time.Time
}

func NewPaper(ledger *portfolio.Ledger, j journal.Journal, rm *risk.Manager, feeRate float64, log *slog.Logger) *Paper {
	return &Paper{
		ledger:  ledger,
		journal: j,
		risk:    rm,
		feeRate: feeRate,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (p *Paper) Execute(ctx context.Context, symbol string, ap risk.Approval) (*Order, error) {
	now := p.now()
	ord := &Order{
		ID:       id.New(),
		Symbol:   symbol,
		Approval: ap,
		Status:   StatusPending,
		Created:  now,
		Updated:  now,
	}

	p.risk.State().BeginOrder()
	defer p.risk.State().EndOrder()

	ord.Status = StatusSubmitted
	ord.Updated = p.now()

	// A stop between submission and fill cancels without touching the
	// ledger.
	if err := ctx.Err(); err != nil {
		ord.Status = StatusCancelled
		ord.Error = err.Error()
		ord.Updated = p.now()
		return ord, nil
	}

	trade := &portfolio.Trade{
		ID:      id.New(),
		OrderID: ord.ID,
		Symbol:  symbol,
		Side:    ap.Side,
		Amount:  ap.Amount,
		Price:   ap.Price,
		Fee:     ap.Amount * ap.Price * p.feeRate,
		Time:    p.now(),
	}

	if _, err := p.ledger.ApplyTrade(trade); err != nil {
		ord.Status = StatusFailed
		ord.Error = err.Error()
		ord.Updated = p.now()
		return ord, err
	}

	if err := p.journal.RecordTrade(*trade); err != nil {
		// Persistence trouble should not unwind a booked fill.
		p.log.Error("journal write failed", "trade", trade.ID, "error", err)
	}
	p.risk.State().RecordFill(trade.Time, trade.RealizedPnL, p.risk.Cooldown())

	ord.Status = StatusFilled
	ord.Trade = trade
	ord.Updated = p.now()
	p.log.Info("paper fill",
		"order", ord.ID, "side", ap.Side, "amount", ap.Amount,
		"price", ap.Price, "fee", trade.Fee, "strategy", ap.Strategy)
	return ord, nil
}
