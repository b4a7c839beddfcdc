package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"condorbot/executor"
	"condorbot/indicators"
	"condorbot/market"
	"condorbot/notify"
	"condorbot/portfolio"
	"condorbot/strategy"
)

// loop drives the fixed-interval tick schedule. Ticks run inline, so they
// can never overlap; a timer fire that lands while a tick is still in
// flight is dropped and logged, never queued.
func (c *Controller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	// First tick immediately rather than one full interval after start.
	c.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runTick(ctx)

			select {
			case <-ticker.C:
				c.stats.recordSkip()
				c.log.Warn("tick skipped, previous tick overran the interval")
			default:
			}
		}
	}
}

func (c *Controller) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if c.paused() {
		return
	}
	if err := c.tick(ctx); err != nil {
		if errors.Is(err, portfolio.ErrInconsistentState) {
			c.fatal(err)
			return
		}
		c.stats.recordError()
		c.log.Error("tick failed", "error", err)
	}
}

// tick is one fetch-evaluate-act cycle.
func (c *Controller) tick(ctx context.Context) error {
	now := time.Now().UTC()

	ticker, err := c.md.GetTicker(ctx, c.opts.Symbol)
	if err != nil {
		return fmt.Errorf("fetch ticker: %w", err)
	}
	c.tickers.Set(ticker)
	c.notifier.Publish(notify.New(notify.EventTicker, "", ticker))

	candles, err := c.md.GetOHLCV(ctx, c.opts.Symbol, c.opts.CandleInterval, c.opts.WindowSize)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	window := market.NewWindowFrom(c.opts.WindowSize, candles)
	snap := market.NewSnapshot(c.opts.Symbol, now, ticker.Price, window)

	pf := c.ledger.Snapshot()
	c.stats.markValue(pf.TotalValue(ticker.Price))

	ind, err := indicators.Compute(snap, c.opts.Indicators)
	if err != nil {
		if errors.Is(err, indicators.ErrInsufficientData) {
			// Benign: not enough history yet, no signal this tick.
			c.stats.recordTick(ticker.Price, 0, now)
			c.log.Debug("indicator window not warm yet", "candles", snap.Len())
			return nil
		}
		return fmt.Errorf("compute indicators: %w", err)
	}
	c.stats.recordTick(ticker.Price, ind.RSI, now)

	sig := c.strat.Evaluate(snap, ind, pf)
	c.stats.recordSignal(string(sig.Action), sig.Reason)
	c.log.Debug("signal", "action", sig.Action, "fraction", sig.Fraction,
		"confidence", sig.Confidence, "reason", sig.Reason)

	if sig.Action == strategy.ActionHold {
		return nil
	}

	ap, veto := c.riskMgr.Authorize(sig, pf, ticker.Price, now)
	if veto != nil {
		c.log.Info("signal vetoed", "reason", veto.Reason, "detail", veto.Detail)
		c.notifier.Publish(notify.New(notify.EventVeto,
			fmt.Sprintf("%s: %s", veto.Reason, veto.Detail), veto))
		return nil
	}

	ord, err := c.exec.Execute(ctx, c.opts.Symbol, ap)
	if err != nil {
		return fmt.Errorf("execute order: %w", err)
	}

	switch ord.Status {
	case executor.StatusFilled:
		c.stats.recordFill(*ord.Trade)
		if obs, ok := c.strat.(strategy.FillObserver); ok {
			obs.ObserveFill(*ord.Trade)
		}
		c.stats.markValue(c.ledger.Snapshot().TotalValue(ticker.Price))
		c.notifier.Publish(notify.New(notify.EventTrade,
			fmt.Sprintf("%s %.8f %s @ %.2f", ord.Trade.Side, ord.Trade.Amount,
				c.opts.Symbol, ord.Trade.Price), ord.Trade))

	case executor.StatusFailed:
		c.notifier.Publish(notify.New(notify.EventOrderFail,
			fmt.Sprintf("order %s failed: %s", ord.ID, ord.Error), ord))

	case executor.StatusRejected:
		c.log.Warn("order rejected", "order", ord.ID, "error", ord.Error)
		c.notifier.Publish(notify.New(notify.EventOrderFail,
			fmt.Sprintf("order %s rejected: %s", ord.ID, ord.Error), ord))

	case executor.StatusCancelled:
		c.log.Info("order cancelled", "order", ord.ID)
	}
	return nil
}
