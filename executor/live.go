package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"condorbot/exchange"
	"condorbot/journal"
	"condorbot/pkg/id"
	"condorbot/portfolio"
	"condorbot/risk"
)

// Live submits orders to the venue and polls them to a terminal state.
// Transient submit failures retry with exponential backoff up to
// MaxAttempts; rejections do not retry.
type Live struct {
	trader  exchange.Trader
	ledger  *portfolio.Ledger
	journal journal.Journal
	risk    *risk.Manager
	log     *slog.Logger

	maxAttempts  int
	baseBackoff  time.Duration
	pollInterval time.Duration
	pollTimeout  time.Duration
	now          func() time.Time
}

func NewLive(trader exchange.Trader, ledger *portfolio.Ledger, j journal.Journal, rm *risk.Manager, log *slog.Logger) *Live {
	return &Live{
		trader:       trader,
		ledger:       ledger,
		journal:      j,
		risk:         rm,
		log:          log,
		maxAttempts:  4,
		baseBackoff:  500 * time.Millisecond,
		pollInterval: time.Second,
		pollTimeout:  2 * time.Minute,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (l *Live) Execute(ctx context.Context, symbol string, ap risk.Approval) (*Order, error) {
	now := l.now()
	ord := &Order{
		ID:       id.New(),
		Symbol:   symbol,
		Approval: ap,
		Status:   StatusPending,
		Created:  now,
		Updated:  now,
	}

	l.risk.State().BeginOrder()
	defer l.risk.State().EndOrder()

	// The order's terminal status carries submission failures; Execute
	// only returns an error for ledger inconsistency.
	exchangeID, err := l.submit(ctx, ord, symbol, ap)
	if err != nil {
		return ord, nil
	}
	ord.ExchangeID = exchangeID
	ord.Status = StatusSubmitted
	ord.Updated = l.now()
	l.log.Info("order submitted", "order", ord.ID, "exchange_id", exchangeID,
		"side", ap.Side, "amount", ap.Amount)

	return l.await(ctx, ord)
}

// submit retries transient failures with exponential backoff. The order is
// left in a terminal status when submission gives up.
func (l *Live) submit(ctx context.Context, ord *Order, symbol string, ap risk.Approval) (string, error) {
	var lastErr error
	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := l.baseBackoff << (attempt - 1)
			l.log.Warn("retrying order submission",
				"order", ord.ID, "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				ord.Status = StatusCancelled
				ord.Error = ctx.Err().Error()
				ord.Updated = l.now()
				return "", ctx.Err()
			}
		}

		exchangeID, err := l.trader.SubmitOrder(ctx, symbol, ap.Side, ap.Amount)
		if err == nil {
			return exchangeID, nil
		}
		if !exchange.IsTransient(err) {
			ord.Status = StatusRejected
			ord.Error = err.Error()
			ord.Updated = l.now()
			l.log.Warn("order rejected", "order", ord.ID, "error", err)
			return "", err
		}
		lastErr = err
	}

	ord.Status = StatusFailed
	ord.Error = fmt.Sprintf("submission failed after %d attempts: %v", l.maxAttempts, lastErr)
	ord.Updated = l.now()
	l.log.Error("order failed", "order", ord.ID, "attempts", l.maxAttempts, "error", lastErr)
	return "", lastErr
}

// await polls the venue until the order is terminal. Context cancellation
// requests a venue-side cancel and reports the order cancelled; an order
// that never turns terminal within pollTimeout is cancelled venue-side and
// reported failed, so one stuck order cannot occupy the tick loop forever.
func (l *Live) await(ctx context.Context, ord *Order) (*Order, error) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(l.pollTimeout)
	defer deadline.Stop()

	for {
		st, err := l.trader.GetOrderStatus(ctx, ord.ExchangeID)
		if err != nil {
			if !exchange.IsTransient(err) {
				ord.Status = StatusFailed
				ord.Error = err.Error()
				ord.Updated = l.now()
				return ord, nil
			}
			l.log.Warn("order status poll failed", "order", ord.ID, "error", err)
		} else {
			switch st.Status {
			case exchange.OrderFilled:
				return l.settle(ord, st)
			case exchange.OrderRejected:
				ord.Status = StatusRejected
				ord.Error = "rejected by exchange"
				ord.Updated = l.now()
				return ord, nil
			case exchange.OrderCancelled:
				ord.Status = StatusCancelled
				ord.Updated = l.now()
				return ord, nil
			}
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			return l.abandon(ord)
		case <-ctx.Done():
			return l.cancel(ord)
		}
	}
}

func (l *Live) cancel(ord *Order) (*Order, error) {
	l.requestVenueCancel(ord)
	ord.Status = StatusCancelled
	ord.Updated = l.now()
	return ord, nil
}

// abandon gives up on an order that stayed non-terminal past the poll
// deadline: cancel it venue-side and report it failed.
func (l *Live) abandon(ord *Order) (*Order, error) {
	l.requestVenueCancel(ord)
	ord.Status = StatusFailed
	ord.Error = fmt.Sprintf("no terminal state after %s, cancelled venue-side", l.pollTimeout)
	ord.Updated = l.now()
	l.log.Error("order abandoned after poll deadline",
		"order", ord.ID, "exchange_id", ord.ExchangeID, "timeout", l.pollTimeout)
	return ord, nil
}

func (l *Live) requestVenueCancel(ord *Order) {
	// The loop context may be gone; give the venue call its own deadline.
	cctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	if err := l.trader.CancelOrder(cctx, ord.ExchangeID); err != nil {
		l.log.Error("venue cancel failed, order may still fill",
			"order", ord.ID, "exchange_id", ord.ExchangeID, "error", err)
	}
}

func (l *Live) settle(ord *Order, st exchange.OrderState) (*Order, error) {
	price := st.AvgPrice
	if price == 0 {
		price = ord.Approval.Price
	}

	trade := &portfolio.Trade{
		ID:      id.New(),
		OrderID: ord.ID,
		Symbol:  ord.Symbol,
		Side:    ord.Approval.Side,
		Amount:  st.FilledAmount,
		Price:   price,
		Fee:     st.Fee,
		Time:    l.now(),
	}

	if _, err := l.ledger.ApplyTrade(trade); err != nil {
		ord.Status = StatusFailed
		ord.Error = err.Error()
		ord.Updated = l.now()
		return ord, err
	}

	if err := l.journal.RecordTrade(*trade); err != nil {
		l.log.Error("journal write failed", "trade", trade.ID, "error", err)
	}
	l.risk.State().RecordFill(trade.Time, trade.RealizedPnL, l.risk.Cooldown())

	ord.Status = StatusFilled
	ord.Trade = trade
	ord.Updated = l.now()
	l.log.Info("live fill", "order", ord.ID, "amount", trade.Amount,
		"price", trade.Price, "fee", trade.Fee)
	return ord, nil
}
