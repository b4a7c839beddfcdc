package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condorbot/exchange"
	"condorbot/journal"
	"condorbot/market"
	"condorbot/portfolio"
	"condorbot/risk"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buyApproval(amount, price float64) risk.Approval {
	return risk.Approval{
		Side:     market.SideBuy,
		Amount:   amount,
		Quote:    amount * price,
		Price:    price,
		Strategy: "smart-dca",
	}
}

func TestPaperBuyFillsAndBooks(t *testing.T) {
	ledger := portfolio.NewLedger(1000)
	j := journal.NewMemory()
	rm := risk.NewManager(risk.Policy{}, risk.NewState(), discardLog())
	p := NewPaper(ledger, j, rm, 0.008, discardLog())

	ord, err := p.Execute(context.Background(), "BTC-CLP", buyApproval(1, 100))
	require.NoError(t, err)
	require.Equal(t, StatusFilled, ord.Status)
	require.NotNil(t, ord.Trade)

	// Debit is amount x price x (1 + fee rate).
	st := ledger.Snapshot()
	assert.InDelta(t, 1000-100.8, st.Base, 1e-9)
	assert.InDelta(t, 1.0, st.Asset, 1e-9)

	trades, err := j.ListTrades(0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, ord.ID, trades[0].OrderID)

	rs := rm.State().Snapshot(time.Now().UTC())
	assert.Equal(t, 1, rs.DailyTrades)
	assert.Zero(t, rs.OpenOrders)
}

func TestPaperCancelledContextLeavesLedgerUntouched(t *testing.T) {
	ledger := portfolio.NewLedger(1000)
	rm := risk.NewManager(risk.Policy{}, risk.NewState(), discardLog())
	p := NewPaper(ledger, journal.NewMemory(), rm, 0.008, discardLog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ord, err := p.Execute(ctx, "BTC-CLP", buyApproval(1, 100))
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, ord.Status)
	assert.Nil(t, ord.Trade)
	assert.InDelta(t, 1000.0, ledger.Snapshot().Base, 1e-9)
}

func TestPaperOverspendIsInconsistentState(t *testing.T) {
	ledger := portfolio.NewLedger(50)
	rm := risk.NewManager(risk.Policy{}, risk.NewState(), discardLog())
	p := NewPaper(ledger, journal.NewMemory(), rm, 0, discardLog())

	ord, err := p.Execute(context.Background(), "BTC-CLP", buyApproval(1, 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, portfolio.ErrInconsistentState)
	assert.Equal(t, StatusFailed, ord.Status)
	assert.InDelta(t, 50.0, ledger.Snapshot().Base, 1e-9)
}

// fakeTrader scripts venue behavior for the live executor.
type fakeTrader struct {
	mu            sync.Mutex
	submitErrs    []error // consumed per attempt; nil entry means success
	submits       int
	cancelled     bool
	state         exchange.OrderState
	statusErr     error
	statusErrOnce bool
}

func (f *fakeTrader) SubmitOrder(ctx context.Context, symbol string, side market.Side, amount float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.submits
	f.submits++
	if idx < len(f.submitErrs) && f.submitErrs[idx] != nil {
		return "", f.submitErrs[idx]
	}
	return "ex-1", nil
}

func (f *fakeTrader) GetOrderStatus(ctx context.Context, orderID string) (exchange.OrderState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		err := f.statusErr
		if f.statusErrOnce {
			f.statusErr = nil
		}
		return exchange.OrderState{}, err
	}
	if f.cancelled {
		return exchange.OrderState{ID: orderID, Status: exchange.OrderCancelled}, nil
	}
	return f.state, nil
}

func (f *fakeTrader) CancelOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
	return nil
}

func newTestLive(t *testing.T, ft *fakeTrader, ledger *portfolio.Ledger) (*Live, *risk.Manager) {
	t.Helper()
	rm := risk.NewManager(risk.Policy{}, risk.NewState(), discardLog())
	l := NewLive(ft, ledger, journal.NewMemory(), rm, discardLog())
	l.baseBackoff = time.Millisecond
	l.pollInterval = time.Millisecond
	return l, rm
}

func TestLiveRetriesTransientThenFills(t *testing.T) {
	ft := &fakeTrader{
		submitErrs: []error{
			&exchange.TransientError{Op: "submit", Err: errors.New("timeout")},
			&exchange.TransientError{Op: "submit", Err: errors.New("rate limit")},
			nil,
		},
		state: exchange.OrderState{
			ID: "ex-1", Status: exchange.OrderFilled,
			FilledAmount: 1, AvgPrice: 100, Fee: 0.8,
		},
	}
	ledger := portfolio.NewLedger(1000)
	l, rm := newTestLive(t, ft, ledger)

	ord, err := l.Execute(context.Background(), "BTC-CLP", buyApproval(1, 100))
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, ord.Status)
	assert.Equal(t, 3, ft.submits)
	assert.InDelta(t, 1000-100.8, ledger.Snapshot().Base, 1e-9)
	assert.Equal(t, 1, rm.State().Snapshot(time.Now().UTC()).DailyTrades)
}

func TestLiveFailsAfterMaxAttempts(t *testing.T) {
	transient := &exchange.TransientError{Op: "submit", Err: errors.New("timeout")}
	ft := &fakeTrader{submitErrs: []error{transient, transient, transient, transient}}
	ledger := portfolio.NewLedger(1000)
	l, rm := newTestLive(t, ft, ledger)

	ord, err := l.Execute(context.Background(), "BTC-CLP", buyApproval(1, 100))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, ord.Status)
	assert.Equal(t, l.maxAttempts, ft.submits)
	assert.InDelta(t, 1000.0, ledger.Snapshot().Base, 1e-9)
	assert.Zero(t, rm.State().Snapshot(time.Now().UTC()).OpenOrders)
}

func TestLiveRejectionDoesNotRetry(t *testing.T) {
	ft := &fakeTrader{submitErrs: []error{
		&exchange.RejectedError{Op: "submit", Reason: "insufficient funds"},
	}}
	ledger := portfolio.NewLedger(1000)
	l, _ := newTestLive(t, ft, ledger)

	ord, err := l.Execute(context.Background(), "BTC-CLP", buyApproval(1, 100))
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, ord.Status)
	assert.Equal(t, 1, ft.submits)
	assert.InDelta(t, 1000.0, ledger.Snapshot().Base, 1e-9)
}

func TestLiveCancelOnContextDone(t *testing.T) {
	ft := &fakeTrader{
		state: exchange.OrderState{ID: "ex-1", Status: exchange.OrderOpen},
	}
	ledger := portfolio.NewLedger(1000)
	l, _ := newTestLive(t, ft, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	ord, err := l.Execute(ctx, "BTC-CLP", buyApproval(1, 100))
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, ord.Status)
	assert.True(t, ft.cancelled)
	assert.InDelta(t, 1000.0, ledger.Snapshot().Base, 1e-9)
}

func TestLivePollDeadlineAbandonsOrder(t *testing.T) {
	// The venue leaves the order open forever.
	ft := &fakeTrader{
		state: exchange.OrderState{ID: "ex-1", Status: exchange.OrderOpen},
	}
	ledger := portfolio.NewLedger(1000)
	l, rm := newTestLive(t, ft, ledger)
	l.pollTimeout = 20 * time.Millisecond

	ord, err := l.Execute(context.Background(), "BTC-CLP", buyApproval(1, 100))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, ord.Status)
	assert.Contains(t, ord.Error, "cancelled venue-side")
	assert.True(t, ft.cancelled)

	// Nothing settled, nothing left occupied.
	assert.InDelta(t, 1000.0, ledger.Snapshot().Base, 1e-9)
	assert.Zero(t, rm.State().Snapshot(time.Now().UTC()).OpenOrders)
}

func TestLiveSurvivesOnePollError(t *testing.T) {
	ft := &fakeTrader{
		state: exchange.OrderState{
			ID: "ex-1", Status: exchange.OrderFilled,
			FilledAmount: 1, AvgPrice: 100,
		},
		statusErr:     &exchange.TransientError{Op: "status", Err: errors.New("blip")},
		statusErrOnce: true,
	}
	ledger := portfolio.NewLedger(1000)
	l, _ := newTestLive(t, ft, ledger)

	ord, err := l.Execute(context.Background(), "BTC-CLP", buyApproval(1, 100))
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, ord.Status)
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusFilled, StatusRejected, StatusCancelled, StatusFailed} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []Status{StatusPending, StatusSubmitted} {
		assert.False(t, s.Terminal(), s)
	}
}
