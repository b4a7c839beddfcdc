// Package bot ties the engine together: one Controller per portfolio owns
// the lifecycle state machine, drives the tick loop, and exposes the
// status, history and performance read paths.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"condorbot/exchange"
	"condorbot/executor"
	"condorbot/indicators"
	"condorbot/journal"
	"condorbot/market"
	"condorbot/notify"
	"condorbot/portfolio"
	"condorbot/risk"
	"condorbot/strategy"
)

// Lifecycle is the controller's state machine position.
type Lifecycle string

const (
	Stopped Lifecycle = "stopped"
	Running Lifecycle = "running"
	Paused  Lifecycle = "paused"
)

// Mode selects the executor.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// ErrAlreadyRunning rejects a Start on a bot that is not stopped.
// Concurrent starts are rejected, never queued.
var ErrAlreadyRunning = errors.New("bot: already running")

// StartRequest optionally overrides the run configuration for one Start.
// Zero fields keep the current mode, strategy, and ledger; a non-zero
// InitialBalance replaces the ledger with a fresh one.
type StartRequest struct {
	Mode           Mode    `json:"mode,omitempty"`
	Strategy       string  `json:"strategy,omitempty"`
	InitialBalance float64 `json:"initial_balance,omitempty"`
}

func (r StartRequest) isZero() bool {
	return r.Mode == "" && r.Strategy == "" && r.InitialBalance == 0
}

// Rebuild constructs the mode-dependent pieces of a run when a start
// request overrides them. The command layer wires it with the loaded
// config; the returned executor must be bound to the given ledger.
type Rebuild func(mode Mode, strategyName string, ledger *portfolio.Ledger) (strategy.Strategy, executor.Executor, error)

// Options fixes the per-run parameters of a controller.
type Options struct {
	Symbol         string
	Mode           Mode
	TickInterval   time.Duration
	CandleInterval time.Duration
	WindowSize     int
	Indicators     indicators.Config

	// Rebuild enables start requests that switch mode, strategy, or
	// capital. When nil, such requests are refused.
	Rebuild Rebuild
}

func (o Options) withDefaults() Options {
	if o.Symbol == "" {
		o.Symbol = "BTC-CLP"
	}
	if o.Mode == "" {
		o.Mode = ModePaper
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Minute
	}
	if o.CandleInterval <= 0 {
		o.CandleInterval = time.Hour
	}
	if o.WindowSize <= 0 {
		o.WindowSize = 100
	}
	return o
}

// Controller owns one portfolio's trading loop.
type Controller struct {
	opts     Options
	md       exchange.MarketData
	strat    strategy.Strategy
	riskMgr  *risk.Manager
	exec     executor.Executor
	ledger   *portfolio.Ledger
	journal  journal.Journal
	notifier notify.Notifier
	tickers  *market.TickerStore
	log      *slog.Logger

	mu        sync.Mutex
	lifecycle Lifecycle
	startedAt time.Time
	loopStop  context.CancelFunc
	loopDone  chan struct{}

	stats stats
}

func NewController(
	opts Options,
	md exchange.MarketData,
	strat strategy.Strategy,
	rm *risk.Manager,
	exec executor.Executor,
	ledger *portfolio.Ledger,
	j journal.Journal,
	n notify.Notifier,
	log *slog.Logger,
) *Controller {
	if n == nil {
		n = notify.Discard{}
	}
	return &Controller{
		opts:      opts.withDefaults(),
		md:        md,
		strat:     strat,
		riskMgr:   rm,
		exec:      exec,
		ledger:    ledger,
		journal:   j,
		notifier:  n,
		tickers:   market.NewTickerStore(),
		log:       log,
		lifecycle: Stopped,
	}
}

// Start moves stopped to running and launches the tick loop, applying any
// overrides in the request first. A bot that is running or paused rejects
// the call.
func (c *Controller) Start(req StartRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lifecycle != Stopped {
		return fmt.Errorf("%w: lifecycle is %s", ErrAlreadyRunning, c.lifecycle)
	}
	if err := c.reconfigure(req); err != nil {
		return err
	}

	now := time.Now().UTC()
	c.lifecycle = Running
	c.startedAt = now
	c.strat.Reset()
	c.stats.reset(now, c.ledger.Snapshot().TotalValue(0))

	ctx, cancel := context.WithCancel(context.Background())
	c.loopStop = cancel
	c.loopDone = make(chan struct{})
	go c.loop(ctx, c.loopDone)

	c.log.Info("bot started",
		"symbol", c.opts.Symbol, "mode", c.opts.Mode,
		"strategy", c.strat.Name(), "interval", c.opts.TickInterval)
	c.notifier.Publish(notify.New(notify.EventLifecycle,
		fmt.Sprintf("bot started: %s on %s (%s)", c.strat.Name(), c.opts.Symbol, c.opts.Mode), nil))
	return nil
}

// reconfigure applies a start request's overrides, defaulting unset fields
// from the current run. Caller holds c.mu and has verified the bot is
// stopped.
func (c *Controller) reconfigure(req StartRequest) error {
	if req.isZero() {
		return nil
	}
	if c.opts.Rebuild == nil {
		return fmt.Errorf("bot: start parameters are not supported in this configuration")
	}
	if req.InitialBalance < 0 {
		return fmt.Errorf("bot: initial balance must be positive, got %.2f", req.InitialBalance)
	}

	mode := c.opts.Mode
	if req.Mode != "" {
		if req.Mode != ModePaper && req.Mode != ModeLive {
			return fmt.Errorf("bot: unknown mode %q", req.Mode)
		}
		mode = req.Mode
	}
	name := c.strat.Name()
	if req.Strategy != "" {
		name = req.Strategy
	}
	ledger := c.ledger
	if req.InitialBalance > 0 {
		ledger = portfolio.NewLedger(req.InitialBalance)
	}

	strat, exec, err := c.opts.Rebuild(mode, name, ledger)
	if err != nil {
		return err
	}

	c.opts.Mode = mode
	c.strat = strat
	c.exec = exec
	c.ledger = ledger
	return nil
}

// Pause suspends tick processing at the next tick boundary. Pausing a
// paused bot is a no-op success and emits no duplicate event.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.lifecycle {
	case Paused:
		return nil
	case Stopped:
		return fmt.Errorf("bot: cannot pause a stopped bot")
	}

	c.lifecycle = Paused
	c.log.Info("bot paused")
	c.notifier.Publish(notify.New(notify.EventLifecycle, "bot paused", nil))
	return nil
}

// Resume returns a paused bot to running. Resuming a running bot is a
// no-op success.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.lifecycle {
	case Running:
		return nil
	case Stopped:
		return fmt.Errorf("bot: cannot resume a stopped bot")
	}

	c.lifecycle = Running
	c.log.Info("bot resumed")
	c.notifier.Publish(notify.New(notify.EventLifecycle, "bot resumed", nil))
	return nil
}

// Stop halts the loop and cancels any in-flight order; filled trades stay
// booked. Stopping a stopped bot is a no-op success.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.lifecycle == Stopped {
		c.mu.Unlock()
		return nil
	}
	c.lifecycle = Stopped
	stop := c.loopStop
	done := c.loopDone
	c.loopStop = nil
	c.loopDone = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	if done != nil {
		<-done
	}

	c.log.Info("bot stopped")
	c.notifier.Publish(notify.New(notify.EventLifecycle, "bot stopped", nil))
	return nil
}

// fatal is the ledger-inconsistency path: force stopped, alert the
// operator, and let the loop unwind. Called from the loop goroutine, so it
// must not wait for the loop itself.
func (c *Controller) fatal(err error) {
	c.mu.Lock()
	c.lifecycle = Stopped
	stop := c.loopStop
	c.loopStop = nil
	c.loopDone = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}

	c.log.Error("fatal ledger error, trading halted", "error", err)
	c.notifier.Publish(notify.New(notify.EventAlert,
		fmt.Sprintf("trading halted, manual intervention required: %v", err), nil))
}

// State returns the current lifecycle position.
func (c *Controller) State() Lifecycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle
}

func (c *Controller) paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle == Paused
}
