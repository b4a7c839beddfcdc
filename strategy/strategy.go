// Package strategy contains the decision units of the trading engine. A
// strategy maps a market snapshot, its indicators and the current portfolio
// to a trading signal; it never talks to the exchange or mutates balances.
package strategy

import (
	"fmt"
	"log/slog"
	"strings"

	"condorbot/indicators"
	"condorbot/market"
	"condorbot/portfolio"
)

// Action is the proposed direction of a signal.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal is a strategy's proposal for the current tick, before risk
// authorization. Produced fresh each tick and never persisted.
type Signal struct {
	Action Action
	// Fraction is the requested fraction of capital, in [0,1].
	Fraction   float64
	Confidence float64
	Strategy   string
	Reason     string
}

// Strategy is the capability every decision unit implements.
//
// Implementations are stateless across ticks except for explicitly declared
// internal counters (DCA cadence, grid trigger flags); that state is owned
// by the instance and cleared by Reset on controller restart.
type Strategy interface {
	Name() string
	Evaluate(snap market.Snapshot, ind indicators.Set, pf portfolio.State) Signal
	Reset()
}

// FillObserver is implemented by strategies that track their own fills,
// e.g. the DCA cadence clock. The controller feeds it after each filled
// order.
type FillObserver interface {
	ObserveFill(t portfolio.Trade)
}

// Config carries the per-strategy settings from the config file.
type Config struct {
	DCA     DCAConfig     `yaml:"dca"`
	Grid    GridConfig    `yaml:"grid"`
	Learned LearnedConfig `yaml:"learned"`
}

// Names lists the strategies New accepts.
func Names() []string {
	return []string{"smart-dca", "grid", "learned"}
}

// New builds a strategy by name.
func New(name string, cfg Config, log *slog.Logger) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "smart-dca", "smart_dca", "dca":
		return NewSmartDCA(cfg.DCA), nil

	case "grid":
		return NewGrid(cfg.Grid)

	case "learned", "rl":
		cfg.Learned = cfg.Learned.withDefaults()
		var dec Decider
		if cfg.Learned.ModelPath != "" {
			d, err := NewONNXDecider(cfg.Learned.ModelPath, cfg.Learned.FeatureWindow)
			if err != nil {
				// Degrade to hold-only rather than refusing to start; the
				// operator sees why in the log.
				log.Warn("learned strategy model unavailable, holding only",
					"model", cfg.Learned.ModelPath, "error", err)
			} else {
				dec = d
			}
		}
		return NewLearned(cfg.Learned, dec, log), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)",
			name, strings.Join(Names(), ", "))
	}
}
