package strategy

import (
	"fmt"
	"time"

	"condorbot/indicators"
	"condorbot/market"
	"condorbot/portfolio"
)

// DCAConfig tunes the Smart-DCA strategy.
type DCAConfig struct {
	// Interval is the cadence between scheduled buys.
	Interval time.Duration `yaml:"interval"`
	// RSIOverbought suppresses scheduled buys above this level.
	RSIOverbought float64 `yaml:"rsi_overbought"`
	// RSIOversold triggers an out-of-cadence accelerated buy below this level.
	RSIOversold float64 `yaml:"rsi_oversold"`
	// BaseFraction is the scheduled purchase size as a fraction of capital.
	BaseFraction float64 `yaml:"base_fraction"`
	// AccelerateFraction is added to BaseFraction on oversold buys.
	AccelerateFraction float64 `yaml:"accelerate_fraction"`
	// MaxFraction caps any single DCA purchase.
	MaxFraction float64 `yaml:"max_fraction"`
}

func (c DCAConfig) withDefaults() DCAConfig {
	if c.Interval <= 0 {
		c.Interval = 72 * time.Hour
	}
	if c.RSIOverbought <= 0 {
		c.RSIOverbought = 70
	}
	if c.RSIOversold <= 0 {
		c.RSIOversold = 30
	}
	if c.BaseFraction <= 0 {
		c.BaseFraction = 0.10
	}
	if c.AccelerateFraction <= 0 {
		c.AccelerateFraction = 0.15
	}
	if c.MaxFraction <= 0 {
		c.MaxFraction = 0.25
	}
	return c
}

// SmartDCA buys on a fixed cadence, skips buys when the market is
// overbought, and accelerates off-cadence when it is oversold. It never
// sells.
type SmartDCA struct {
	cfg     DCAConfig
	lastBuy time.Time
}

func NewSmartDCA(cfg DCAConfig) *SmartDCA {
	return &SmartDCA{cfg: cfg.withDefaults()}
}

func (s *SmartDCA) Name() string { return "smart-dca" }

func (s *SmartDCA) Reset() { s.lastBuy = time.Time{} }

// ObserveFill restarts the cadence clock after each filled buy.
func (s *SmartDCA) ObserveFill(t portfolio.Trade) {
	if t.Side == market.SideBuy {
		s.lastBuy = t.Time
	}
}

func (s *SmartDCA) Evaluate(snap market.Snapshot, ind indicators.Set, pf portfolio.State) Signal {
	rsi := ind.RSI

	switch {
	case rsi > s.cfg.RSIOverbought:
		return Signal{
			Action:     ActionHold,
			Confidence: 0.8,
			Strategy:   s.Name(),
			Reason:     fmt.Sprintf("rsi %.1f above %.0f, waiting for a better entry", rsi, s.cfg.RSIOverbought),
		}

	case rsi < s.cfg.RSIOversold:
		fraction := s.cfg.BaseFraction + s.cfg.AccelerateFraction
		if fraction > s.cfg.MaxFraction {
			fraction = s.cfg.MaxFraction
		}
		return Signal{
			Action:     ActionBuy,
			Fraction:   fraction,
			Confidence: 0.85,
			Strategy:   s.Name(),
			Reason:     fmt.Sprintf("rsi %.1f below %.0f, accelerated buy", rsi, s.cfg.RSIOversold),
		}

	case s.due(snap.Time):
		return Signal{
			Action:     ActionBuy,
			Fraction:   s.cfg.BaseFraction,
			Confidence: 0.7,
			Strategy:   s.Name(),
			Reason:     fmt.Sprintf("scheduled buy, rsi %.1f in normal range", rsi),
		}

	default:
		return Signal{
			Action:     ActionHold,
			Confidence: 0.6,
			Strategy:   s.Name(),
			Reason:     fmt.Sprintf("rsi %.1f normal, next buy cycle pending", rsi),
		}
	}
}

func (s *SmartDCA) due(now time.Time) bool {
	if s.lastBuy.IsZero() {
		return true
	}
	return now.Sub(s.lastBuy) >= s.cfg.Interval
}
