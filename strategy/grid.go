package strategy

import (
	"fmt"

	"condorbot/indicators"
	"condorbot/market"
	"condorbot/portfolio"
)

// GridConfig tunes the grid strategy.
type GridConfig struct {
	// ReferencePrice anchors the ladder. Zero means "first observed price".
	ReferencePrice float64 `yaml:"reference_price"`
	// StepPct is the spacing between adjacent levels as a fraction of the
	// reference price.
	StepPct float64 `yaml:"step_pct"`
	// LevelsPerSide is the number of buy levels below and sell levels above
	// the reference.
	LevelsPerSide int `yaml:"levels_per_side"`
	// Fraction is the capital fraction requested per triggered level.
	Fraction float64 `yaml:"fraction"`
}

func (c GridConfig) withDefaults() GridConfig {
	if c.StepPct <= 0 {
		c.StepPct = 0.02
	}
	if c.LevelsPerSide <= 0 {
		c.LevelsPerSide = 3
	}
	if c.Fraction <= 0 {
		c.Fraction = 0.10
	}
	return c
}

type gridLevel struct {
	price float64
	side  market.Side
	armed bool
}

// Grid keeps a static ladder of price levels around a reference price and
// emits a signal the first time price crosses a level. A triggered level
// re-arms only after price retreats past the level by half a grid step, so
// oscillation around a level cannot double-fire.
type Grid struct {
	cfg GridConfig

	ref         float64
	step        float64 // absolute price distance between levels
	levels      []gridLevel
	lastPrice   float64
	initialized bool
}

func NewGrid(cfg GridConfig) (*Grid, error) {
	cfg = cfg.withDefaults()
	if cfg.StepPct >= 1 {
		return nil, fmt.Errorf("grid: step_pct %.2f must be below 1", cfg.StepPct)
	}
	g := &Grid{cfg: cfg}
	if cfg.ReferencePrice > 0 {
		g.build(cfg.ReferencePrice)
	}
	return g, nil
}

func (g *Grid) Name() string { return "grid" }

func (g *Grid) Reset() {
	g.initialized = false
	g.levels = nil
	if g.cfg.ReferencePrice > 0 {
		g.build(g.cfg.ReferencePrice)
	}
}

func (g *Grid) build(ref float64) {
	g.ref = ref
	g.step = ref * g.cfg.StepPct
	g.levels = make([]gridLevel, 0, 2*g.cfg.LevelsPerSide)
	for i := 1; i <= g.cfg.LevelsPerSide; i++ {
		g.levels = append(g.levels,
			gridLevel{price: ref - float64(i)*g.step, side: market.SideBuy, armed: true},
			gridLevel{price: ref + float64(i)*g.step, side: market.SideSell, armed: true},
		)
	}
}

func (g *Grid) Evaluate(snap market.Snapshot, ind indicators.Set, pf portfolio.State) Signal {
	price := snap.Price

	if !g.initialized {
		if len(g.levels) == 0 {
			g.build(price)
		}
		g.lastPrice = price
		g.initialized = true
		return Signal{
			Action:     ActionHold,
			Confidence: 1,
			Strategy:   g.Name(),
			Reason:     fmt.Sprintf("grid anchored at %.2f, step %.2f", g.ref, g.step),
		}
	}

	last := g.lastPrice
	g.lastPrice = price

	var fired *gridLevel
	for i := range g.levels {
		lv := &g.levels[i]

		switch lv.side {
		case market.SideBuy:
			if lv.armed && last > lv.price && price <= lv.price {
				lv.armed = false
				if fired == nil {
					fired = lv
				}
				continue
			}
			// Half-step hysteresis before the level can fire again.
			if !lv.armed && price >= lv.price+g.step/2 {
				lv.armed = true
			}

		case market.SideSell:
			if lv.armed && last < lv.price && price >= lv.price {
				lv.armed = false
				if fired == nil {
					fired = lv
				}
				continue
			}
			if !lv.armed && price <= lv.price-g.step/2 {
				lv.armed = true
			}
		}
	}

	if fired == nil {
		return Signal{
			Action:     ActionHold,
			Confidence: 1,
			Strategy:   g.Name(),
			Reason:     "no level crossed",
		}
	}

	return Signal{
		Action:     Action(fired.side),
		Fraction:   g.cfg.Fraction,
		Confidence: 0.75,
		Strategy:   g.Name(),
		Reason:     fmt.Sprintf("price %.2f crossed %s level %.2f", price, fired.side, fired.price),
	}
}
