package strategy

import (
	"fmt"
	"log/slog"

	"condorbot/indicators"
	"condorbot/market"
	"condorbot/portfolio"
)

// Decider produces a trade decision from a feature vector. Implementations
// wrap a trained model; see ONNXDecider.
type Decider interface {
	Decide(features []float32) (Action, float32, error)
	Close() error
}

// LearnedConfig tunes the model-backed strategy.
type LearnedConfig struct {
	ModelPath     string  `yaml:"model_path"`
	FeatureWindow int     `yaml:"feature_window"`
	Fraction      float64 `yaml:"fraction"`
	MinConfidence float64 `yaml:"min_confidence"`
}

func (c LearnedConfig) withDefaults() LearnedConfig {
	if c.FeatureWindow <= 0 {
		c.FeatureWindow = 30
	}
	if c.Fraction <= 0 {
		c.Fraction = 0.10
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.55
	}
	return c
}

// Learned delegates the buy/sell/hold decision to a Decider. Any inference
// failure degrades to hold for that tick; the bot never trades on a broken
// model.
type Learned struct {
	cfg LearnedConfig
	dec Decider
	log *slog.Logger
}

func NewLearned(cfg LearnedConfig, dec Decider, log *slog.Logger) *Learned {
	return &Learned{cfg: cfg.withDefaults(), dec: dec, log: log}
}

func (l *Learned) Name() string { return "learned" }

func (l *Learned) Reset() {}

func (l *Learned) Evaluate(snap market.Snapshot, ind indicators.Set, pf portfolio.State) Signal {
	hold := func(reason string) Signal {
		return Signal{Action: ActionHold, Confidence: 1, Strategy: l.Name(), Reason: reason}
	}

	if l.dec == nil {
		return hold("no model loaded")
	}

	feats, err := l.features(snap, ind)
	if err != nil {
		l.log.Warn("feature extraction failed", "error", err)
		return hold("insufficient history for features")
	}

	action, conf, err := l.dec.Decide(feats)
	if err != nil {
		l.log.Warn("model inference failed", "error", err)
		return hold("inference error")
	}
	if action != ActionBuy && action != ActionSell && action != ActionHold {
		l.log.Warn("model returned invalid action", "action", action)
		return hold("invalid model output")
	}
	if action == ActionHold || float64(conf) < l.cfg.MinConfidence {
		return Signal{
			Action:     ActionHold,
			Confidence: float64(conf),
			Strategy:   l.Name(),
			Reason:     "model holds",
		}
	}

	return Signal{
		Action:     action,
		Fraction:   l.cfg.Fraction,
		Confidence: float64(conf),
		Strategy:   l.Name(),
		Reason:     fmt.Sprintf("model %s at confidence %.2f", action, conf),
	}
}

// features builds the model input: the last FeatureWindow closes normalized
// by the current price, followed by the indicator snapshot.
func (l *Learned) features(snap market.Snapshot, ind indicators.Set) ([]float32, error) {
	closes := snap.Closes()
	if len(closes) < l.cfg.FeatureWindow {
		return nil, fmt.Errorf("need %d closes, have %d", l.cfg.FeatureWindow, len(closes))
	}
	closes = closes[len(closes)-l.cfg.FeatureWindow:]

	feats := make([]float32, 0, l.cfg.FeatureWindow+4)
	for _, c := range closes {
		feats = append(feats, float32(c/snap.Price-1))
	}
	feats = append(feats,
		float32(ind.RSI/100),
		float32(ind.MACDHist/snap.Price),
		float32(ind.BollingerPos),
		float32(ind.EMAShort/ind.EMALong-1),
	)
	return feats, nil
}
