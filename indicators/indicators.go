// Package indicators computes technical indicators from a candle window.
//
// Every calculation is a pure function of its input: identical windows
// produce identical values, which keeps live runs and backtests comparable.
package indicators

import (
	"errors"
	"fmt"
	"math"

	"condorbot/market"
)

// ErrInsufficientData is returned when the window holds fewer samples than
// the longest lookback an indicator needs.
var ErrInsufficientData = errors.New("indicators: insufficient data")

// Set holds the indicator values derived from one snapshot.
type Set struct {
	RSI        float64 `json:"rsi"`
	EMAShort   float64 `json:"ema_short"`
	EMALong    float64 `json:"ema_long"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	BollingerUpper  float64 `json:"bollinger_upper"`
	BollingerMiddle float64 `json:"bollinger_middle"`
	BollingerLower  float64 `json:"bollinger_lower"`
	// BollingerPos is the close's position inside the band: 0 at the lower
	// band, 1 at the upper, outside [0,1] when price escapes the band.
	BollingerPos float64 `json:"bollinger_pos"`
}

// Config holds the lookback periods. Zero values fall back to defaults.
type Config struct {
	RSIPeriod       int     `yaml:"rsi_period"`
	EMAShortPeriod  int     `yaml:"ema_short_period"`
	EMALongPeriod   int     `yaml:"ema_long_period"`
	MACDFast        int     `yaml:"macd_fast"`
	MACDSlow        int     `yaml:"macd_slow"`
	MACDSignal      int     `yaml:"macd_signal"`
	BollingerPeriod int     `yaml:"bollinger_period"`
	BollingerStdDev float64 `yaml:"bollinger_std_dev"`
}

func DefaultConfig() Config {
	return Config{
		RSIPeriod:       14,
		EMAShortPeriod:  12,
		EMALongPeriod:   26,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerPeriod: 20,
		BollingerStdDev: 2.0,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.EMAShortPeriod <= 0 {
		c.EMAShortPeriod = d.EMAShortPeriod
	}
	if c.EMALongPeriod <= 0 {
		c.EMALongPeriod = d.EMALongPeriod
	}
	if c.MACDFast <= 0 {
		c.MACDFast = d.MACDFast
	}
	if c.MACDSlow <= 0 {
		c.MACDSlow = d.MACDSlow
	}
	if c.MACDSignal <= 0 {
		c.MACDSignal = d.MACDSignal
	}
	if c.BollingerPeriod <= 0 {
		c.BollingerPeriod = d.BollingerPeriod
	}
	if c.BollingerStdDev <= 0 {
		c.BollingerStdDev = d.BollingerStdDev
	}
	return c
}

// Warmup returns the minimum window length Compute needs.
func (c Config) Warmup() int {
	c = c.withDefaults()
	longest := c.RSIPeriod + 1
	if n := c.EMALongPeriod; n > longest {
		longest = n
	}
	if n := c.MACDSlow + c.MACDSignal; n > longest {
		longest = n
	}
	if n := c.BollingerPeriod; n > longest {
		longest = n
	}
	return longest
}

// Compute derives an indicator Set from the snapshot window.
func Compute(snap market.Snapshot, cfg Config) (Set, error) {
	cfg = cfg.withDefaults()

	closes := snap.Closes()
	if len(closes) < cfg.Warmup() {
		return Set{}, fmt.Errorf("%w: have %d candles, need %d",
			ErrInsufficientData, len(closes), cfg.Warmup())
	}

	var s Set
	var err error

	if s.RSI, err = RSI(closes, cfg.RSIPeriod); err != nil {
		return Set{}, err
	}
	if s.EMAShort, err = EMA(closes, cfg.EMAShortPeriod); err != nil {
		return Set{}, err
	}
	if s.EMALong, err = EMA(closes, cfg.EMALongPeriod); err != nil {
		return Set{}, err
	}
	if s.MACD, s.MACDSignal, s.MACDHist, err = MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal); err != nil {
		return Set{}, err
	}
	if s.BollingerUpper, s.BollingerMiddle, s.BollingerLower, err = Bollinger(closes, cfg.BollingerPeriod, cfg.BollingerStdDev); err != nil {
		return Set{}, err
	}

	width := s.BollingerUpper - s.BollingerLower
	if width > 0 {
		s.BollingerPos = (closes[len(closes)-1] - s.BollingerLower) / width
	} else {
		s.BollingerPos = 0.5
	}

	return s, nil
}

// RSI computes the Relative Strength Index over the final value of the
// series using Wilder's smoothing.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("rsi: period must be positive, got %d", period)
	}
	if len(closes) < period+1 {
		return 0, fmt.Errorf("%w: rsi(%d) needs %d closes, got %d",
			ErrInsufficientData, period, period+1, len(closes))
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// SMA computes the simple moving average of the last `period` closes.
func SMA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("sma: period must be positive, got %d", period)
	}
	if len(closes) < period {
		return 0, fmt.Errorf("%w: sma(%d) needs %d closes, got %d",
			ErrInsufficientData, period, period, len(closes))
	}

	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period), nil
}

// EMA computes the exponential moving average, seeded with the SMA of the
// first `period` closes.
func EMA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("ema: period must be positive, got %d", period)
	}
	if len(closes) < period {
		return 0, fmt.Errorf("%w: ema(%d) needs %d closes, got %d",
			ErrInsufficientData, period, period, len(closes))
	}

	seed, err := SMA(closes[:period], period)
	if err != nil {
		return 0, err
	}

	multiplier := 2.0 / float64(period+1)
	ema := seed
	for _, c := range closes[period:] {
		ema = (c-ema)*multiplier + ema
	}
	return ema, nil
}

// MACD computes the MACD line, its signal line and the histogram.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist float64, err error) {
	if fast >= slow {
		return 0, 0, 0, fmt.Errorf("macd: fast period %d must be below slow %d", fast, slow)
	}
	if len(closes) < slow+signal {
		return 0, 0, 0, fmt.Errorf("%w: macd(%d,%d,%d) needs %d closes, got %d",
			ErrInsufficientData, fast, slow, signal, slow+signal, len(closes))
	}

	// Build the MACD series so the signal line is an EMA of real values,
	// not a single point.
	series := make([]float64, 0, len(closes)-slow+1)
	for i := slow; i <= len(closes); i++ {
		f, err := EMA(closes[:i], fast)
		if err != nil {
			return 0, 0, 0, err
		}
		s, err := EMA(closes[:i], slow)
		if err != nil {
			return 0, 0, 0, err
		}
		series = append(series, f-s)
	}

	macd = series[len(series)-1]
	sig, err = EMA(series, signal)
	if err != nil {
		return 0, 0, 0, err
	}
	return macd, sig, macd - sig, nil
}

// Bollinger computes the upper, middle and lower Bollinger bands.
func Bollinger(closes []float64, period int, stdDev float64) (upper, middle, lower float64, err error) {
	middle, err = SMA(closes, period)
	if err != nil {
		return 0, 0, 0, err
	}

	variance := 0.0
	for _, c := range closes[len(closes)-period:] {
		d := c - middle
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))

	return middle + stdDev*sd, middle, middle - stdDev*sd, nil
}
