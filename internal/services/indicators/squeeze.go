package indicators

import (
	"fmt"
	"math"

	"Copilot/internal/domain/models"

	"github.com/markcheno/go-talib"
)

// SqueezeConfig holds the squeeze and Keltner parameters.
type SqueezeConfig struct {
	BBLength  int
	BBStd     float64
	KCLength  int
	KCScalar  float64
	MomLength int
	MomSmooth int

	// EMA Keltner channels returned alongside the squeeze.
	KeltnerLength  int
	KeltnerScalars []float64
}

// DefaultSqueezeConfig is the classic TTM-style squeeze: Bollinger 20/2.0
// inside a true-range Keltner 20/1.5, momentum 12 smoothed over 6 bars.
func DefaultSqueezeConfig() SqueezeConfig {
	return SqueezeConfig{
		BBLength:       20,
		BBStd:          2.0,
		KCLength:       20,
		KCScalar:       1.5,
		MomLength:      12,
		MomSmooth:      6,
		KeltnerLength:  20,
		KeltnerScalars: []float64{1, 2, 3},
	}
}

// Squeeze computes the volatility squeeze over daily rows.
type Squeeze struct {
	cfg       SqueezeConfig
	sqzColumn string
}

// NewSqueeze creates a calculator. Zero fields fall back to the defaults.
func NewSqueeze(cfg SqueezeConfig) *Squeeze {
	def := DefaultSqueezeConfig()
	if cfg.BBLength <= 0 {
		cfg.BBLength = def.BBLength
	}
	if cfg.BBStd <= 0 {
		cfg.BBStd = def.BBStd
	}
	if cfg.KCLength <= 0 {
		cfg.KCLength = def.KCLength
	}
	if cfg.KCScalar <= 0 {
		cfg.KCScalar = def.KCScalar
	}
	if cfg.MomLength <= 0 {
		cfg.MomLength = def.MomLength
	}
	if cfg.MomSmooth <= 0 {
		cfg.MomSmooth = def.MomSmooth
	}
	if cfg.KeltnerLength <= 0 {
		cfg.KeltnerLength = def.KeltnerLength
	}
	if len(cfg.KeltnerScalars) == 0 {
		cfg.KeltnerScalars = def.KeltnerScalars
	}
	return &Squeeze{
		cfg:       cfg,
		sqzColumn: models.SqueezeColumn(cfg.BBLength, cfg.BBStd, cfg.KCLength, cfg.KCScalar),
	}
}

// SqueezeColumn returns the magnitude column name, e.g. SQZ_20_2.0_20_1.5.
func (s *Squeeze) SqueezeColumn() string { return s.sqzColumn }

// KeltnerScalars returns the channel multipliers computed.
func (s *Squeeze) KeltnerScalars() []float64 { return s.cfg.KeltnerScalars }

// KeltnerLength returns the EMA length of the Keltner channels.
func (s *Squeeze) KeltnerLength() int { return s.cfg.KeltnerLength }

// Compute fills a frame with SQZ_ON, the squeeze magnitude and the Keltner
// bands for every row. Values inside an indicator's warm-up window are NaN,
// except SQZ_ON which is 0 until both channels exist.
func (s *Squeeze) Compute(rows []models.HistoricalRow) (*models.IndicatorFrame, error) {
	n := len(rows)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i, r := range rows {
		if i > 0 && !r.Date.After(rows[i-1].Date) {
			return nil, fmt.Errorf("rows out of order at %s", r.Day())
		}
		for _, v := range [...]float64{r.High, r.Low, r.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("row %s: non-finite price", r.Day())
			}
		}
		high[i], low[i], closes[i] = r.High, r.Low, r.Close
	}

	tr := trueRange(high, low, closes)

	// Bollinger bands
	bbLower, bbUpper := nanSeries(n), nanSeries(n)
	if n >= s.cfg.BBLength {
		upper, _, lower := talib.BBands(closes, s.cfg.BBLength, s.cfg.BBStd, s.cfg.BBStd, talib.SMA)
		for i := s.cfg.BBLength - 1; i < n; i++ {
			bbUpper[i], bbLower[i] = upper[i], lower[i]
		}
	}

	// SMA Keltner on true range
	kcBasis := sma(closes, 0, s.cfg.KCLength)
	kcRange := sma(tr, 1, s.cfg.KCLength)

	// Smoothed momentum
	mom := nanSeries(n)
	if n > s.cfg.MomLength {
		raw := talib.Mom(closes, s.cfg.MomLength)
		copy(mom[s.cfg.MomLength:], raw[s.cfg.MomLength:])
	}
	magnitude := sma(mom, s.cfg.MomLength, s.cfg.MomSmooth)

	frame := models.NewIndicatorFrame()
	for i, r := range rows {
		day := r.Day()
		on := 0.0
		kcLower := kcBasis[i] - s.cfg.KCScalar*kcRange[i]
		kcUpper := kcBasis[i] + s.cfg.KCScalar*kcRange[i]
		// NaN comparisons are false, so warm-up rows stay off.
		if bbLower[i] > kcLower && bbUpper[i] < kcUpper {
			on = 1
		}
		frame.Set(day, models.ColSqueezeOn, on)
		frame.Set(day, s.sqzColumn, magnitude[i])
	}

	emaBasis := ema(closes, 0, s.cfg.KeltnerLength)
	emaRange := ema(tr, 1, s.cfg.KeltnerLength)
	for _, scalar := range s.cfg.KeltnerScalars {
		lc, bc, uc := models.KeltnerColumns(s.cfg.KeltnerLength, scalar)
		for i, r := range rows {
			day := r.Day()
			frame.Set(day, lc, emaBasis[i]-scalar*emaRange[i])
			frame.Set(day, bc, emaBasis[i])
			frame.Set(day, uc, emaBasis[i]+scalar*emaRange[i])
		}
	}

	return frame, nil
}

// trueRange is undefined for the first row, which has no previous close.
func trueRange(high, low, closes []float64) []float64 {
	out := nanSeries(len(closes))
	if len(closes) < 2 {
		return out
	}
	tr := talib.TRange(high, low, closes)
	copy(out[1:], tr[1:])
	return out
}

// sma applies a simple moving average to in[offset:], leaving the
// leading offset+period-1 values NaN.
func sma(in []float64, offset, period int) []float64 {
	return shifted(in, offset, period, talib.Sma)
}

// ema is sma with an SMA-seeded exponential average.
func ema(in []float64, offset, period int) []float64 {
	return shifted(in, offset, period, talib.Ema)
}

func shifted(in []float64, offset, period int, fn func([]float64, int) []float64) []float64 {
	out := nanSeries(len(in))
	if period <= 0 || len(in)-offset < period {
		return out
	}
	res := fn(in[offset:], period)
	for i := offset + period - 1; i < len(in); i++ {
		out[i] = res[i-offset]
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
