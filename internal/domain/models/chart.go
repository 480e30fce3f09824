package models

import "time"

// DateLayout formats the x value of every series point.
const DateLayout = "2006-01-02"

// HistoricalRow is one trading day as returned by a market data provider.
type HistoricalRow struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Day returns the row date as an ISO calendar date.
func (r HistoricalRow) Day() string {
	return r.Date.UTC().Format(DateLayout)
}

// OHLCPoint is one [open, high, low, close] point.
type OHLCPoint struct {
	X string     `json:"x"`
	Y [4]float64 `json:"y"`
}

// VolumePoint is one scalar volume point.
type VolumePoint struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// SqueezePoint is one [squeeze_on, magnitude] point. Magnitude is NaN
// during the indicator warm-up window.
type SqueezePoint struct {
	X string     `json:"x"`
	Y [2]float64 `json:"y"`
}

// KeltnerPoint holds lower, basis and upper Keltner bands for one day.
type KeltnerPoint struct {
	X string     `json:"x"`
	Y [3]float64 `json:"y"`
}

// KeltnerBand is the series for one channel width multiplier.
type KeltnerBand struct {
	Scalar float64        `json:"scalar"`
	Points []KeltnerPoint `json:"points"`
}

// EarningsEvent marks an upcoming report on the chart.
type EarningsEvent struct {
	X                string  `json:"x"`
	FiscalDateEnding string  `json:"fiscalDateEnding"`
	Estimate         *string `json:"estimate"`
	Currency         string  `json:"currency"`
}

// ChartDataResult is the getChartData envelope.
// Success false means every series is nil and Message is set.
type ChartDataResult struct {
	Success  bool
	Message  *string
	Ticker   *string
	OHLC     []OHLCPoint
	Volume   []VolumePoint
	Squeeze  []SqueezePoint
	Keltner  []KeltnerBand
	Earnings []EarningsEvent
}

// ChartFailure builds a failed envelope.
func ChartFailure(msg string) *ChartDataResult {
	return &ChartDataResult{Success: false, Message: &msg}
}
