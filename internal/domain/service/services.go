package service

import (
	"context"

	"Copilot/internal/domain/models"
)

// SqueezeCalculator computes squeeze and Keltner columns for rows.
type SqueezeCalculator interface {
	Compute(rows []models.HistoricalRow) (*models.IndicatorFrame, error)
	SqueezeColumn() string
	KeltnerScalars() []float64
	KeltnerLength() int
}

// EarningsSource fetches the earnings calendar for a symbol.
// A nil table means the data is unavailable.
type EarningsSource interface {
	EarningsDates(ctx context.Context, symbol string) *models.EarningsTable
}
