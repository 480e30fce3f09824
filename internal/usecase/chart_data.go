package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Copilot/internal/domain/models"
	domrepo "Copilot/internal/domain/repository"
	domsvc "Copilot/internal/domain/service"
	applogger "Copilot/pkg/logger"
)

const chartInterval = "1d"

// ChartDataUseCase builds the chart series for a ticker.
type ChartDataUseCase struct {
	provider domrepo.HistoricalProvider
	squeeze  domsvc.SqueezeCalculator
	earnings domsvc.EarningsSource
	l        *applogger.Logger
	metrics  domrepo.Metrics
	timeout  time.Duration
	now      func() time.Time
}

// NewChartDataUseCase creates the use case. earnings and m may be nil.
func NewChartDataUseCase(p domrepo.HistoricalProvider, sq domsvc.SqueezeCalculator, earnings domsvc.EarningsSource, l *applogger.Logger, m domrepo.Metrics) *ChartDataUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	return &ChartDataUseCase{
		provider: p,
		squeeze:  sq,
		earnings: earnings,
		l:        l,
		metrics:  m,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

// GetChartData returns one year of daily series for ticker. It never
// returns partial series: any failure yields a failed envelope.
func (uc *ChartDataUseCase) GetChartData(ctx context.Context, ticker string) (res *models.ChartDataResult) {
	if ticker == "" {
		return models.ChartFailure("No ticker provided")
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = uc.fail(ticker, fmt.Errorf("%v", r))
		}
		if uc.metrics != nil {
			uc.metrics.RecordLatency("chart_data", time.Since(start).Seconds())
		}
	}()

	out, err := uc.build(ctx, ticker)
	if err != nil {
		return uc.fail(ticker, err)
	}
	return out
}

func (uc *ChartDataUseCase) fail(ticker string, err error) *models.ChartDataResult {
	uc.l.Warn("chart data failed", applogger.String("symbol", ticker), applogger.Error(err))
	if uc.metrics != nil {
		uc.metrics.RecordError("chart_data")
	}
	return models.ChartFailure(fmt.Sprintf("Failed to load data for '%s': %s", ticker, err.Error()))
}

func (uc *ChartDataUseCase) build(ctx context.Context, ticker string) (*models.ChartDataResult, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	// Earnings are supplementary, fetch them alongside the bars.
	var table *models.EarningsTable
	if uc.earnings != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					uc.l.Warn("earnings fetch panicked", applogger.String("symbol", ticker), applogger.Any("panic", r))
				}
			}()
			table = uc.earnings.EarningsDates(ctx, ticker)
		}()
	}

	to := uc.now().UTC()
	rows, err := uc.provider.History(ctx, ticker, to.AddDate(-1, 0, 0), to, chartInterval)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no historical data returned")
	}

	frame, err := uc.squeeze.Compute(rows)
	if err != nil {
		return nil, err
	}

	res := &models.ChartDataResult{
		Success: true,
		Ticker:  &ticker,
		OHLC:    make([]models.OHLCPoint, 0, len(rows)),
		Volume:  make([]models.VolumePoint, 0, len(rows)),
		Squeeze: make([]models.SqueezePoint, 0, len(rows)),
	}
	magCol := uc.squeeze.SqueezeColumn()
	for _, r := range rows {
		day := r.Day()
		on, err := frame.At(day, models.ColSqueezeOn)
		if err != nil {
			return nil, err
		}
		mag, err := frame.At(day, magCol)
		if err != nil {
			return nil, err
		}
		flag := 0.0
		if on != 0 {
			flag = 1
		}
		res.OHLC = append(res.OHLC, models.OHLCPoint{X: day, Y: [4]float64{r.Open, r.High, r.Low, r.Close}})
		res.Volume = append(res.Volume, models.VolumePoint{X: day, Y: r.Volume})
		res.Squeeze = append(res.Squeeze, models.SqueezePoint{X: day, Y: [2]float64{flag, mag}})
	}

	if res.Keltner, err = uc.keltner(rows, frame); err != nil {
		return nil, err
	}

	wg.Wait()
	res.Earnings = uc.earningsEvents(ticker, table)
	return res, nil
}

func (uc *ChartDataUseCase) keltner(rows []models.HistoricalRow, frame *models.IndicatorFrame) ([]models.KeltnerBand, error) {
	scalars := uc.squeeze.KeltnerScalars()
	if len(scalars) == 0 {
		return nil, nil
	}
	length := uc.squeeze.KeltnerLength()
	bands := make([]models.KeltnerBand, 0, len(scalars))
	for _, s := range scalars {
		lower, basis, upper := models.KeltnerColumns(length, s)
		band := models.KeltnerBand{Scalar: s, Points: make([]models.KeltnerPoint, 0, len(rows))}
		for _, r := range rows {
			day := r.Day()
			var y [3]float64
			for i, col := range []string{lower, basis, upper} {
				v, err := frame.At(day, col)
				if err != nil {
					return nil, err
				}
				y[i] = v
			}
			band.Points = append(band.Points, models.KeltnerPoint{X: day, Y: y})
		}
		bands = append(bands, band)
	}
	return bands, nil
}

// earningsEvents converts the calendar to chart markers. An unavailable or
// malformed calendar yields nil.
func (uc *ChartDataUseCase) earningsEvents(ticker string, table *models.EarningsTable) []models.EarningsEvent {
	if table == nil {
		return nil
	}
	recs, err := table.Records()
	if err != nil {
		uc.l.Warn("earnings calendar malformed", applogger.String("symbol", ticker), applogger.Error(err))
		return nil
	}
	out := make([]models.EarningsEvent, 0, len(recs))
	for _, r := range recs {
		ev := models.EarningsEvent{X: r.ReportDate, FiscalDateEnding: r.FiscalDateEnding, Currency: r.Currency}
		if r.Estimate.Valid {
			s := r.Estimate.Decimal.String()
			ev.Estimate = &s
		}
		out = append(out, ev)
	}
	return out
}
