package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Copilot/internal/domain/models"
	"Copilot/internal/domain/repository"
	applogger "Copilot/pkg/logger"

	md "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// barsGetter is the subset of *marketdata.Client the provider needs.
type barsGetter interface {
	GetBars(symbol string, req md.GetBarsRequest) ([]md.Bar, error)
}

// AlpacaConfig configures the Alpaca market data provider.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	Feed      string
}

// Alpaca reads daily bars from the Alpaca data API.
type Alpaca struct {
	client  barsGetter
	feed    md.Feed
	l       *applogger.Logger
	metrics repository.Metrics
}

// NewAlpaca creates an Alpaca provider backed by the official SDK client.
func NewAlpaca(cfg AlpacaConfig, l *applogger.Logger, m repository.Metrics) *Alpaca {
	feed := md.Feed(strings.ToLower(cfg.Feed))
	if feed == "" {
		feed = md.IEX
	}
	client := md.NewClient(md.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Feed:      feed,
	})
	return newAlpaca(client, feed, l, m)
}

func newAlpaca(client barsGetter, feed md.Feed, l *applogger.Logger, m repository.Metrics) *Alpaca {
	if l == nil {
		l = applogger.Nop()
	}
	return &Alpaca{
		client:  client,
		feed:    feed,
		l:       l.With(applogger.String("provider", "alpaca")),
		metrics: m,
	}
}

func (a *Alpaca) Name() string { return "alpaca" }

// History fetches split and dividend adjusted bars, oldest first.
func (a *Alpaca) History(ctx context.Context, symbol string, from, to time.Time, interval string) ([]models.HistoricalRow, error) {
	tf, err := parseInterval(interval)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	bars, err := a.client.GetBars(strings.ToUpper(symbol), md.GetBarsRequest{
		TimeFrame:  tf,
		Start:      from,
		End:        to,
		Adjustment: md.All,
		Feed:       a.feed,
	})
	if a.metrics != nil {
		a.metrics.RecordProviderCall("alpaca", err == nil)
		a.metrics.RecordLatency("alpaca_request", time.Since(start).Seconds())
	}
	if err != nil {
		a.l.Warn("alpaca get bars failed", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, fmt.Errorf("alpaca request: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("alpaca: no data returned for %s", symbol)
	}

	rows := make([]models.HistoricalRow, 0, len(bars))
	for _, b := range bars {
		t := b.Timestamp.UTC()
		rows = append(rows, models.HistoricalRow{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	return rows, nil
}

// parseInterval maps chart intervals onto Alpaca timeframes.
func parseInterval(interval string) (md.TimeFrame, error) {
	switch strings.ToLower(interval) {
	case "", "1d":
		return md.OneDay, nil
	case "1h", "60m":
		return md.OneHour, nil
	case "1wk", "1w":
		return md.NewTimeFrame(1, md.Week), nil
	default:
		return md.TimeFrame{}, fmt.Errorf("alpaca: unsupported interval %q", interval)
	}
}
