package earnings

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"Copilot/internal/domain/models"
	"Copilot/internal/domain/repository"
	xhttp "Copilot/pkg/http"
	applogger "Copilot/pkg/logger"
)

// Config configures the earnings calendar fetcher.
type Config struct {
	BaseURL string
	APIKey  string
	Horizon string
	Timeout time.Duration
}

// Fetcher reads the Alpha Vantage earnings calendar CSV.
type Fetcher struct {
	cfg     Config
	client  *xhttp.Client
	l       *applogger.Logger
	metrics repository.Metrics
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg Config, l *applogger.Logger, m repository.Metrics) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.alphavantage.co/query"
	}
	if cfg.Horizon == "" {
		cfg.Horizon = "12month"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Fetcher{
		cfg:     cfg,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		l:       l.With(applogger.String("provider", "alpha_vantage")),
		metrics: m,
	}
}

// EarningsDates fetches the calendar with the configured API key.
func (f *Fetcher) EarningsDates(ctx context.Context, symbol string) *models.EarningsTable {
	return f.Fetch(ctx, symbol, f.cfg.APIKey)
}

// Fetch returns the earnings calendar for symbol, or nil when it is
// unavailable. Failures are logged, never returned.
func (f *Fetcher) Fetch(ctx context.Context, symbol, apiKey string) *models.EarningsTable {
	var body []byte
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.cfg.BaseURL,
		QueryParams: map[string][]string{
			"function": {"EARNINGS_CALENDAR"},
			"symbol":   {symbol},
			"horizon":  {f.cfg.Horizon},
			"apikey":   {apiKey},
		},
	}, &body)
	if f.metrics != nil {
		f.metrics.RecordProviderCall("alpha_vantage", err == nil)
	}
	if err != nil {
		f.l.Warn("earnings request failed", applogger.String("symbol", symbol), applogger.Error(err))
		return nil
	}

	table, err := ParseCSV(body)
	if err != nil {
		f.l.Warn("earnings response unreadable", applogger.String("symbol", symbol), applogger.Error(err))
		return nil
	}
	return table
}

// ErrUnexpectedHeader is returned when the body is not an earnings calendar,
// e.g. a JSON rate-limit notice.
var ErrUnexpectedHeader = errors.New("unexpected earnings csv header")

// ParseCSV parses the calendar keeping header order and raw string cells.
func ParseCSV(body []byte) (*models.EarningsTable, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrUnexpectedHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	table := &models.EarningsTable{Columns: header}
	if table.Index(models.EarningsColSymbol) < 0 || table.Index(models.EarningsColReportDate) < 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedHeader, header)
	}

	table.Rows = [][]string{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}
