package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"Copilot/internal/domain/models"
	"Copilot/internal/domain/repository"
	xhttp "Copilot/pkg/http"
	applogger "Copilot/pkg/logger"
)

// YahooConfig configures the Yahoo Finance chart provider.
type YahooConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Yahoo reads daily bars from the public Yahoo Finance chart API.
type Yahoo struct {
	httpBase
	baseURL   string
	userAgent string
}

// NewYahoo creates a Yahoo provider.
func NewYahoo(cfg YahooConfig, l *applogger.Logger, m repository.Metrics) *Yahoo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	return &Yahoo{
		httpBase:  newHTTPBase("yahoo", cfg.Timeout, l, m),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
// Quote arrays hold null for sessions without trades.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History fetches bars in [from, to] at the given interval, oldest first.
func (y *Yahoo) History(ctx context.Context, symbol string, from, to time.Time, interval string) ([]models.HistoricalRow, error) {
	var chart yahooChart
	err := y.get(ctx, &xhttp.RequestOptions{
		URL:     y.baseURL + "/" + url.PathEscape(symbol),
		Headers: map[string]string{"User-Agent": y.userAgent, "Accept": "application/json"},
		QueryParams: map[string][]string{
			"period1":        {strconv.FormatInt(from.Unix(), 10)},
			"period2":        {strconv.FormatInt(to.Unix(), 10)},
			"interval":       {interval},
			"includePrePost": {"false"},
			"events":         {"div,splits"},
		},
	}, &chart)
	if err != nil {
		y.l.Warn("yahoo history failed", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, err
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", symbol)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: quote block missing for %s", symbol)
	}
	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n || len(quote.Close) != n || len(quote.Volume) != n {
		return nil, fmt.Errorf("yahoo: ragged quote arrays for %s", symbol)
	}

	rows := make([]models.HistoricalRow, 0, n)
	for i, ts := range result.Timestamp {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue // no session that day
		}
		vol := 0.0
		if quote.Volume[i] != nil {
			vol = *quote.Volume[i]
		}
		t := time.Unix(ts, 0).UTC()
		rows = append(rows, models.HistoricalRow{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   *quote.Open[i],
			High:   *quote.High[i],
			Low:    *quote.Low[i],
			Close:  *quote.Close[i],
			Volume: vol,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return dedupeDays(rows), nil
}

// dedupeDays keeps the last row of each calendar day; Yahoo appends a live
// bar for the current session that can repeat the final daily row.
func dedupeDays(rows []models.HistoricalRow) []models.HistoricalRow {
	out := rows[:0]
	for _, r := range rows {
		if len(out) > 0 && out[len(out)-1].Date.Equal(r.Date) {
			out[len(out)-1] = r
			continue
		}
		out = append(out, r)
	}
	return out
}
