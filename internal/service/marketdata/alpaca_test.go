package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	md "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

type fakeBars struct {
	symbol string
	req    md.GetBarsRequest
	bars   []md.Bar
	err    error
}

func (f *fakeBars) GetBars(symbol string, req md.GetBarsRequest) ([]md.Bar, error) {
	f.symbol = symbol
	f.req = req
	return f.bars, f.err
}

type countingMetrics struct {
	calls map[string]int
}

func (m *countingMetrics) RecordProviderCall(provider string, ok bool) {
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	if ok {
		m.calls[provider+":ok"]++
	} else {
		m.calls[provider+":fail"]++
	}
}
func (m *countingMetrics) RecordError(string)            {}
func (m *countingMetrics) RecordAuthEvent(string, bool)  {}
func (m *countingMetrics) RecordLatency(string, float64) {}

func TestAlpacaHistory(t *testing.T) {
	fake := &fakeBars{bars: []md.Bar{
		{Timestamp: time.Date(2023, 1, 1, 5, 0, 0, 0, time.UTC), Open: 100, High: 110, Low: 90, Close: 105, Volume: 1000},
		{Timestamp: time.Date(2023, 1, 2, 5, 0, 0, 0, time.UTC), Open: 105, High: 112, Low: 101, Close: 109, Volume: 1200},
	}}
	m := &countingMetrics{}
	a := newAlpaca(fake, md.IEX, nil, m)

	rows, err := a.History(context.Background(), "aapl", time.Now().AddDate(-1, 0, 0), time.Now(), "1d")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if fake.symbol != "AAPL" || fake.req.TimeFrame != md.OneDay || fake.req.Adjustment != md.All {
		t.Fatalf("unexpected request %s %+v", fake.symbol, fake.req)
	}
	if len(rows) != 2 || rows[0].Day() != "2023-01-01" || rows[1].Volume != 1200 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if m.calls["alpaca:ok"] != 1 {
		t.Fatalf("expected provider call recorded, got %v", m.calls)
	}
}

func TestAlpacaHistoryErrors(t *testing.T) {
	m := &countingMetrics{}
	a := newAlpaca(&fakeBars{err: errors.New("forbidden")}, md.IEX, nil, m)
	if _, err := a.History(context.Background(), "AAPL", time.Now(), time.Now(), "1d"); err == nil {
		t.Fatalf("expected error")
	}
	if m.calls["alpaca:fail"] != 1 {
		t.Fatalf("expected failure recorded, got %v", m.calls)
	}

	a = newAlpaca(&fakeBars{}, md.IEX, nil, nil)
	if _, err := a.History(context.Background(), "AAPL", time.Now(), time.Now(), "1d"); err == nil {
		t.Fatalf("expected empty result to be an error")
	}
	if _, err := a.History(context.Background(), "AAPL", time.Now(), time.Now(), "3m"); err == nil {
		t.Fatalf("expected unsupported interval error")
	}
}
