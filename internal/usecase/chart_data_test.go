package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"Copilot/internal/domain/models"
	"Copilot/internal/services/indicators"
)

type fakeProvider struct {
	rows  []models.HistoricalRow
	err   error
	calls int
	from  time.Time
	to    time.Time
	iv    string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) History(_ context.Context, _ string, from, to time.Time, interval string) ([]models.HistoricalRow, error) {
	f.calls++
	f.from, f.to, f.iv = from, to, interval
	return f.rows, f.err
}

// fakeSqueeze serves precomputed columns, like a mocked indicator library.
type fakeSqueeze struct {
	values map[string]map[string]float64
	err    error
}

func (f *fakeSqueeze) Compute(rows []models.HistoricalRow) (*models.IndicatorFrame, error) {
	if f.err != nil {
		return nil, f.err
	}
	frame := models.NewIndicatorFrame()
	for day, cols := range f.values {
		for col, v := range cols {
			frame.Set(day, col, v)
		}
	}
	return frame, nil
}
func (f *fakeSqueeze) SqueezeColumn() string     { return "SQZ_20_2.0_20_1.5" }
func (f *fakeSqueeze) KeltnerScalars() []float64 { return []float64{1} }
func (f *fakeSqueeze) KeltnerLength() int        { return 20 }

type fakeEarnings struct {
	table *models.EarningsTable
	calls int
}

func (f *fakeEarnings) EarningsDates(context.Context, string) *models.EarningsTable {
	f.calls++
	return f.table
}

func day(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

func twoRows() []models.HistoricalRow {
	return []models.HistoricalRow{
		{Date: day("2023-01-01"), Open: 100, High: 110, Low: 90, Close: 105, Volume: 1000},
		{Date: day("2023-01-02"), Open: 106, High: 115, Low: 95, Close: 110, Volume: 1500},
	}
}

func twoRowSqueeze() *fakeSqueeze {
	kc := func(on, mag float64) map[string]float64 {
		return map[string]float64{
			"SQZ_ON": on, "SQZ_20_2.0_20_1.5": mag,
			"KCLe_20_1.0": 85, "KCBe_20_1.0": 102, "KCUe_20_1.0": 120,
		}
	}
	return &fakeSqueeze{values: map[string]map[string]float64{
		"2023-01-01": kc(1, 12),
		"2023-01-02": kc(0, 13),
	}}
}

func calendar() *models.EarningsTable {
	return &models.EarningsTable{
		Columns: []string{"symbol", "name", "reportDate", "fiscalDateEnding", "estimate", "currency"},
		Rows: [][]string{
			{"AAPL", "Apple Inc", "2024-10-31", "2024-09-30", "1.59", "USD"},
			{"AAPL", "Apple Inc", "2025-01-30", "2024-12-31", "", "USD"},
		},
	}
}

func TestGetChartDataEmptyTicker(t *testing.T) {
	p := &fakeProvider{}
	e := &fakeEarnings{}
	uc := NewChartDataUseCase(p, twoRowSqueeze(), e, nil, nil)

	res := uc.GetChartData(context.Background(), "")
	if res.Success || res.Message == nil || *res.Message != "No ticker provided" {
		t.Fatalf("unexpected result %+v", res)
	}
	if p.calls != 0 || e.calls != 0 {
		t.Fatalf("no provider may be called, got %d/%d", p.calls, e.calls)
	}
	if res.OHLC != nil || res.Volume != nil || res.Squeeze != nil || res.Ticker != nil {
		t.Fatalf("failed result must carry no series")
	}
}

func TestGetChartDataSeries(t *testing.T) {
	p := &fakeProvider{rows: twoRows()}
	uc := NewChartDataUseCase(p, twoRowSqueeze(), &fakeEarnings{table: calendar()}, nil, nil)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }

	res := uc.GetChartData(context.Background(), "AAPL")
	if !res.Success || res.Message != nil || res.Ticker == nil || *res.Ticker != "AAPL" {
		t.Fatalf("unexpected envelope %+v", res)
	}
	if p.iv != "1d" || !p.to.Equal(now) || !p.from.Equal(now.AddDate(-1, 0, 0)) {
		t.Fatalf("unexpected window %s..%s %s", p.from, p.to, p.iv)
	}

	if len(res.OHLC) != 2 || len(res.Volume) != 2 || len(res.Squeeze) != 2 {
		t.Fatalf("series must have one point per row: %d %d %d", len(res.OHLC), len(res.Volume), len(res.Squeeze))
	}
	wantSqz := []models.SqueezePoint{
		{X: "2023-01-01", Y: [2]float64{1, 12}},
		{X: "2023-01-02", Y: [2]float64{0, 13}},
	}
	for i, w := range wantSqz {
		if res.Squeeze[i] != w {
			t.Fatalf("squeeze %d: want %+v got %+v", i, w, res.Squeeze[i])
		}
	}
	if res.OHLC[0] != (models.OHLCPoint{X: "2023-01-01", Y: [4]float64{100, 110, 90, 105}}) {
		t.Fatalf("unexpected ohlc %+v", res.OHLC[0])
	}
	if res.Volume[1] != (models.VolumePoint{X: "2023-01-02", Y: 1500}) {
		t.Fatalf("unexpected volume %+v", res.Volume[1])
	}

	if len(res.Keltner) != 1 || res.Keltner[0].Points[1].Y != [3]float64{85, 102, 120} {
		t.Fatalf("unexpected keltner %+v", res.Keltner)
	}
	if len(res.Earnings) != 2 || res.Earnings[0].X != "2024-10-31" || *res.Earnings[0].Estimate != "1.59" || res.Earnings[1].Estimate != nil {
		t.Fatalf("unexpected earnings %+v", res.Earnings)
	}
}

func TestGetChartDataProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	uc := NewChartDataUseCase(p, twoRowSqueeze(), nil, nil, nil)

	res := uc.GetChartData(context.Background(), "AAPL")
	if res.Success || res.Message == nil || *res.Message != "Failed to load data for 'AAPL': connection refused" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.OHLC != nil || res.Squeeze != nil || res.Volume != nil || res.Ticker != nil {
		t.Fatalf("failed result must carry no series")
	}
}

func TestGetChartDataEarningsUnavailable(t *testing.T) {
	uc := NewChartDataUseCase(&fakeProvider{rows: twoRows()}, twoRowSqueeze(), &fakeEarnings{}, nil, nil)
	res := uc.GetChartData(context.Background(), "AAPL")
	if !res.Success || len(res.OHLC) != 2 || res.Earnings != nil {
		t.Fatalf("earnings failure must not fail the chart: %+v", res)
	}
}

func TestGetChartDataMissingIndicatorKey(t *testing.T) {
	sq := twoRowSqueeze()
	delete(sq.values["2023-01-02"], "SQZ_ON")
	uc := NewChartDataUseCase(&fakeProvider{rows: twoRows()}, sq, nil, nil, nil)

	res := uc.GetChartData(context.Background(), "AAPL")
	if res.Success || !strings.Contains(*res.Message, "indicator key not found") {
		t.Fatalf("expected key error, got %+v", res)
	}
	if res.Squeeze != nil {
		t.Fatalf("no partial series on failure")
	}
}

type panickingProvider struct{ fakeProvider }

func (p *panickingProvider) History(context.Context, string, time.Time, time.Time, string) ([]models.HistoricalRow, error) {
	panic("index out of range")
}

func TestGetChartDataRecoversPanics(t *testing.T) {
	uc := NewChartDataUseCase(&panickingProvider{}, twoRowSqueeze(), nil, nil, nil)
	res := uc.GetChartData(context.Background(), "AAPL")
	if res.Success || *res.Message != "Failed to load data for 'AAPL': index out of range" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestGetChartDataWithRealIndicators(t *testing.T) {
	rows := make([]models.HistoricalRow, 60)
	start := day("2023-01-01")
	for i := range rows {
		c := 100 + 5*math.Sin(float64(i)/3)
		rows[i] = models.HistoricalRow{Date: start.AddDate(0, 0, i), Open: c - 1, High: c + 2, Low: c - 2, Close: c, Volume: 1000}
	}
	uc := NewChartDataUseCase(&fakeProvider{rows: rows}, indicators.NewSqueeze(indicators.DefaultSqueezeConfig()), nil, nil, nil)

	res := uc.GetChartData(context.Background(), "MSFT")
	if !res.Success {
		t.Fatalf("unexpected failure %s", *res.Message)
	}
	if len(res.Squeeze) != len(rows) || len(res.Keltner) != 3 {
		t.Fatalf("unexpected lengths %d %d", len(res.Squeeze), len(res.Keltner))
	}
	for i, p := range res.Squeeze {
		if p.Y[0] != 0 && p.Y[0] != 1 {
			t.Fatalf("point %d: squeeze flag must be 0 or 1, got %v", i, p.Y[0])
		}
		if i > 0 && p.X <= res.Squeeze[i-1].X {
			t.Fatalf("points out of order at %d", i)
		}
	}
	if !math.IsNaN(res.Squeeze[0].Y[1]) || math.IsNaN(res.Squeeze[len(rows)-1].Y[1]) {
		t.Fatalf("expected warm-up NaN only at the start")
	}
}
