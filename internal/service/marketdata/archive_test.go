package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"Copilot/internal/domain/models"
)

type stubProvider struct {
	rows []models.HistoricalRow
	err  error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) History(context.Context, string, time.Time, time.Time, string) ([]models.HistoricalRow, error) {
	return s.rows, s.err
}

type recordingArchive struct {
	stored map[string]int
	err    error
}

func (r *recordingArchive) StoreBars(_ context.Context, symbol string, bars []models.HistoricalRow) error {
	if r.stored == nil {
		r.stored = map[string]int{}
	}
	r.stored[symbol] += len(bars)
	return r.err
}

func TestArchivingStoresFetchedBars(t *testing.T) {
	rows := []models.HistoricalRow{{Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Close: 1}}
	arch := &recordingArchive{err: errors.New("clickhouse down")}
	p := NewArchiving(&stubProvider{rows: rows}, arch, nil)

	got, err := p.History(context.Background(), "AAPL", time.Time{}, time.Now(), "1d")
	if err != nil {
		t.Fatalf("archive failure must not fail the read: %v", err)
	}
	if len(got) != 1 || arch.stored["AAPL"] != 1 {
		t.Fatalf("unexpected result %v stored=%v", got, arch.stored)
	}
	if p.Name() != "stub" {
		t.Fatalf("expected upstream name, got %q", p.Name())
	}
}

func TestArchivingSkipsFailedReads(t *testing.T) {
	arch := &recordingArchive{}
	p := NewArchiving(&stubProvider{err: errors.New("boom")}, arch, nil)
	if _, err := p.History(context.Background(), "AAPL", time.Time{}, time.Now(), "1d"); err == nil {
		t.Fatalf("expected upstream error")
	}
	if len(arch.stored) != 0 {
		t.Fatalf("nothing should be archived, got %v", arch.stored)
	}
}
