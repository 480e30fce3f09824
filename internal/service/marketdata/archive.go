package marketdata

import (
	"context"
	"time"

	"Copilot/internal/domain/models"
	"Copilot/internal/domain/repository"
	applogger "Copilot/pkg/logger"
)

// BarArchive persists fetched bars.
type BarArchive interface {
	StoreBars(ctx context.Context, symbol string, bars []models.HistoricalRow) error
}

// Archiving forwards History to an upstream provider and stores every
// successful result. Archive failures are logged and never fail the read.
type Archiving struct {
	upstream repository.HistoricalProvider
	archive  BarArchive
	l        *applogger.Logger
}

// NewArchiving wraps upstream.
func NewArchiving(upstream repository.HistoricalProvider, archive BarArchive, l *applogger.Logger) *Archiving {
	if l == nil {
		l = applogger.Nop()
	}
	return &Archiving{upstream: upstream, archive: archive, l: l}
}

func (a *Archiving) Name() string { return a.upstream.Name() }

func (a *Archiving) History(ctx context.Context, symbol string, from, to time.Time, interval string) ([]models.HistoricalRow, error) {
	rows, err := a.upstream.History(ctx, symbol, from, to, interval)
	if err != nil {
		return nil, err
	}
	if err := a.archive.StoreBars(ctx, symbol, rows); err != nil {
		a.l.Warn("archive bars failed",
			applogger.String("symbol", symbol),
			applogger.String("provider", a.upstream.Name()),
			applogger.Error(err),
		)
	}
	return rows, nil
}
