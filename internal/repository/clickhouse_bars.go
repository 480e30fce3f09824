package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"Copilot/internal/domain/models"
	pkgch "Copilot/pkg/clickhouse"
	applogger "Copilot/pkg/logger"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CHBarStore serves daily bars from a ClickHouse warehouse table.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHBarStore creates a bar store reading from table.
func NewCHBarStore(ch *pkgch.Client, table string) (*CHBarStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", table)
	}
	return &CHBarStore{db: ch.DB(), table: table, l: applogger.Nop()}, nil
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHBarStore) Name() string { return "clickhouse" }

// Schema returns the DDL for the bar table.
func (s *CHBarStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol LowCardinality(String),
            day    Date,
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            volume Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, day)
    `, s.table)}
}

// History returns bars for symbol within [from, to]. Only daily bars are stored.
func (s *CHBarStore) History(ctx context.Context, symbol string, from, to time.Time, interval string) ([]models.HistoricalRow, error) {
	if interval != "" && interval != "1d" {
		return nil, fmt.Errorf("clickhouse: unsupported interval %q", interval)
	}
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT day, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND day >= toDate(?) AND day <= toDate(?)
        ORDER BY day ASC
    `, s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse history query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	out := make([]models.HistoricalRow, 0, 256)
	for rows.Next() {
		var r models.HistoricalRow
		if err := rows.Scan(&r.Date, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume); err != nil {
			s.l.Error("clickhouse history scan error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		r.Date = r.Date.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("clickhouse: no data stored for %s", symbol)
	}

	s.l.Debug("clickhouse history ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// StoreBars inserts rows for symbol in multi-row batches. Re-inserted days
// collapse on merge.
func (s *CHBarStore) StoreBars(ctx context.Context, symbol string, bars []models.HistoricalRow) error {
	if len(bars) == 0 {
		return nil
	}
	const chunkSize = 1000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, b.Date.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, day, open, high, low, close, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store bars error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Int("rows", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}
