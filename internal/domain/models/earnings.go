package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Earnings calendar CSV columns.
const (
	EarningsColSymbol           = "symbol"
	EarningsColName             = "name"
	EarningsColReportDate       = "reportDate"
	EarningsColFiscalDateEnding = "fiscalDateEnding"
	EarningsColEstimate         = "estimate"
	EarningsColCurrency         = "currency"
)

// EarningsTable is the raw CSV table: header order preserved, every cell a string.
// A nil *EarningsTable means the data was unavailable; an empty Rows means none scheduled.
type EarningsTable struct {
	Columns []string
	Rows    [][]string
}

// EarningsRow is one typed earnings event.
type EarningsRow struct {
	Symbol           string
	Name             string
	ReportDate       string
	FiscalDateEnding string
	Estimate         decimal.NullDecimal
	EstimateRaw      string
	Currency         string
}

// Index returns the position of column, or -1.
func (t *EarningsTable) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Records converts the table into typed rows. A missing expected column or a
// non-numeric, non-blank estimate is an error.
func (t *EarningsTable) Records() ([]EarningsRow, error) {
	required := []string{
		EarningsColSymbol, EarningsColName, EarningsColReportDate,
		EarningsColFiscalDateEnding, EarningsColEstimate, EarningsColCurrency,
	}
	idx := make(map[string]int, len(required))
	for _, col := range required {
		i := t.Index(col)
		if i < 0 {
			return nil, fmt.Errorf("earnings column %q missing", col)
		}
		idx[col] = i
	}

	out := make([]EarningsRow, 0, len(t.Rows))
	for n, rec := range t.Rows {
		cell := func(col string) (string, error) {
			i := idx[col]
			if i >= len(rec) {
				return "", fmt.Errorf("earnings row %d: column %q missing", n, col)
			}
			return rec[i], nil
		}

		var row EarningsRow
		var err error
		if row.Symbol, err = cell(EarningsColSymbol); err != nil {
			return nil, err
		}
		if row.Name, err = cell(EarningsColName); err != nil {
			return nil, err
		}
		if row.ReportDate, err = cell(EarningsColReportDate); err != nil {
			return nil, err
		}
		if row.FiscalDateEnding, err = cell(EarningsColFiscalDateEnding); err != nil {
			return nil, err
		}
		if row.Currency, err = cell(EarningsColCurrency); err != nil {
			return nil, err
		}
		if row.EstimateRaw, err = cell(EarningsColEstimate); err != nil {
			return nil, err
		}
		if raw := strings.TrimSpace(row.EstimateRaw); raw != "" {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("earnings row %d: estimate %q: %w", n, raw, err)
			}
			row.Estimate = decimal.NullDecimal{Decimal: d, Valid: true}
		}
		out = append(out, row)
	}
	return out, nil
}
