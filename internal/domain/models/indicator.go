package models

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrIndicatorKey is returned when a (date, column) pair is not in a frame.
var ErrIndicatorKey = errors.New("indicator key not found")

// Squeeze column names.
const (
	ColSqueezeOn = "SQZ_ON"
)

// SqueezeColumn names the squeeze magnitude column for the given parameters.
func SqueezeColumn(bbLength int, bbStd float64, kcLength int, kcScalar float64) string {
	return fmt.Sprintf("SQZ_%d_%s_%d_%s", bbLength, formatScalar(bbStd), kcLength, formatScalar(kcScalar))
}

// KeltnerColumns returns the lower, basis and upper column names of an
// EMA Keltner channel.
func KeltnerColumns(length int, scalar float64) (lower, basis, upper string) {
	suffix := fmt.Sprintf("%d_%s", length, formatScalar(scalar))
	return "KCLe_" + suffix, "KCBe_" + suffix, "KCUe_" + suffix
}

// formatScalar renders 2 as "2.0" and 1.5 as "1.5".
func formatScalar(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	for _, c := range s {
		if c == '.' {
			return s
		}
	}
	return s + ".0"
}

type frameKey struct {
	date   string
	column string
}

// IndicatorFrame stores indicator values addressed by (date, column).
type IndicatorFrame struct {
	values map[frameKey]float64
	cols   []string
}

// NewIndicatorFrame creates an empty frame.
func NewIndicatorFrame() *IndicatorFrame {
	return &IndicatorFrame{values: make(map[frameKey]float64)}
}

// Set stores v at (date, column).
func (f *IndicatorFrame) Set(date, column string, v float64) {
	k := frameKey{date: date, column: column}
	if !f.hasColumn(column) {
		f.cols = append(f.cols, column)
	}
	f.values[k] = v
}

// At returns the value at (date, column) or ErrIndicatorKey.
func (f *IndicatorFrame) At(date, column string) (float64, error) {
	v, ok := f.values[frameKey{date: date, column: column}]
	if !ok {
		return 0, fmt.Errorf("%w: (%s, %s)", ErrIndicatorKey, date, column)
	}
	return v, nil
}

// Columns lists column names in insertion order.
func (f *IndicatorFrame) Columns() []string {
	return append([]string(nil), f.cols...)
}

func (f *IndicatorFrame) hasColumn(column string) bool {
	for _, c := range f.cols {
		if c == column {
			return true
		}
	}
	return false
}
