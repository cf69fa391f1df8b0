package ingest

// decode.go reads numbers written with a dot for thousands and a comma for
// decimals ("1.234.567,89"). Absent or unreadable input reports ok=false; the
// caller decides whether absence is a failure.

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// DecodeInt decodes a locale-formatted number rounded half away from zero.
func DecodeInt(s string) (int64, bool) {
	d, ok := decodeNumber(s)
	if !ok {
		return 0, false
	}
	return roundInt(d)
}

// DecodeDecimal decodes a locale-formatted number.
func DecodeDecimal(s string) (float64, bool) {
	d, ok := decodeNumber(s)
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

func decodeNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func roundInt(d decimal.Decimal) (int64, bool) {
	r := d.Round(0)
	if r.GreaterThan(maxInt64) || r.LessThan(minInt64) {
		return 0, false
	}
	return r.IntPart(), true
}
