package display

import (
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Placeholder is shown when no value has been fetched yet.
const Placeholder = "--"

// TimeLayout is the time-of-day format for "last updated".
const TimeLayout = "15:04:05"

// exactDigits covers the longest fractional expansion of a float64 (1074 digits).
const exactDigits = 1100

// FormatValue renders v with two decimals, rounding the exact binary value
// half to even like %.2f. Absent or non-finite values render as Placeholder.
func FormatValue(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return Placeholder
	}
	exact := decimal.NewFromBigRat(new(big.Rat).SetFloat64(*v), exactDigits)
	return exact.StringFixedBank(2)
}

// FormatTime renders t as a local time of day, or "" when absent.
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(TimeLayout)
}
