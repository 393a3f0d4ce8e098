package shared

import "github.com/shopspring/decimal"

// Tolerance is the band used for every money equality check.
var Tolerance = decimal.New(1, -2)

// WithinTolerance reports whether |a-b| < Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// Round2 rounds to whole öre, half away from zero.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// SumDecimals adds the supplied values.
func SumDecimals(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
