package decimal

import (
	"github.com/shopspring/decimal"
)

// Scale is the internal precision of every tax-relevant amount.
const Scale int32 = 4

// ExportScale is the precision of amounts written to exported files
const ExportScale int32 = 2

// Zero is decimal zero
var Zero = decimal.Zero

// FromInt creates decimal from int
func FromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// FromString parses decimal from string
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustFromString parses decimal from string, panics on error
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Round rounds to the internal scale, half away from zero
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// LineNet computes quantity * unit price at internal scale
func LineNet(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return Round(quantity.Mul(unitPrice))
}

// RoundExport rounds to export precision, half away from zero
func RoundExport(d decimal.Decimal) decimal.Decimal {
	return d.Round(ExportScale)
}

// ExportVAT computes the VAT of an export-precision base in one rounding
// step, so no intermediate scale-4 rounding can carry into the cents.
func ExportVAT(base, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() {
		return decimal.Zero.Round(ExportScale)
	}
	return RoundExport(base.Mul(ratePercent).Shift(-2))
}

// CalculateVAT computes VAT amount: amount * (rate/100), rounded to internal scale
func CalculateVAT(amount, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() {
		return Zero
	}
	return Round(amount.Mul(ratePercent).Shift(-2))
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// Neg negates d; zero stays zero
func Neg(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return Zero
	}
	return d.Neg()
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}

// WithinTolerance reports whether |a - b| <= tolerance
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// Format2 renders an amount with exactly two fraction digits (export precision)
func Format2(d decimal.Decimal) string {
	return d.StringFixed(ExportScale)
}

// FormatQuantity renders a quantity at internal scale without trailing zeros
func FormatQuantity(d decimal.Decimal) string {
	return Round(d).String()
}

// FormatRate renders a percentage without trailing zeros ("17", "5.5")
func FormatRate(d decimal.Decimal) string {
	return d.String()
}
