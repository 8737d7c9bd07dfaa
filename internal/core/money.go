// Package core provides money parsing and formatting utilities.
//
// Amounts are carried as decimal.Decimal so that sums and percentages
// are exact for any amount a user can type.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts user-entered text into a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// thousands separators are not allowed. Zero, negative and non-numeric
// input all return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("0")      -> 0, ErrInvalidAmount
//	ParseAmount("1.2.3")  -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Percentage returns 100*part/whole, or zero when whole is not positive.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole)
}

// FormatAmount renders an amount with thousands separators and at most
// two decimals, e.g. 12000 -> "12,000" and 1234.5 -> "1,234.50".
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	d = d.Abs()

	var intPart, fracPart string
	if d.Equal(d.Truncate(0)) {
		intPart = d.StringFixed(0)
	} else {
		s := d.StringFixed(2)
		intPart, fracPart, _ = strings.Cut(s, ".")
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}
