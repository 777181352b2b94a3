package franchise

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountNoise = regexp.MustCompile(`[£$€,\s]`)

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to pennies. All amounts handled here are
// non-negative, so this is half-up rounding.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns amount × rate / 100 rounded to pennies
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate).Div(hundred))
}

// ParseAmount parses a typed or extracted money figure, ignoring currency
// symbols, thousands separators and whitespace.
func ParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := amountNoise.ReplaceAllString(strings.TrimSpace(s), "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
