package statement

import (
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/shopspring/decimal"
)

// Allocation is one brand's share of a statement for an accounting week
type Allocation struct {
	Brand  franchise.Brand `json:"brand"`
	Week   period.Week     `json:"week"`
	Amount decimal.Decimal `json:"amount"`
}

// Allocate expands a per-brand breakdown into one allocation per known brand.
// Brands absent from the breakdown are emitted at zero so every statement
// yields the same set of brands.
func Allocate(b Breakdown, week period.Week) []Allocation {
	out := make([]Allocation, 0, len(franchise.KnownBrands()))
	for _, brand := range franchise.KnownBrands() {
		out = append(out, Allocation{
			Brand:  brand,
			Week:   week,
			Amount: franchise.Round2(b[brand]),
		})
	}
	return out
}

// CompleteBreakdown fills missing known brands with zero and rounds every amount
func CompleteBreakdown(b Breakdown) Breakdown {
	out := make(Breakdown, len(franchise.KnownBrands()))
	for _, brand := range franchise.KnownBrands() {
		out[brand] = franchise.Round2(b[brand])
	}
	return out
}

// SingleBrand places a whole-document total on the default brand
func SingleBrand(total decimal.Decimal) Breakdown {
	return CompleteBreakdown(Breakdown{franchise.DefaultBrand: total})
}
