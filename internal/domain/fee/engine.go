// Package fee computes franchise fees from per-platform gross revenue.
//
// Rounding is half-up to pennies. In per-platform mode each platform's fee is
// rounded before the fees are summed, matching the breakdown table shown on
// invoices.
package fee

import (
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is one platform's contribution to the fee
type Line struct {
	Platform franchise.Platform `json:"platform"`
	Gross    decimal.Decimal    `json:"gross"`
	Rate     decimal.Decimal    `json:"rate"`
	Fee      decimal.Decimal    `json:"fee"`
}

// Result is the outcome of a fee computation
type Result struct {
	TotalGross          decimal.Decimal `json:"total_gross"`
	FeeAmount           decimal.Decimal `json:"fee_amount"`
	EffectivePercentage decimal.Decimal `json:"effective_percentage"`
	Lines               []Line          `json:"lines,omitempty"`
}

// Projection converts the result into invoice totals
func (r Result) Projection() franchise.Projection {
	return franchise.Projection{
		TotalGross:    r.TotalGross,
		FeePercentage: r.EffectivePercentage,
		FeeAmount:     r.FeeAmount,
	}
}

// Compute applies the franchisee's fee model to per-platform gross revenue.
// Only aggregator platforms are considered; direct-platform revenue is billed
// separately and never contributes here.
func Compute(cfg franchise.FeeConfiguration, gross map[franchise.Platform]decimal.Decimal) Result {
	switch cfg.Model {
	case franchise.PaymentModelMonthlyFixed:
		return Result{
			TotalGross:          decimal.Zero,
			FeeAmount:           franchise.Round2(cfg.MonthlyAmount()),
			EffectivePercentage: decimal.Zero,
		}
	case franchise.PaymentModelPercentagePerPlatform:
		return perPlatform(cfg, gross)
	default:
		return flat(cfg, gross)
	}
}

func aggregatorTotal(gross map[franchise.Platform]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range franchise.AggregatorPlatforms() {
		total = total.Add(gross[p])
	}
	return franchise.Round2(total)
}

func flat(cfg franchise.FeeConfiguration, gross map[franchise.Platform]decimal.Decimal) Result {
	total := aggregatorTotal(gross)
	rate := cfg.NominalRate()
	fee := franchise.Percent(total, rate)

	lines := make([]Line, 0, 3)
	for _, p := range franchise.AggregatorPlatforms() {
		if g, ok := gross[p]; ok {
			lines = append(lines, Line{Platform: p, Gross: franchise.Round2(g), Rate: rate, Fee: franchise.Percent(g, rate)})
		}
	}
	return Result{
		TotalGross:          total,
		FeeAmount:           fee,
		EffectivePercentage: effective(total, fee, cfg),
		Lines:               lines,
	}
}

func perPlatform(cfg franchise.FeeConfiguration, gross map[franchise.Platform]decimal.Decimal) Result {
	total := aggregatorTotal(gross)
	fee := decimal.Zero
	lines := make([]Line, 0, 3)
	for _, p := range franchise.AggregatorPlatforms() {
		g, ok := gross[p]
		if !ok {
			continue
		}
		rate := cfg.PlatformRate(p)
		lineFee := franchise.Percent(g, rate)
		fee = fee.Add(lineFee)
		lines = append(lines, Line{Platform: p, Gross: franchise.Round2(g), Rate: rate, Fee: lineFee})
	}
	fee = franchise.Round2(fee)
	return Result{
		TotalGross:          total,
		FeeAmount:           fee,
		EffectivePercentage: effective(total, fee, cfg),
		Lines:               lines,
	}
}

// effective is for display and audit only; it is never used to derive a fee.
func effective(total, fee decimal.Decimal, cfg franchise.FeeConfiguration) decimal.Decimal {
	if total.IsPositive() {
		return franchise.Round2(fee.Div(total).Mul(hundred))
	}
	return cfg.NominalRate()
}

// SumReports totals gross revenue per platform from stored reports
func SumReports(reports []franchise.RevenueReport) map[franchise.Platform]decimal.Decimal {
	out := make(map[franchise.Platform]decimal.Decimal)
	for _, r := range reports {
		out[r.Platform] = out[r.Platform].Add(r.GrossRevenue)
	}
	return out
}

// DirectFee is the fee on direct-platform revenue, shown separately from the
// aggregator invoice.
func DirectFee(cfg franchise.FeeConfiguration, gross decimal.Decimal) decimal.Decimal {
	return franchise.Percent(gross, cfg.PlatformRate(franchise.PlatformSlerp))
}
