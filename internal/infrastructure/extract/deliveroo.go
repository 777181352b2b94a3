package extract

import (
	"regexp"
	"strings"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/statement"
	"github.com/shopspring/decimal"
)

// brandPattern recognises a house brand as it is printed in a Deliveroo site
// breakdown. Other brands trading from the same site are ignored.
type brandPattern struct {
	brand   franchise.Brand
	pattern string
}

var deliverooBrands = []brandPattern{
	{brand: franchise.BrandEggsNStuff, pattern: `Eggs\s+[nN]\s+Stuff`},
	{brand: franchise.BrandSmshBn, pattern: `Smash\s+Bun\s*\(\s*EC\s*\)|SMSH\s+BN`},
	{brand: franchise.BrandWingShack, pattern: `Wing\s+Shack(?:\s+Co\s*[-–]\s*Bethnal\s+Green\s*\(\s*EC\s*\))?`},
}

// brandScanWindow is how far past a brand name the loose amount search looks
const brandScanWindow = 350

type compiledBrand struct {
	brand franchise.Brand
	name  *regexp.Regexp
	row   *regexp.Regexp
}

var (
	compiledBrands     = compileBrands()
	looseOrderValue    = regexp.MustCompile(`Total\s+Order\s+Value[\s\S]*?(?:£|\b)([\d,]+\.\d{2})\b`)
	documentOrderValue = regexp.MustCompile(`(?i)Total\s+Order\s+Value[^£]*£([\d,]+\.?\d*)`)
)

func compileBrands() []compiledBrand {
	out := make([]compiledBrand, 0, len(deliverooBrands))
	for _, b := range deliverooBrands {
		out = append(out, compiledBrand{
			brand: b.brand,
			name:  regexp.MustCompile(`(?i)` + b.pattern),
			row:   regexp.MustCompile(`(?i)(` + b.pattern + `)\s+Total\s+Order\s+Value\s+[^£\d]*(?:£)?([\d,]+\.?\d*)`),
		})
	}
	return out
}

// scanBrandTotals looks for each house brand's "Total Order Value" anywhere in
// the document. Only the first occurrence per brand counts.
func scanBrandTotals(text string) (statement.Breakdown, bool) {
	breakdown := statement.Breakdown{}
	foundAny := false
	hasLabel := strings.Contains(text, "Total Order Value")

	for _, b := range compiledBrands {
		amount, found := decimal.Zero, false
		if m := b.row.FindStringSubmatch(text); m != nil {
			amount, found = capturedAmount(m[len(m)-1])
		} else if hasLabel {
			if loc := b.name.FindStringIndex(text); loc != nil {
				end := loc[0] + brandScanWindow
				if end > len(text) {
					end = len(text)
				}
				if end > loc[1] {
					if m := looseOrderValue.FindStringSubmatch(text[loc[1]:end]); m != nil {
						amount, found = capturedAmount(m[1])
					}
				}
			}
		}
		if found {
			foundAny = true
		}
		breakdown[b.brand] = franchise.Round2(amount)
	}
	return statement.CompleteBreakdown(breakdown), foundAny
}

func deliverooFromText(text string) *statement.ParseResult {
	if breakdown, ok := scanBrandTotals(text); ok {
		return &statement.ParseResult{
			Platform:     franchise.PlatformDeliveroo,
			Source:       franchise.SourcePDF,
			GrossRevenue: breakdown.Total(),
			Breakdown:    breakdown,
			Confidence:   statement.ConfidenceHigh,
			MatchedRule:  "House brands only (per-brand Total Order Value)",
		}
	}

	if m := documentOrderValue.FindStringSubmatch(text); m != nil {
		if total, ok := capturedAmount(m[1]); ok {
			total = franchise.Round2(total)
			return &statement.ParseResult{
				Platform:     franchise.PlatformDeliveroo,
				Source:       franchise.SourcePDF,
				GrossRevenue: total,
				Breakdown:    statement.SingleBrand(total),
				Confidence:   statement.ConfidenceHigh,
				MatchedRule:  "Total Order Value",
			}
		}
	}
	return statement.NoMatch(franchise.PlatformDeliveroo, franchise.SourcePDF)
}
