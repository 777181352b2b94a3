package extract

import (
	"fmt"
	"regexp"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/statement"
	"github.com/shopspring/decimal"
)

// uberAssumedCommission is the marketplace fee rate used to reverse-estimate
// gross sales from an Uber Eats fee invoice.
var uberAssumedCommission = decimal.NewFromFloat(0.30)

// Uber Eats PDFs are fee invoices; none of these figures is gross revenue,
// so every rule is low confidence and labelled for verification.
var uberTextRules = cascade{
	{
		name:       "Marketplace Fee",
		pattern:    regexp.MustCompile(`(?i)Marketplace\s+Fee[\s\S]*?£[\d,.]+[\s\S]*?£([\d,]+\.?\d*)`),
		group:      1,
		confidence: statement.ConfidenceLow,
		derive: func(fee decimal.Decimal) (decimal.Decimal, string) {
			gross := fee.Div(uberAssumedCommission)
			return gross, fmt.Sprintf("Estimated from Marketplace Fee £%s (assumed 30%% rate - PLEASE VERIFY)", fee.String())
		},
	},
	{
		name:       "Total amount payable (this is fees, not gross revenue - PLEASE VERIFY)",
		pattern:    regexp.MustCompile(`(?i)Total\s+amount\s+payable[\s\t]*£([\d,]+\.?\d*)`),
		group:      1,
		confidence: statement.ConfidenceLow,
	},
	{
		name:       "Total net amount (this is fees, not gross revenue - PLEASE VERIFY)",
		pattern:    regexp.MustCompile(`(?i)Total\s+net\s+amount[\s\t]*£([\d,]+\.?\d*)`),
		group:      1,
		confidence: statement.ConfidenceLow,
	},
}

var justEatTextRules = cascade{
	{
		name:       "Total sales",
		pattern:    regexp.MustCompile(`(?i)Total\s+sales[\s\t]*£([\d,]+\.?\d*)`),
		group:      1,
		confidence: statement.ConfidenceHigh,
	},
	{
		name:       "Gross Order Value",
		pattern:    regexp.MustCompile(`(?i)Gross\s+Order\s+Value\s+of\s+£([\d,]+\.?\d*)`),
		group:      1,
		confidence: statement.ConfidenceHigh,
	},
}

// FromText extracts gross revenue from the plain text of a PDF statement
func FromText(text string, p franchise.Platform) *statement.ParseResult {
	var result *statement.ParseResult
	switch p {
	case franchise.PlatformDeliveroo:
		result = deliverooFromText(text)
	case franchise.PlatformUberEats:
		result = uberTextRules.run(text, p, franchise.SourcePDF)
	case franchise.PlatformJustEat:
		result = justEatTextRules.run(text, p, franchise.SourcePDF)
	default:
		result = statement.NoMatch(p, franchise.SourcePDF)
	}
	result.Excerpt = excerpt(text)
	return result.WithPeriod(PeriodFromText(text))
}
