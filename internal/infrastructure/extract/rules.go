package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/statement"
	"github.com/shopspring/decimal"
)

// excerptLength bounds the raw text echoed back for operator review
const excerptLength = 2000

// rule is one step of an ordered extraction cascade
type rule struct {
	name       string
	pattern    *regexp.Regexp
	group      int
	confidence statement.Confidence
	// derive turns the captured figure into gross revenue and a rule label.
	// Nil means the capture is the gross and name is the label.
	derive func(captured decimal.Decimal) (decimal.Decimal, string)
}

// cascade is evaluated in order; the first rule with a parseable capture wins
type cascade []rule

func (c cascade) apply(text string) (gross decimal.Decimal, label string, conf statement.Confidence, ok bool) {
	for _, r := range c {
		m := r.pattern.FindStringSubmatch(text)
		if m == nil || len(m) <= r.group {
			continue
		}
		amount, parsed := capturedAmount(m[r.group])
		if !parsed {
			continue
		}
		if r.derive != nil {
			gross, label = r.derive(amount)
		} else {
			gross, label = amount, r.name
		}
		return franchise.Round2(gross), label, r.confidence, true
	}
	return decimal.Zero, "", statement.ConfidenceLow, false
}

// run applies the cascade and builds a result, or a no-match result
func (c cascade) run(text string, p franchise.Platform, source franchise.SourceKind) *statement.ParseResult {
	gross, label, conf, ok := c.apply(text)
	if !ok {
		return statement.NoMatch(p, source)
	}
	return &statement.ParseResult{
		Platform:     p,
		Source:       source,
		GrossRevenue: gross,
		Confidence:   conf,
		MatchedRule:  label,
	}
}

// capturedAmount parses a "[\d,]+\.?\d*" capture
func capturedAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), ".")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)

// leadingAmount reads the number at the start of a cell once currency symbols,
// separators and whitespace are removed. Cells with no leading number are zero.
func leadingAmount(s string) decimal.Decimal {
	cleaned := currencyNoise.ReplaceAllString(s, "")
	m := leadingNumber.FindString(cleaned)
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(m, "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

var currencyNoise = regexp.MustCompile(`[£$€,\s]`)

func excerpt(text string) string {
	if len(text) <= excerptLength {
		return text
	}
	cut := excerptLength
	// keep the excerpt valid UTF-8
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
