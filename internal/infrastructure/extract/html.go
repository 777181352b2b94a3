package extract

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/statement"
)

// sniffLength is how many leading bytes are inspected to recognise HTML
const sniffLength = 100

// LooksLikeHTML reports whether data is an HTML document regardless of its
// file name. Just Eat invoices arrive as HTML saved with a .doc extension.
func LooksLikeHTML(data []byte) bool {
	head := data
	if len(head) > sniffLength {
		head = head[:sniffLength]
	}
	start := bytes.TrimSpace(head)
	return bytes.HasPrefix(start, []byte("<!DOCTYPE")) ||
		bytes.HasPrefix(start, []byte("<html")) ||
		bytes.HasPrefix(start, []byte("<HTML")) ||
		bytes.Contains(start, []byte("<html"))
}

var (
	styleBlock  = regexp.MustCompile(`(?i)<style[^>]*>[\s\S]*?</style>`)
	scriptBlock = regexp.MustCompile(`(?i)<script[^>]*>[\s\S]*?</script>`)
	lineBreak   = regexp.MustCompile(`(?i)<br\s*/?>`)
	cellTag     = regexp.MustCompile(`(?i)</?(td|tr|th|div|p|span|table|tbody|thead)[^>]*>`)
	anyTag      = regexp.MustCompile(`<[^>]+>`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// StripHTML reduces an HTML statement to single-spaced plain text with table
// cells separated by spaces. Named and numeric character references are
// decoded once the tags are gone.
func StripHTML(doc string) string {
	text := styleBlock.ReplaceAllString(doc, "")
	text = scriptBlock.ReplaceAllString(text, "")
	text = lineBreak.ReplaceAllString(text, "\n")
	text = cellTag.ReplaceAllString(text, " ")
	text = anyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var justEatHTMLRules = cascade{
	{
		name:       "Total sales",
		pattern:    regexp.MustCompile(`(?i)Total\s+sales\s*£([\d,]+\.?\d*)`),
		group:      1,
		confidence: statement.ConfidenceHigh,
	},
	{
		name:       "Total sales this period",
		pattern:    regexp.MustCompile(`(?i)Total\s+sales\s+this\s+period[\s\S]*?£([\d,]+\.?\d*)`),
		group:      1,
		confidence: statement.ConfidenceHigh,
	},
	{
		name:       "Gross Order Value",
		pattern:    regexp.MustCompile(`(?i)Gross\s+Order\s+Value\s+of\s+£([\d,]+\.?\d*)`),
		group:      1,
		confidence: statement.ConfidenceHigh,
	},
	{
		// cash, card and total columns of the orders table footer
		name:       "Orders table total",
		pattern:    regexp.MustCompile(`(?m)£[\d,]+\.?\d*\s+£([\d,]+\.?\d*)\s+£([\d,]+\.?\d*)\s*$`),
		group:      2,
		confidence: statement.ConfidenceMedium,
	},
	{
		name:       "Card orders total",
		pattern:    regexp.MustCompile(`(?i)card\s+orders\s+totalling\s+£([\d,]+\.?\d*)`),
		group:      1,
		confidence: statement.ConfidenceMedium,
	},
}

var genericHTMLRules = cascade{
	{
		name:       "Generic HTML total",
		pattern:    regexp.MustCompile(`(?i)total\s+(?:sales|revenue|gross)[\s:]*£([\d,]+\.?\d*)`),
		group:      1,
		confidence: statement.ConfidenceMedium,
	},
}

// FromHTML extracts gross revenue from an HTML statement
func FromHTML(doc string, p franchise.Platform) *statement.ParseResult {
	text := StripHTML(doc)
	rules := genericHTMLRules
	if p == franchise.PlatformJustEat {
		rules = justEatHTMLRules
	}
	result := rules.run(text, p, franchise.SourceHTML)
	result.Excerpt = excerpt(text)
	return result.WithPeriod(PeriodFromHTMLText(text))
}
