package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/statement"
	csvimport "github.com/hungrytum/franchise-billing/internal/infrastructure/import"
	"github.com/shopspring/decimal"
)

// Revenue column names per platform, compared lowercase and trimmed
var revenueHeaders = map[franchise.Platform][]string{
	franchise.PlatformDeliveroo: {
		"total", "gross", "gross total", "gross revenue", "order total",
		"total (incl. vat)", "total inc vat", "total sales", "net revenue",
		"gross order value", "subtotal",
	},
	franchise.PlatformUberEats: {
		"sales (incl. vat)", "sales (incl vat)", "total sales",
		"gross revenue", "gross sales", "order total",
		"gross order value", "total amount", "gross fare", "item subtotal",
	},
	franchise.PlatformJustEat: {
		"total", "gross", "gross total", "gross revenue", "order total",
		"total sales", "total order value", "subtotal", "net total",
		"gross order value",
	},
}

// Date columns in priority order
var dateHeaders = []string{
	"week ending",
	"week end",
	"period end",
	"statement date",
	"period",
	"order date",
	"date",
	"week",
	"period start",
	"period end date",
}

// periodEndHeaders mark columns holding the end of the statement period; the
// latest date in such a column identifies the week.
var periodEndHeaders = []string{"week ending", "week end", "period end", "statement date", "period end date"}

// Uber Eats revenue after offers is sales plus the (negative) offers column
const (
	uberSalesHeader  = "sales (incl. vat)"
	uberOffersHeader = "offers on items (incl. vat)"
	uberCombinedRule = "Sales (incl. VAT) + Offers on items (incl. VAT)"
)

var numericLooking = regexp.MustCompile(`^[£$€]?\d`)

// numericShare is the fraction of values that must look numeric for a column
// to be taken as revenue when no header matched.
const numericShare = 0.5

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// twoWayContains matches when either string contains the other. Blank
// headers never match.
func twoWayContains(header, pattern string) bool {
	if header == "" {
		return false
	}
	return strings.Contains(header, pattern) || strings.Contains(pattern, header)
}

// FromCSV extracts gross revenue from a tabular statement export
func FromCSV(data []byte, p franchise.Platform, opts ...csvimport.ParserOption) (*statement.ParseResult, error) {
	table, err := csvimport.ReadTable(data, opts...)
	if err != nil {
		return nil, extractionFailed(msgCSVUnreadable, err)
	}
	result := fromTable(table, p)
	result.SkippedLines = len(table.Skipped)
	return result.WithPeriod(periodFromTable(table)), nil
}

func fromTable(table *csvimport.Table, p franchise.Platform) *statement.ParseResult {
	rowCount := len(table.Rows)
	newResult := func(column string, conf statement.Confidence, gross decimal.Decimal) *statement.ParseResult {
		return &statement.ParseResult{
			Platform:      p,
			Source:        franchise.SourceCSV,
			GrossRevenue:  franchise.Round2(gross),
			Confidence:    conf,
			MatchedColumn: column,
			MatchedRule:   column,
			RowCount:      rowCount,
		}
	}

	if p == franchise.PlatformUberEats {
		sales, hasSales := exactHeader(table.Headers, uberSalesHeader)
		offers, hasOffers := exactHeader(table.Headers, uberOffersHeader)
		switch {
		case hasSales && hasOffers:
			gross := sumColumn(table, sales).Add(sumColumn(table, offers))
			return newResult(uberCombinedRule, statement.ConfidenceHigh, gross)
		case hasSales:
			return newResult(sales, statement.ConfidenceMedium, sumColumn(table, sales))
		}
	}

	column, conf, ok := revenueColumn(table, revenueHeaders[p])
	if !ok {
		r := statement.NoMatch(p, franchise.SourceCSV)
		r.RowCount = rowCount
		return r
	}
	return newResult(column, conf, sumColumn(table, column))
}

// revenueColumn finds the column to sum: exact header match, then partial
// match, then the first column whose values mostly look like amounts.
func revenueColumn(table *csvimport.Table, patterns []string) (string, statement.Confidence, bool) {
	for _, h := range table.Headers {
		n := normalizeHeader(h)
		for _, pattern := range patterns {
			if n == pattern {
				return h, statement.ConfidenceHigh, true
			}
		}
	}
	for _, h := range table.Headers {
		n := normalizeHeader(h)
		for _, pattern := range patterns {
			if twoWayContains(n, pattern) {
				return h, statement.ConfidenceMedium, true
			}
		}
	}
	if len(table.Rows) == 0 {
		return "", statement.ConfidenceLow, false
	}
	for _, h := range table.Headers {
		numeric := 0
		for _, v := range table.Column(h) {
			if looksLikeAmount(v) {
				numeric++
			}
		}
		if float64(numeric) > float64(len(table.Rows))*numericShare {
			return h, statement.ConfidenceLow, true
		}
	}
	return "", statement.ConfidenceLow, false
}

// looksLikeAmount accepts values that start like a number and parse fully as
// one, so date columns such as "14/01/2024" are not mistaken for revenue.
func looksLikeAmount(v string) bool {
	v = strings.TrimSpace(v)
	if !numericLooking.MatchString(v) {
		return false
	}
	_, ok := franchise.ParseAmount(v)
	return ok
}

func exactHeader(headers []string, want string) (string, bool) {
	for _, h := range headers {
		if normalizeHeader(h) == want {
			return h, true
		}
	}
	return "", false
}

func sumColumn(table *csvimport.Table, header string) decimal.Decimal {
	total := decimal.Zero
	for _, v := range table.Column(header) {
		total = total.Add(leadingAmount(v))
	}
	return total
}

// periodFromTable picks the statement date from the first matching date
// column. Period-end columns use their latest date, others the first.
func periodFromTable(table *csvimport.Table) (time.Time, bool) {
	if len(table.Rows) == 0 {
		return time.Time{}, false
	}
	column, useMax := "", false
	for _, pattern := range dateHeaders {
		for _, h := range table.Headers {
			n := normalizeHeader(h)
			if !twoWayContains(n, pattern) {
				continue
			}
			column = h
			for _, end := range periodEndHeaders {
				if twoWayContains(n, end) {
					useMax = true
					break
				}
			}
			break
		}
		if column != "" {
			break
		}
	}
	if column == "" {
		return time.Time{}, false
	}

	var picked time.Time
	found := false
	for _, v := range table.Column(column) {
		t, ok := period.ParseFlexibleDate(v)
		if !ok {
			continue
		}
		if !found {
			picked, found = t, true
			if !useMax {
				break
			}
			continue
		}
		if t.After(picked) {
			picked = t
		}
	}
	return picked, found
}
