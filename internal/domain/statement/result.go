// Package statement holds the transient result of reading one sales
// statement and the rules for splitting multi-brand statements.
package statement

import (
	"time"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/shopspring/decimal"
)

// Confidence is an extractor's self-assessed reliability
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// rank orders tiers so callers can compare them
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	default:
		return 1
	}
}

// AtLeast reports whether c is as reliable as other
func (c Confidence) AtLeast(other Confidence) bool {
	return c.rank() >= other.rank()
}

// Breakdown maps each brand to its share of a multi-brand statement
type Breakdown map[franchise.Brand]decimal.Decimal

// Total sums the breakdown
func (b Breakdown) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range b {
		total = total.Add(v)
	}
	return franchise.Round2(total)
}

// ParseResult is what an extractor read from one statement
type ParseResult struct {
	Platform       franchise.Platform   `json:"platform"`
	Source         franchise.SourceKind `json:"source"`
	GrossRevenue   decimal.Decimal      `json:"gross_revenue"`
	Breakdown      Breakdown            `json:"brand_breakdown,omitempty"`
	Confidence     Confidence           `json:"confidence"`
	MatchedRule    string               `json:"matched_rule,omitempty"`
	MatchedColumn  string               `json:"matched_column,omitempty"`
	RowCount       int                  `json:"row_count,omitempty"`
	SkippedLines   int                  `json:"skipped_lines,omitempty"`
	InferredPeriod *time.Time           `json:"inferred_period,omitempty"`
	Excerpt        string               `json:"raw_text,omitempty"`
}

// NoMatch is the zero-revenue, low-confidence result returned when no rule fired
func NoMatch(p franchise.Platform, source franchise.SourceKind) *ParseResult {
	return &ParseResult{
		Platform:     p,
		Source:       source,
		GrossRevenue: decimal.Zero,
		Confidence:   ConfidenceLow,
	}
}

// HasBreakdown reports whether the statement was split across brands
func (r *ParseResult) HasBreakdown() bool {
	return len(r.Breakdown) > 0
}

// SuggestedWeek is the calendar week containing the inferred period date
func (r *ParseResult) SuggestedWeek() (period.Week, bool) {
	if r.InferredPeriod == nil {
		return period.Week{}, false
	}
	return period.ResolveCalendarWeek(*r.InferredPeriod), true
}

// WithPeriod records an inferred period date when one was found
func (r *ParseResult) WithPeriod(t time.Time, ok bool) *ParseResult {
	if ok {
		r.InferredPeriod = &t
	}
	return r
}
