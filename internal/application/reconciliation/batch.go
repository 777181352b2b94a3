package reconciliation

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/domain/statement"
	"github.com/shopspring/decimal"
)

// BatchRow is one parsed statement waiting to be saved
type BatchRow struct {
	Filename string
	Platform franchise.Platform
	Result   *statement.ParseResult
	Week     period.Week
	// Brand is required unless the statement carries a per-brand breakdown
	Brand franchise.Brand
	// Amount overrides the parsed gross when the operator corrected it
	Amount *decimal.Decimal
	Data   []byte
}

// UsesBreakdown reports whether the row is allocated across brands
func (r BatchRow) UsesBreakdown() bool {
	return r.Platform == franchise.PlatformDeliveroo && r.Result != nil && r.Result.HasBreakdown()
}

// Gross is the amount that will be stored for a single-brand row
func (r BatchRow) Gross() decimal.Decimal {
	if r.Amount != nil {
		return *r.Amount
	}
	if r.Result == nil {
		return decimal.Zero
	}
	return r.Result.GrossRevenue
}

// Source is how the row's figure was obtained
func (r BatchRow) Source() franchise.SourceKind {
	if r.Result == nil || r.Result.Source == "" {
		return franchise.SourceManual
	}
	return r.Result.Source
}

var statementContentTypes = map[string]string{
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".html": "text/html",
	".htm":  "text/html",
}

// ContentType guesses the archived file's media type from its name
func (r BatchRow) ContentType() string {
	ext := strings.ToLower(filepath.Ext(r.Filename))
	if ct, ok := statementContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// allocations expands the row into the reports it writes
func (r BatchRow) allocations() []statement.Allocation {
	if r.UsesBreakdown() {
		return statement.Allocate(r.Result.Breakdown, r.Week)
	}
	return []statement.Allocation{{Brand: r.Brand.Normalize(), Week: r.Week, Amount: franchise.Round2(r.Gross())}}
}

// UploadBatch collects the statements uploaded together for one franchisee
type UploadBatch struct {
	rows []BatchRow
}

// NewUploadBatch creates an empty batch
func NewUploadBatch() *UploadBatch {
	return &UploadBatch{}
}

// Add appends a row and returns its index. A row without a week takes the
// week suggested by its parse result.
func (b *UploadBatch) Add(row BatchRow) (int, error) {
	if !row.Platform.IsValid() {
		return -1, shared.NewDomainError("INVALID_PLATFORM", fmt.Sprintf("Unknown platform %q", row.Platform))
	}
	if row.Week.Start.IsZero() && row.Result != nil {
		if w, ok := row.Result.SuggestedWeek(); ok {
			row.Week = w
		}
	}
	if row.Amount != nil && row.Amount.IsNegative() {
		return -1, shared.NewDomainError("INVALID_AMOUNT", "Amounts must be zero or positive")
	}
	row.Brand = row.Brand.Normalize()
	b.rows = append(b.rows, row)
	return len(b.rows) - 1, nil
}

// AssignBrand sets the brand for a single-brand row
func (b *UploadBatch) AssignBrand(i int, brand franchise.Brand) error {
	if i < 0 || i >= len(b.rows) {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("No batch row %d", i))
	}
	brand = brand.Normalize()
	if !brand.IsBlank() && !brand.IsKnown() {
		return shared.NewDomainError("INVALID_BRAND", "Unknown brand: "+string(brand))
	}
	b.rows[i].Brand = brand
	return nil
}

// SetWeek sets the accounting week for a row
func (b *UploadBatch) SetWeek(i int, w period.Week) error {
	if i < 0 || i >= len(b.rows) {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("No batch row %d", i))
	}
	b.rows[i].Week = w
	return nil
}

// Len returns the number of rows
func (b *UploadBatch) Len() int {
	return len(b.rows)
}

// Rows returns a copy of the rows
func (b *UploadBatch) Rows() []BatchRow {
	out := make([]BatchRow, len(b.rows))
	copy(out, b.rows)
	return out
}

// Brands lists the distinct brands the batch writes, in first-seen order
func (b *UploadBatch) Brands() []franchise.Brand {
	seen := make(map[franchise.Brand]bool)
	var out []franchise.Brand
	for _, r := range b.rows {
		for _, a := range r.allocations() {
			if a.Brand.IsBlank() || seen[a.Brand] {
				continue
			}
			seen[a.Brand] = true
			out = append(out, a.Brand)
		}
	}
	return out
}

// validate checks that every row can be saved
func (b *UploadBatch) validate() error {
	if len(b.rows) == 0 {
		return shared.NewDomainError("INVALID_INPUT", "Please upload at least one platform report")
	}
	for _, r := range b.rows {
		if !r.Platform.IsAggregator() {
			return shared.NewDomainError("INVALID_PLATFORM", fmt.Sprintf("%s statements cannot be uploaded here", r.Platform.Label()))
		}
		if r.Week.Start.IsZero() {
			return shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Please choose the week for %s.", r.Filename))
		}
		if !r.UsesBreakdown() && r.Brand.IsBlank() {
			return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Please select a brand for %s.", r.Platform.Label()))
		}
	}
	return nil
}
