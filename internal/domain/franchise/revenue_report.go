package franchise

import (
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SourceKind records how a report's figure was obtained
type SourceKind string

const (
	SourceCSV    SourceKind = "csv"
	SourcePDF    SourceKind = "pdf"
	SourceHTML   SourceKind = "html"
	SourceXLSX   SourceKind = "xlsx"
	SourceManual SourceKind = "manual"
)

// IsValid checks if the source kind is known
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceCSV, SourcePDF, SourceHTML, SourceXLSX, SourceManual:
		return true
	}
	return false
}

// ReportKey identifies the single logical report for a franchise, brand,
// platform and period. Writing a report for an existing key replaces it.
type ReportKey struct {
	FranchiseeID uuid.UUID
	Brand        Brand
	Platform     Platform
	Period       period.Week
}

// InvoiceKey returns the (franchise, brand, period) key the report rolls up into
func (k ReportKey) InvoiceKey() InvoiceKey {
	return InvoiceKey{FranchiseeID: k.FranchiseeID, Brand: k.Brand, Period: k.Period}
}

// RevenueReport is one platform's revenue for one brand over one period
type RevenueReport struct {
	shared.BaseEntity
	FranchiseeID uuid.UUID       `json:"franchisee_id"`
	Brand        Brand           `json:"brand"`
	Platform     Platform        `json:"platform"`
	Period       period.Week     `json:"period"`
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
	SourcePath   *string         `json:"source_path,omitempty"`
	Source       SourceKind      `json:"source"`
}

// NewRevenueReport creates a validated report with gross rounded to pennies
func NewRevenueReport(key ReportKey, gross decimal.Decimal, source SourceKind, sourcePath *string) (*RevenueReport, error) {
	if key.FranchiseeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_FRANCHISEE", "Franchisee ID cannot be empty")
	}
	if !key.Platform.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Platform is not valid")
	}
	if !source.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Source kind is not valid")
	}
	if gross.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Gross revenue cannot be negative")
	}
	if key.Period.Start.IsZero() || key.Period.End.Before(key.Period.Start) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Report period is not valid")
	}
	if source == SourceManual || source == SourceXLSX {
		sourcePath = nil
	}
	return &RevenueReport{
		BaseEntity:   shared.NewBaseEntity(),
		FranchiseeID: key.FranchiseeID,
		Brand:        key.Brand.Normalize(),
		Platform:     key.Platform,
		Period:       key.Period,
		GrossRevenue: Round2(gross),
		SourcePath:   sourcePath,
		Source:       source,
	}, nil
}

// Key returns the report's identity tuple
func (r *RevenueReport) Key() ReportKey {
	return ReportKey{FranchiseeID: r.FranchiseeID, Brand: r.Brand, Platform: r.Platform, Period: r.Period}
}

// UploadedAt returns when the report was stored
func (r *RevenueReport) UploadedAt() time.Time {
	return r.CreatedAt
}
