package franchise

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
)

// FranchiseeRepository defines the interface for franchisee persistence
type FranchiseeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Franchisee, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Franchisee, int64, error)
	FindByPaymentModel(ctx context.Context, model PaymentModel) ([]Franchisee, error)
	Save(ctx context.Context, f *Franchisee) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RevenueReportRepository defines the interface for revenue report persistence
type RevenueReportRepository interface {
	// Replace deletes any report stored under the same key and inserts r
	Replace(ctx context.Context, r *RevenueReport) error
	FindByKey(ctx context.Context, key ReportKey) (*RevenueReport, error)
	// FindForInvoice returns every report for the franchise, brand and period.
	// A blank brand matches all brands.
	FindForInvoice(ctx context.Context, key InvoiceKey, platforms ...Platform) ([]RevenueReport, error)
	// FindDirectByPeriodEnd returns direct-platform reports whose sales period ends on the given day
	FindDirectByPeriodEnd(ctx context.Context, franchiseeID uuid.UUID, brand Brand, end time.Time) ([]RevenueReport, error)
	FindByFranchisee(ctx context.Context, franchiseeID uuid.UUID, filter shared.Filter) ([]RevenueReport, int64, error)
}

// ErrInvoiceNumberTaken is returned by Save when another writer stored the
// same invoice number first; the caller may take the next number and retry.
var ErrInvoiceNumberTaken = shared.NewDomainError("INVOICE_NUMBER_TAKEN", "Invoice number is already taken")

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByKey(ctx context.Context, key InvoiceKey) (*Invoice, error)
	FindByFranchisee(ctx context.Context, franchiseeID uuid.UUID, filter shared.Filter) ([]Invoice, int64, error)
	// ExistsForPeriod reports whether any invoice covers exactly the period
	ExistsForPeriod(ctx context.Context, franchiseeID uuid.UUID, p period.Week) (bool, error)
	FindForPeriod(ctx context.Context, franchiseeID uuid.UUID, p period.Week) (*Invoice, error)
	// Save inserts a new invoice or updates a stored one. An update fails with
	// shared.ErrConcurrencyConflict when the row moved past inv.PersistedVersion().
	Save(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	// GenerateInvoiceNumber returns the next HT-YYYY-NNNN number for the year
	GenerateInvoiceNumber(ctx context.Context, year int) (string, error)
}
