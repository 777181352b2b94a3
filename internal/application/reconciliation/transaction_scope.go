package reconciliation

import (
	"context"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
)

// TransactionScope provides transactional access to the report and invoice repositories.
// Replacing a report and recomputing its invoice happen inside one Execute call so
// a failure part-way leaves neither written.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides repositories that share one transaction
type TransactionalRepositories interface {
	// ReportRepo returns the revenue report repository scoped to the current transaction
	ReportRepo() franchise.RevenueReportRepository
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() franchise.InvoiceRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	reportRepo  franchise.RevenueReportRepository
	invoiceRepo franchise.InvoiceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	reportRepo franchise.RevenueReportRepository,
	invoiceRepo franchise.InvoiceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		reportRepo:  reportRepo,
		invoiceRepo: invoiceRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ReportRepo returns the revenue report repository
func (s *NoOpTransactionScope) ReportRepo() franchise.RevenueReportRepository {
	return s.reportRepo
}

// InvoiceRepo returns the invoice repository
func (s *NoOpTransactionScope) InvoiceRepo() franchise.InvoiceRepository {
	return s.invoiceRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
