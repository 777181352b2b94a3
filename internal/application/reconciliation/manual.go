package reconciliation

import (
	"context"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrInvalidManualAmount is returned when a typed amount cannot be read
var ErrInvalidManualAmount = shared.NewDomainError("INVALID_INPUT", "Please enter a valid amount (e.g. 849.73)")

// ManualReportRequest enters one platform's revenue for an existing invoice by hand
type ManualReportRequest struct {
	InvoiceID uuid.UUID
	Platform  franchise.Platform
	// Amount is as typed; currency symbols, commas and spaces are ignored
	Amount string
}

// RecordManualReport stores a typed-in figure for the invoice's brand and week,
// replacing any report for the same platform, and recomputes the invoice.
func (s *Service) RecordManualReport(ctx context.Context, req ManualReportRequest) (*franchise.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "manual_report",
		telemetry.WithAttribute("invoice_id", req.InvoiceID.String()),
		telemetry.WithAttribute("platform", string(req.Platform)),
	)
	defer span.End()

	amount, ok := franchise.ParseAmount(req.Amount)
	if !ok || amount.IsNegative() {
		return nil, ErrInvalidManualAmount
	}
	if !req.Platform.IsAggregator() {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Manual entry is only available for Deliveroo, Uber Eats and Just Eat")
	}

	inv, f, err := s.loadInvoice(ctx, req.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	key := franchise.ReportKey{
		FranchiseeID: inv.FranchiseeID,
		Brand:        inv.Brand,
		Platform:     req.Platform,
		Period:       inv.Period,
	}
	report, err := franchise.NewRevenueReport(key, amount, franchise.SourceManual, nil)
	if err != nil {
		return nil, err
	}

	updated, err := s.replaceAndRecompute(ctx, f, key.InvoiceKey(), []pendingReport{{report: report}})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("Manual revenue recorded",
		zap.String("invoice_id", updated.ID.String()),
		zap.String("platform", string(req.Platform)),
		zap.String("amount", report.GrossRevenue.StringFixed(2)),
	)
	return updated, nil
}
