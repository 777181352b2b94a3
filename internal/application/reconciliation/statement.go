package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/fee"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/shopspring/decimal"
)

// InvoiceStatement is everything needed to render an invoice document
type InvoiceStatement struct {
	Invoice    *franchise.Invoice        `json:"invoice"`
	Franchisee *franchise.Franchisee     `json:"franchisee"`
	PeriodText string                    `json:"period_text"`
	Reports    []franchise.RevenueReport `json:"reports"`
	Lines      []fee.Line                `json:"lines,omitempty"`
	// Direct holds Slerp revenue for the sales period paid out alongside the invoice week
	Direct           []franchise.RevenueReport `json:"direct_reports,omitempty"`
	DirectGross      decimal.Decimal           `json:"direct_gross"`
	DirectFee        decimal.Decimal           `json:"direct_fee"`
	DirectPayoutDate *time.Time                `json:"direct_payout_date,omitempty"`
	// CollectionDate is the recommended BACS debit date, for franchisees who pay us
	CollectionDate *time.Time `json:"collection_date,omitempty"`
	// AmountPayable is what we pay out after deducting the fee, for franchisees we pay
	AmountPayable *decimal.Decimal `json:"amount_payable,omitempty"`
	Payment       PaymentDetails   `json:"payment"`
	Filename      string           `json:"filename"`
}

// InvoiceStatement gathers the reports, direct revenue and payment details for an invoice
func (s *Service) InvoiceStatement(ctx context.Context, id uuid.UUID) (*InvoiceStatement, error) {
	inv, f, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	reports, err := s.reports.FindForInvoice(ctx, inv.Key(), franchise.AggregatorPlatforms()...)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	perPlatform := fee.SumReports(reports)

	out := &InvoiceStatement{
		Invoice:    inv,
		Franchisee: f,
		PeriodText: period.FormatWeekRange(inv.Period.Start, inv.Period.End),
		Reports:    reports,
		Lines:      fee.Compute(f.Fees, perPlatform).Lines,
		Payment:    s.payment,
	}
	out.Filename = fmt.Sprintf("%s - %s - %s.pdf", safeFilename(f.Name), inv.Number, out.PeriodText)

	directEnd := period.DirectPeriodEndForAggregatorWeek(inv.Period.End)
	direct, err := s.reports.FindDirectByPeriodEnd(ctx, f.ID, inv.Brand, directEnd)
	if err != nil {
		return nil, fmt.Errorf("load direct reports: %w", err)
	}
	if len(direct) > 0 {
		out.Direct = direct
		for _, r := range direct {
			out.DirectGross = out.DirectGross.Add(r.GrossRevenue)
		}
		out.DirectFee = fee.DirectFee(f.Fees, out.DirectGross)
		payout := period.DirectPayoutForAggregatorWeek(inv.Period.End)
		out.DirectPayoutDate = &payout
	}

	switch f.Fees.Direction {
	case franchise.DirectionCollectFees:
		d := period.RecommendedBACSDate(inv.CreatedAt)
		out.CollectionDate = &d
	case franchise.DirectionPayThem:
		payable := franchise.Round2(perPlatform[franchise.PlatformDeliveroo].Sub(inv.FeeAmount))
		out.AmountPayable = &payable
	}
	return out, nil
}
