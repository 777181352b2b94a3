package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrMonthlyOnly is returned when monthly billing is requested for a percentage franchisee
	ErrMonthlyOnly = shared.NewDomainError("INVALID_STATE", "Monthly invoice generation is only available for monthly_fixed franchisees.")
	// ErrMonthlyFeeUnset is returned when the franchisee has no monthly fee
	ErrMonthlyFeeUnset = shared.NewDomainError("INVALID_INPUT", "Monthly fee must be set for this franchisee before generating an invoice.")
	// ErrInvalidMonth is returned when a month selector cannot be read
	ErrInvalidMonth = shared.NewDomainError("INVALID_INPUT", "invoiceMonth must be in yyyy-MM format.")
)

// WaiverSchedule decides how much of a month's fee is written off against arrears
type WaiverSchedule func(monthlyFee, remainingArrears decimal.Decimal) decimal.Decimal

// WaiveUpToFee waives the whole fee while arrears remain
func WaiveUpToFee(monthlyFee, remainingArrears decimal.Decimal) decimal.Decimal {
	return decimal.Min(monthlyFee, remainingArrears)
}

// WaiveFraction waives a fixed share of each month's fee while arrears remain
func WaiveFraction(share decimal.Decimal) WaiverSchedule {
	return func(monthlyFee, remaining decimal.Decimal) decimal.Decimal {
		return decimal.Min(franchise.Round2(monthlyFee.Mul(share)), remaining)
	}
}

// MonthlyInvoiceResult is the outcome of CreateMonthlyInvoice
type MonthlyInvoiceResult struct {
	Invoice *franchise.Invoice `json:"invoice"`
	Created bool               `json:"created"`
	Message string             `json:"message"`
}

// monthlyFranchisee loads a franchisee that is billed a fixed monthly fee
func (s *Service) monthlyFranchisee(ctx context.Context, id uuid.UUID, unset *shared.DomainError) (*franchise.Franchisee, decimal.Decimal, error) {
	f, err := s.franchisees.FindByID(ctx, id)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if f.Fees.Model != franchise.PaymentModelMonthlyFixed {
		return nil, decimal.Zero, ErrMonthlyOnly
	}
	fee := franchise.Round2(f.Fees.MonthlyAmount())
	if !fee.IsPositive() {
		return nil, decimal.Zero, unset
	}
	return f, fee, nil
}

// CreateMonthlyInvoice creates the fixed-fee invoice for a month, or returns the
// one that already covers it. An empty month selects the last full month.
func (s *Service) CreateMonthlyInvoice(ctx context.Context, franchiseeID uuid.UUID, month string) (*MonthlyInvoiceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create_monthly",
		telemetry.WithAttribute("franchisee_id", franchiseeID.String()),
		telemetry.WithAttribute("month", month),
	)
	defer span.End()

	f, fee, err := s.monthlyFranchisee(ctx, franchiseeID, ErrMonthlyFeeUnset)
	if err != nil {
		return nil, err
	}

	var p period.Week
	label := "last month"
	if month == "" {
		p = period.LastFullMonth(s.now())
	} else {
		p, err = period.ParseMonth(month)
		if err != nil {
			return nil, ErrInvalidMonth
		}
		label = period.MonthKey(p.Start)
	}

	key := franchise.InvoiceKey{FranchiseeID: f.ID, Period: p}
	unlock, err := s.locker.Lock(ctx, key.LockKey())
	if err != nil {
		return nil, fmt.Errorf("lock invoice: %w", err)
	}
	defer unlock()

	existing, err := s.invoices.FindForPeriod(ctx, f.ID, p)
	if err == nil {
		return &MonthlyInvoiceResult{
			Invoice: existing,
			Message: fmt.Sprintf("Invoice already exists for %s (status: %s). Returned existing invoice.", label, existing.Status),
		}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		telemetry.RecordError(span, err)
		return nil, err
	}

	inv, err := s.newMonthlyInvoice(ctx, key, fee, nil)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, inv)
	s.logger.Info("Monthly invoice created",
		zap.String("franchisee_id", f.ID.String()),
		zap.String("month", period.MonthKey(p.Start)),
		zap.String("invoice_number", inv.Number),
	)
	return &MonthlyInvoiceResult{
		Invoice: inv,
		Created: true,
		Message: fmt.Sprintf("Monthly invoice created for %s.", label),
	}, nil
}

// newMonthlyInvoice numbers and saves a draft for a fixed monthly fee
func (s *Service) newMonthlyInvoice(ctx context.Context, key franchise.InvoiceKey, fee decimal.Decimal, createdAt *time.Time) (*franchise.Invoice, error) {
	var inv *franchise.Invoice
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		year := s.now().Year()
		if createdAt != nil {
			year = createdAt.Year()
		}
		var err error
		inv, err = s.createInvoice(ctx, repos.InvoiceRepo(), year, func(number string) (*franchise.Invoice, error) {
			created, err := franchise.NewInvoice(number, key, franchise.Projection{
				TotalGross:    decimal.Zero,
				FeePercentage: decimal.Zero,
				FeeAmount:     fee,
			})
			if err != nil {
				return nil, err
			}
			if createdAt != nil {
				created.CreatedAt = *createdAt
				created.UpdatedAt = *createdAt
			}
			return created, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// BackfillRequest asks for monthly invoices from StartMonth to the last full month
type BackfillRequest struct {
	FranchiseeID uuid.UUID
	StartMonth   string
	// InitialArrears is written off month by month using the schedule
	InitialArrears decimal.Decimal
	// Schedule overrides the service's waiver schedule when set
	Schedule WaiverSchedule
}

// BackfillMonth is the outcome for one month
type BackfillMonth struct {
	Month        string          `json:"month"`
	WaivedAmount decimal.Decimal `json:"waived_amount"`
	FeeAmount    decimal.Decimal `json:"fee_amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Created      bool            `json:"created"`
	InvoiceID    *uuid.UUID      `json:"invoice_id,omitempty"`
}

// BackfillResult summarises a backfill
type BackfillResult struct {
	CreatedCount       int             `json:"created_count"`
	SkippedCount       int             `json:"skipped_count"`
	AdjustedStartMonth string          `json:"adjusted_start_month,omitempty"`
	StartingArrears    decimal.Decimal `json:"starting_arrears"`
	RemainingArrears   decimal.Decimal `json:"remaining_arrears"`
	MonthlyFee         decimal.Decimal `json:"monthly_fee"`
	Months             []BackfillMonth `json:"months_processed"`
	Message            string          `json:"message"`
}

// Backfill creates the missing monthly invoices from the start month through
// the last full month. Each invoice carries the full monthly fee; the schedule
// decides how much of the opening arrears each month clears. A month that
// already has an invoice is skipped but still counts against the arrears. When the
// start month is in the future it is moved back a year if that makes it valid.
func (s *Service) Backfill(ctx context.Context, req BackfillRequest) (*BackfillResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "backfill",
		telemetry.WithAttribute("franchisee_id", req.FranchiseeID.String()),
		telemetry.WithAttribute("start_month", req.StartMonth),
	)
	defer span.End()

	start, err := period.ParseMonth(req.StartMonth)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "startMonth must be in yyyy-MM format.")
	}
	if req.InitialArrears.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "initialArrears must be zero or positive.")
	}
	f, fee, err := s.monthlyFranchisee(ctx, req.FranchiseeID,
		shared.NewDomainError("INVALID_INPUT", "Monthly fee must be set before backfilling."))
	if err != nil {
		if errors.Is(err, ErrMonthlyOnly) {
			return nil, shared.NewDomainError("INVALID_STATE", "Backfill is only available for monthly_fixed franchisees.")
		}
		return nil, err
	}

	last := period.LastFullMonth(s.now())
	result := &BackfillResult{
		StartingArrears: franchise.Round2(req.InitialArrears),
		MonthlyFee:      fee,
	}
	if start.Start.After(last.Start) {
		shifted := start.Start.AddDate(-1, 0, 0)
		if shifted.After(last.Start) {
			return nil, shared.NewDomainError("INVALID_INPUT", "startMonth must be before or equal to last full month.")
		}
		start = period.MonthPeriod(shifted.Year(), shifted.Month())
		result.AdjustedStartMonth = period.MonthKey(start.Start)
	}

	schedule := req.Schedule
	if schedule == nil {
		schedule = s.waiver
	}
	remaining := result.StartingArrears

	for m := start.Start; !m.After(last.Start); m = m.AddDate(0, 1, 0) {
		p := period.MonthPeriod(m.Year(), m.Month())
		waive := clampWaiver(schedule(fee, remaining), fee, remaining)
		remaining = decimal.Max(decimal.Zero, franchise.Round2(remaining.Sub(waive)))

		month := BackfillMonth{
			Month:        period.MonthKey(p.Start),
			WaivedAmount: waive,
			FeeAmount:    fee,
			BalanceAfter: remaining,
		}

		inv, created, err := s.backfillMonth(ctx, f.ID, p, fee)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("backfill %s: %w", month.Month, err)
		}
		month.Created = created
		if inv != nil {
			id := inv.ID
			month.InvoiceID = &id
		}
		if created {
			result.CreatedCount++
		} else {
			result.SkippedCount++
		}
		result.Months = append(result.Months, month)
	}

	result.RemainingArrears = remaining
	result.Message = fmt.Sprintf("Backfill complete: %d created, %d skipped.", result.CreatedCount, result.SkippedCount)
	s.logger.Info("Monthly invoices backfilled",
		zap.String("franchisee_id", f.ID.String()),
		zap.Int("created", result.CreatedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.String("remaining_arrears", remaining.StringFixed(2)),
	)
	return result, nil
}

// clampWaiver keeps a scheduled waiver between zero and both the fee and the arrears left
func clampWaiver(w, fee, remaining decimal.Decimal) decimal.Decimal {
	w = decimal.Max(decimal.Zero, w)
	w = decimal.Min(w, fee, remaining)
	return franchise.Round2(w)
}

// backfillMonth creates one month's invoice unless the month is already billed
func (s *Service) backfillMonth(ctx context.Context, franchiseeID uuid.UUID, p period.Week, fee decimal.Decimal) (*franchise.Invoice, bool, error) {
	key := franchise.InvoiceKey{FranchiseeID: franchiseeID, Period: p}
	unlock, err := s.locker.Lock(ctx, key.LockKey())
	if err != nil {
		return nil, false, fmt.Errorf("lock invoice: %w", err)
	}
	defer unlock()

	existing, err := s.invoices.FindForPeriod(ctx, franchiseeID, p)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	createdAt := time.Date(p.End.Year(), p.End.Month(), p.End.Day(), 12, 0, 0, 0, time.UTC)
	inv, err := s.newMonthlyInvoice(ctx, key, fee, &createdAt)
	if err != nil {
		return nil, false, err
	}
	s.publish(ctx, inv)
	return inv, true, nil
}
