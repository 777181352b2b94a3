package reconciliation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/fee"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/extract"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrNoDirectRate is returned when the franchisee has no Slerp percentage
	ErrNoDirectRate = shared.NewDomainError("INVALID_STATE", "This franchisee does not have Slerp % set")
	// ErrNotSpreadsheet is returned for Slerp uploads that are not Excel files
	ErrNotSpreadsheet = shared.NewDomainError("UNSUPPORTED_FORMAT", "Please upload an Excel file (.xlsx or .xls)")
)

// DirectWeek is one Slerp pay week with its fee
type DirectWeek struct {
	Location      string          `json:"location"`
	PayoutDate    time.Time       `json:"payout_date"`
	WeekStart     time.Time       `json:"week_start"`
	WeekEnd       time.Time       `json:"week_end"`
	GrossRevenue  decimal.Decimal `json:"gross_revenue"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
}

// DirectPreview is the franchisee's share of a Slerp order export
type DirectPreview struct {
	FranchiseeID uuid.UUID       `json:"franchisee_id"`
	Brand        franchise.Brand `json:"brand"`
	Location     string          `json:"location"`
	Weeks        []DirectWeek    `json:"pay_weeks"`
	// Unmatched counts pay weeks for other locations in the export
	Unmatched int `json:"unmatched"`
}

// PreviewDirect reads a Slerp export and returns the pay weeks for the
// franchisee's location with the fee at their Slerp rate.
func (s *Service) PreviewDirect(ctx context.Context, franchiseeID uuid.UUID, brand franchise.Brand, filename string, data []byte) (*DirectPreview, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "preview_direct",
		telemetry.WithAttribute("franchisee_id", franchiseeID.String()),
		telemetry.WithAttribute("filename", filename),
	)
	defer span.End()

	brand = brand.Normalize()
	if brand.IsBlank() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Please select a brand for Slerp.")
	}
	f, err := s.franchisees.FindByID(ctx, franchiseeID)
	if err != nil {
		return nil, err
	}
	if !f.Fees.HasDirectRate() {
		return nil, ErrNoDirectRate
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
	default:
		return nil, ErrNotSpreadsheet
	}

	weeks, err := s.slerp.Parse(data)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	rate := f.Fees.PlatformRate(franchise.PlatformSlerp)
	out := &DirectPreview{FranchiseeID: f.ID, Brand: brand, Location: f.Location}
	for _, w := range weeks {
		if !f.MatchesLocation(w.Location) {
			out.Unmatched++
			continue
		}
		out.Weeks = append(out.Weeks, directWeek(w, rate, fee.DirectFee(f.Fees, w.GrossRevenue)))
	}
	s.logger.Info("Slerp export previewed",
		zap.String("franchisee_id", f.ID.String()),
		zap.Int("matched", len(out.Weeks)),
		zap.Int("unmatched", out.Unmatched),
	)
	return out, nil
}

func directWeek(w extract.SlerpPayWeek, rate, feeAmount decimal.Decimal) DirectWeek {
	return DirectWeek{
		Location:      w.Location,
		PayoutDate:    w.PayoutDate,
		WeekStart:     w.WeekStart,
		WeekEnd:       w.WeekEnd,
		GrossRevenue:  franchise.Round2(w.GrossRevenue),
		FeePercentage: rate,
		FeeAmount:     feeAmount,
	}
}

// DirectWeekInput is one pay week chosen for saving
type DirectWeekInput struct {
	WeekStart    time.Time
	WeekEnd      time.Time
	GrossRevenue decimal.Decimal
}

// SaveDirectRequest saves previewed Slerp pay weeks
type SaveDirectRequest struct {
	FranchiseeID uuid.UUID
	Brand        franchise.Brand
	Weeks        []DirectWeekInput
}

// SaveDirect stores Slerp revenue for each pay week's sales period. Reports
// replace any earlier figure for the same period; no aggregator invoice changes.
func (s *Service) SaveDirect(ctx context.Context, req SaveDirectRequest) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "save_direct",
		telemetry.WithAttribute("franchisee_id", req.FranchiseeID.String()),
		telemetry.WithAttribute("weeks", len(req.Weeks)),
	)
	defer span.End()

	brand := req.Brand.Normalize()
	if req.FranchiseeID == uuid.Nil || brand.IsBlank() || len(req.Weeks) == 0 {
		return 0, shared.NewDomainError("INVALID_INPUT", "franchiseeId, brand, and at least one payWeek are required")
	}
	f, err := s.franchisees.FindByID(ctx, req.FranchiseeID)
	if err != nil {
		return 0, err
	}

	reports := make([]*franchise.RevenueReport, 0, len(req.Weeks))
	for _, w := range req.Weeks {
		p := period.Week{Start: period.Day(w.WeekStart), End: period.Day(w.WeekEnd)}
		if p.Start.IsZero() || p.End.Sub(p.Start) != 6*24*time.Hour || p.End.Weekday() != time.Monday {
			return 0, shared.NewDomainError("INVALID_PERIOD",
				fmt.Sprintf("Slerp sales periods run Tuesday to Monday, got %s", p))
		}
		key := franchise.ReportKey{FranchiseeID: f.ID, Brand: brand, Platform: franchise.PlatformSlerp, Period: p}
		r, err := franchise.NewRevenueReport(key, w.GrossRevenue, franchise.SourceXLSX, nil)
		if err != nil {
			return 0, err
		}
		reports = append(reports, r)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, r := range reports {
			if err := repos.ReportRepo().Replace(ctx, r); err != nil {
				return fmt.Errorf("replace slerp report %s: %w", r.Period, err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	s.logger.Info("Slerp revenue saved",
		zap.String("franchisee_id", f.ID.String()),
		zap.String("brand", brand.String()),
		zap.Int("weeks", len(reports)),
	)
	return len(reports), nil
}
