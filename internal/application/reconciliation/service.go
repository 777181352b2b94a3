// Package reconciliation turns parsed statements into stored revenue reports
// and keeps each (franchise, brand, period) invoice in step with its reports.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/fee"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/domain/statement"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/cache"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/extract"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrPercentageOnly is returned when statements are uploaded for a fixed-fee franchisee
var ErrPercentageOnly = shared.NewDomainError("INVALID_STATE", "Upload is only available for percentage-based franchisees.")

// Service reconciles uploaded revenue against invoices
type Service struct {
	franchisees franchise.FranchiseeRepository
	reports     franchise.RevenueReportRepository
	invoices    franchise.InvoiceRepository
	txScope     TransactionScope
	locker      Locker
	deliveries  cache.IdempotencyStore
	archive     StatementArchive
	events      shared.EventPublisher
	extractor   extract.Extractor
	slerp       *extract.SlerpParser
	payment     PaymentDetails
	waiver      WaiverSchedule
	now         Clock
	logger      *zap.Logger
}

// ServiceConfig holds the collaborators of the reconciliation service
type ServiceConfig struct {
	Franchisees franchise.FranchiseeRepository
	Reports     franchise.RevenueReportRepository
	Invoices    franchise.InvoiceRepository
	// TxScope defaults to a NoOpTransactionScope over Reports and Invoices
	TxScope TransactionScope
	Locker  Locker
	// Deliveries de-duplicates payment webhook deliveries; optional
	Deliveries cache.IdempotencyStore
	Archive    StatementArchive
	Events     shared.EventPublisher
	Extractor  extract.Extractor
	Slerp      *extract.SlerpParser
	Payment    PaymentDetails
	Waiver     WaiverSchedule
	Now        Clock
	Logger     *zap.Logger
}

// NewService creates a reconciliation service
func NewService(config ServiceConfig) *Service {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	txScope := config.TxScope
	if txScope == nil {
		txScope = NewNoOpTransactionScope(config.Reports, config.Invoices)
	}
	locker := config.Locker
	if locker == nil {
		locker = cache.NewMemoryLocker()
	}
	now := config.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	waiver := config.Waiver
	if waiver == nil {
		waiver = WaiveUpToFee
	}
	slerp := config.Slerp
	if slerp == nil {
		slerp = extract.NewSlerpParser()
	}
	return &Service{
		franchisees: config.Franchisees,
		reports:     config.Reports,
		invoices:    config.Invoices,
		txScope:     txScope,
		locker:      locker,
		deliveries:  config.Deliveries,
		archive:     config.Archive,
		events:      config.Events,
		extractor:   config.Extractor,
		slerp:       slerp,
		payment:     config.Payment,
		waiver:      waiver,
		now:         now,
		logger:      logger,
	}
}

// RowResult is the outcome of saving one batch row
type RowResult struct {
	Index      int                `json:"index"`
	Filename   string             `json:"filename"`
	Platform   franchise.Platform `json:"platform"`
	Brands     []franchise.Brand  `json:"brands"`
	SourcePath string             `json:"source_path,omitempty"`
	Saved      bool               `json:"saved"`
	Error      string             `json:"error,omitempty"`
}

// BatchResult is the outcome of SaveBatch
type BatchResult struct {
	Rows     []RowResult          `json:"rows"`
	Invoices []*franchise.Invoice `json:"invoices"`
}

// Failed returns the number of rows that were not saved
func (r *BatchResult) Failed() int {
	n := 0
	for _, row := range r.Rows {
		if !row.Saved {
			n++
		}
	}
	return n
}

// pendingReport is one report write and the row it came from
type pendingReport struct {
	row    int
	report *franchise.RevenueReport
}

// SaveBatch stores every row of the batch and recomputes the invoice of each
// (brand, week) it touched. Rows fail independently: a row whose file cannot be
// archived, or whose invoice cannot be recomputed, is reported and the rest are
// still saved.
func (s *Service) SaveBatch(ctx context.Context, franchiseeID uuid.UUID, batch *UploadBatch) (*BatchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "save_batch",
		telemetry.WithAttribute("franchisee_id", franchiseeID.String()),
		telemetry.WithAttribute("rows", batch.Len()),
	)
	defer span.End()

	f, err := s.franchisees.FindByID(ctx, franchiseeID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !f.Fees.Model.IsPercentageBased() {
		return nil, ErrPercentageOnly
	}
	if err := batch.validate(); err != nil {
		return nil, err
	}

	rows := batch.Rows()
	result := &BatchResult{Rows: make([]RowResult, len(rows))}
	var keys []franchise.InvoiceKey
	grouped := make(map[string][]pendingReport)

	for i, row := range rows {
		rr := RowResult{Index: i, Filename: row.Filename, Platform: row.Platform}
		pending, path, err := s.prepareRow(ctx, f, row, i)
		rr.SourcePath = path
		if err != nil {
			rr.Error = err.Error()
			result.Rows[i] = rr
			s.logger.Warn("Batch row rejected",
				zap.String("franchisee_id", franchiseeID.String()),
				zap.String("filename", row.Filename),
				zap.Error(err),
			)
			continue
		}
		for _, p := range pending {
			rr.Brands = append(rr.Brands, p.report.Brand)
			key := p.report.Key().InvoiceKey()
			lk := key.LockKey()
			if _, ok := grouped[lk]; !ok {
				keys = append(keys, key)
			}
			grouped[lk] = append(grouped[lk], p)
		}
		rr.Saved = true
		result.Rows[i] = rr
	}

	for _, key := range keys {
		pending := grouped[key.LockKey()]
		inv, err := s.replaceAndRecompute(ctx, f, key, pending)
		if err != nil {
			telemetry.RecordError(span, err)
			s.logger.Error("Failed to reconcile invoice",
				zap.String("franchisee_id", franchiseeID.String()),
				zap.String("brand", key.Brand.String()),
				zap.String("week_start", key.Period.StartString()),
				zap.Error(err),
			)
			for _, p := range pending {
				result.Rows[p.row].Saved = false
				result.Rows[p.row].Error = fmt.Sprintf("%s %s: %v", key.Brand, key.Period.StartString(), err)
			}
			continue
		}
		result.Invoices = append(result.Invoices, inv)
	}

	telemetry.SetAttributes(span, "invoices", len(result.Invoices), "failed_rows", result.Failed())
	s.logger.Info("Statement batch saved",
		zap.String("franchisee_id", franchiseeID.String()),
		zap.Int("rows", len(rows)),
		zap.Int("failed", result.Failed()),
		zap.Int("invoices", len(result.Invoices)),
	)
	return result, nil
}

// prepareRow archives the row's file and builds the reports it writes
func (s *Service) prepareRow(ctx context.Context, f *franchise.Franchisee, row BatchRow, index int) ([]pendingReport, string, error) {
	path := archiveKey(f.ID, row)
	if s.archive != nil && len(row.Data) > 0 {
		if err := s.archive.Put(ctx, path, row.Data, row.ContentType()); err != nil {
			return nil, "", fmt.Errorf("archive %s: %w", row.Filename, err)
		}
	}
	var stored *string
	if len(row.Data) > 0 {
		stored = &path
	}

	allocations := row.allocations()
	out := make([]pendingReport, 0, len(allocations))
	for _, a := range allocations {
		key := franchise.ReportKey{FranchiseeID: f.ID, Brand: a.Brand, Platform: row.Platform, Period: a.Week}
		report, err := franchise.NewRevenueReport(key, a.Amount, row.Source(), stored)
		if err != nil {
			return nil, path, err
		}
		out = append(out, pendingReport{row: index, report: report})
	}
	return out, path, nil
}

// archiveKey is the object storage key for an uploaded statement
func archiveKey(franchiseeID uuid.UUID, row BatchRow) string {
	name := safeFilename(row.Filename)
	if row.UsesBreakdown() {
		return fmt.Sprintf("reports/%s/%s/deliveroo-multibrand-%s", franchiseeID, row.Week.StartString(), name)
	}
	return fmt.Sprintf("reports/%s/%s/%s-%s-%s", franchiseeID, row.Week.StartString(), row.Brand.Slug(), row.Platform, name)
}

// replaceAndRecompute writes the reports for one invoice key and recomputes the
// invoice, holding the key's lock and a single transaction.
func (s *Service) replaceAndRecompute(ctx context.Context, f *franchise.Franchisee, key franchise.InvoiceKey, pending []pendingReport) (*franchise.Invoice, error) {
	unlock, err := s.locker.Lock(ctx, key.LockKey())
	if err != nil {
		return nil, fmt.Errorf("lock invoice: %w", err)
	}
	defer unlock()

	var inv *franchise.Invoice
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, p := range pending {
			if err := repos.ReportRepo().Replace(ctx, p.report); err != nil {
				return fmt.Errorf("replace %s report: %w", p.report.Platform, err)
			}
		}
		var err error
		inv, err = s.recompute(ctx, repos, f, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, inv)
	return inv, nil
}

// recompute sums the aggregator reports for the key, runs the fee engine and
// updates the invoice for the key, creating a draft when there is none.
func (s *Service) recompute(ctx context.Context, repos TransactionalRepositories, f *franchise.Franchisee, key franchise.InvoiceKey) (*franchise.Invoice, error) {
	reports, err := repos.ReportRepo().FindForInvoice(ctx, key, franchise.AggregatorPlatforms()...)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	projection := fee.Compute(f.Fees, fee.SumReports(reports)).Projection()

	inv, err := repos.InvoiceRepo().FindByKey(ctx, key)
	switch {
	case err == nil:
		inv.ApplyProjection(projection)
		if err := repos.InvoiceRepo().Save(ctx, inv); err != nil {
			return nil, fmt.Errorf("save invoice: %w", err)
		}
		return inv, nil
	case errors.Is(err, shared.ErrNotFound):
		return s.createInvoice(ctx, repos.InvoiceRepo(), s.now().Year(), func(number string) (*franchise.Invoice, error) {
			return franchise.NewInvoice(number, key, projection)
		})
	default:
		return nil, fmt.Errorf("load invoice: %w", err)
	}
}

// maxNumberAttempts bounds how often a new invoice takes a fresh number after
// losing one to a concurrent writer
const maxNumberAttempts = 3

// createInvoice numbers and stores a new invoice built by build. A number
// claimed concurrently by another writer is replaced with the next one.
func (s *Service) createInvoice(ctx context.Context, repo franchise.InvoiceRepository, year int, build func(number string) (*franchise.Invoice, error)) (*franchise.Invoice, error) {
	for attempt := 1; ; attempt++ {
		number, err := repo.GenerateInvoiceNumber(ctx, year)
		if err != nil {
			return nil, fmt.Errorf("invoice number: %w", err)
		}
		inv, err := build(number)
		if err != nil {
			return nil, err
		}
		err = repo.Save(ctx, inv)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, franchise.ErrInvoiceNumberTaken) || attempt == maxNumberAttempts {
			return nil, fmt.Errorf("save invoice: %w", err)
		}
		s.logger.Warn("Invoice number taken, retrying",
			zap.String("invoice_number", number),
			zap.Int("attempt", attempt),
		)
	}
}

// publish sends the invoice's pending domain events. Delivery failures are
// logged and do not undo the committed change.
func (s *Service) publish(ctx context.Context, invoices ...*franchise.Invoice) {
	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		events := inv.GetDomainEvents()
		inv.ClearDomainEvents()
		if s.events == nil || len(events) == 0 {
			continue
		}
		if err := s.events.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish invoice events",
				zap.String("invoice_id", inv.ID.String()),
				zap.Int("events", len(events)),
				zap.Error(err),
			)
		}
	}
}

// loadInvoice finds an invoice and its franchisee
func (s *Service) loadInvoice(ctx context.Context, id uuid.UUID) (*franchise.Invoice, *franchise.Franchisee, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.franchisees.FindByID(ctx, inv.FranchiseeID)
	if err != nil {
		return nil, nil, err
	}
	return inv, f, nil
}

// PreviewStatement parses a single statement for operator review before saving
func (s *Service) PreviewStatement(ctx context.Context, in extract.Input) (*StatementPreview, error) {
	if s.extractor == nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Statement extraction is not configured")
	}
	result, err := s.extractor.Extract(ctx, in)
	if err != nil {
		return nil, err
	}
	preview := &StatementPreview{Filename: in.Filename, Result: result}
	if w, ok := result.SuggestedWeek(); ok {
		preview.SuggestedWeek = &w
		if result.HasBreakdown() {
			preview.Allocations = statement.Allocate(result.Breakdown, w)
		}
	}
	return preview, nil
}
