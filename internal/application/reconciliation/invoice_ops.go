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
	// ErrInvalidWeek is returned when an edited week start cannot be read
	ErrInvalidWeek = shared.NewDomainError("INVALID_INPUT", "Invalid week date. Use the Monday that starts the week (yyyy-MM-dd).")
	// ErrAlreadyPaid is returned when recording payment twice
	ErrAlreadyPaid = shared.NewDomainError("INVALID_STATE", "This invoice is already marked as paid")
	// ErrNotPayThem is returned when recording payment for a franchisee who pays us
	ErrNotPayThem = shared.NewDomainError("INVALID_STATE",
		"Record payment is only for franchisees we pay (payment direction: We pay them). Use the status dropdown or BACS for others.")
	// ErrInvoiceKeyTaken is returned when an edit would collide with another invoice
	ErrInvoiceKeyTaken = shared.NewDomainError("ALREADY_EXISTS", "Another invoice already exists for that brand and week")
)

// deliveryTTL is how long webhook delivery ids are remembered
const deliveryTTL = 72 * time.Hour

// GetInvoice returns one invoice
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*franchise.Invoice, error) {
	return s.invoices.FindByID(ctx, id)
}

// ListInvoices returns a page of a franchisee's invoices
func (s *Service) ListInvoices(ctx context.Context, franchiseeID uuid.UUID, filter shared.Filter) (shared.Paginated[franchise.Invoice], error) {
	items, total, err := s.invoices.FindByFranchisee(ctx, franchiseeID, filter)
	if err != nil {
		return shared.Paginated[franchise.Invoice]{}, err
	}
	return shared.NewPaginated(items, total, filter.Page, filter.Limit()), nil
}

// ListReports returns a page of a franchisee's stored revenue reports
func (s *Service) ListReports(ctx context.Context, franchiseeID uuid.UUID, filter shared.Filter) (shared.Paginated[franchise.RevenueReport], error) {
	items, total, err := s.reports.FindByFranchisee(ctx, franchiseeID, filter)
	if err != nil {
		return shared.Paginated[franchise.RevenueReport]{}, err
	}
	return shared.NewPaginated(items, total, filter.Page, filter.Limit()), nil
}

// UpdateInvoiceRequest carries operator edits; nil fields are left alone
type UpdateInvoiceRequest struct {
	TotalGross    *decimal.Decimal
	FeeAmount     *decimal.Decimal
	FeePercentage *decimal.Decimal
	// WeekStart is any day in the intended week, yyyy-MM-dd
	WeekStart *string
}

// UpdateDraftInvoice applies manual edits to a draft invoice
func (s *Service) UpdateDraftInvoice(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*franchise.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update_draft",
		telemetry.WithAttribute("invoice_id", id.String()),
	)
	defer span.End()

	var week *period.Week
	if req.WeekStart != nil {
		w, err := period.NormalizeWeek(*req.WeekStart)
		if err != nil {
			return nil, ErrInvalidWeek
		}
		week = &w
	}

	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.IsDraft() {
		return nil, shared.NewDomainError("INVALID_STATE", "Only draft invoices can be edited")
	}

	current := inv.Key().LockKey()
	keys := []string{current}
	if week != nil && !samePeriod(*week, inv.Period) {
		moved := inv.Key()
		moved.Period = *week
		keys = append(keys, moved.LockKey())
	}
	unlock, err := s.lockAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// the checks above ran before the lock; repeat them on the locked state
	if inv, err = s.invoices.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if inv.Key().LockKey() != current {
		return nil, shared.ErrConcurrencyConflict
	}
	if !inv.IsDraft() {
		return nil, shared.NewDomainError("INVALID_STATE", "Only draft invoices can be edited")
	}

	if week != nil && !samePeriod(*week, inv.Period) {
		moved := inv.Key()
		moved.Period = *week
		other, err := s.invoices.FindByKey(ctx, moved)
		if err == nil && other.ID != inv.ID {
			return nil, ErrInvoiceKeyTaken
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	if err := inv.Override(franchise.DraftOverride{
		TotalGross:    req.TotalGross,
		FeeAmount:     req.FeeAmount,
		FeePercentage: req.FeePercentage,
		Period:        week,
	}); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("save invoice: %w", err)
	}
	s.publish(ctx, inv)
	s.logger.Info("Draft invoice edited", zap.String("invoice_id", inv.ID.String()))
	return inv, nil
}

func samePeriod(a, b period.Week) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}

// lockAll takes several keyed locks in a stable order
func (s *Service) lockAll(ctx context.Context, keys []string) (func(), error) {
	if len(keys) == 2 && keys[1] < keys[0] {
		keys[0], keys[1] = keys[1], keys[0]
	}
	var unlocks []func()
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, k := range keys {
		unlock, err := s.locker.Lock(ctx, k)
		if err != nil {
			release()
			return nil, fmt.Errorf("lock invoice: %w", err)
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// lockInvoice takes the lock for the invoice's key and reads the invoice
// again under it, so recomputes and status changes for the key serialise.
func (s *Service) lockInvoice(ctx context.Context, id uuid.UUID) (*franchise.Invoice, func(), error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	key := inv.Key().LockKey()
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("lock invoice: %w", err)
	}
	inv, err = s.invoices.FindByID(ctx, id)
	if err == nil && inv.Key().LockKey() != key {
		err = shared.ErrConcurrencyConflict
	}
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return inv, unlock, nil
}

// DeleteInvoice removes an invoice. Its revenue reports are kept.
func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	inv, unlock, err := s.lockInvoice(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.invoices.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Invoice deleted",
		zap.String("invoice_id", id.String()),
		zap.String("invoice_number", inv.Number),
	)
	return nil
}

// RecordPaid marks an invoice paid when we settled it by paying the franchisee
func (s *Service) RecordPaid(ctx context.Context, id uuid.UUID) (*franchise.Invoice, error) {
	inv, unlock, err := s.lockInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, err := s.franchisees.FindByID(ctx, inv.FranchiseeID)
	if err != nil {
		return nil, err
	}
	if inv.Status == franchise.InvoiceStatusPaid {
		return nil, ErrAlreadyPaid
	}
	if !f.PaysDirectly() {
		return nil, ErrNotPayThem
	}
	if err := inv.MarkPaid(s.now()); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("save invoice: %w", err)
	}
	s.publish(ctx, inv)
	s.logger.Info("Invoice payment recorded",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("franchisee_id", f.ID.String()),
	)
	return inv, nil
}

// PaymentEventType is a payment-collector notification kind
type PaymentEventType string

const (
	PaymentEventInvoiceSent       PaymentEventType = "invoice.sent"
	PaymentEventPaymentProcessing PaymentEventType = "payment.processing"
	PaymentEventPaymentSucceeded  PaymentEventType = "payment.succeeded"
)

// target returns the invoice status the event moves to
func (t PaymentEventType) target() (franchise.InvoiceStatus, bool) {
	switch t {
	case PaymentEventInvoiceSent:
		return franchise.InvoiceStatusSent, true
	case PaymentEventPaymentProcessing:
		return franchise.InvoiceStatusProcessing, true
	case PaymentEventPaymentSucceeded:
		return franchise.InvoiceStatusPaid, true
	}
	return "", false
}

var statusRank = map[franchise.InvoiceStatus]int{
	franchise.InvoiceStatusDraft:      0,
	franchise.InvoiceStatusSent:       1,
	franchise.InvoiceStatusProcessing: 2,
	franchise.InvoiceStatusPaid:       3,
}

// PaymentEvent is one webhook delivery from the payment collector
type PaymentEvent struct {
	ID         string           `json:"id"`
	Type       PaymentEventType `json:"type"`
	InvoiceID  uuid.UUID        `json:"invoice_id"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// PaymentEventOutcome reports what a delivery did
type PaymentEventOutcome struct {
	Invoice   *franchise.Invoice `json:"invoice,omitempty"`
	Applied   bool               `json:"applied"`
	Duplicate bool               `json:"duplicate"`
}

// ApplyPaymentEvent moves an invoice forward on a payment-collector event.
// Deliveries are idempotent: a repeated delivery id, or an event whose status
// the invoice has already reached or passed, changes nothing.
func (s *Service) ApplyPaymentEvent(ctx context.Context, evt PaymentEvent) (*PaymentEventOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "payment_event",
		telemetry.WithAttribute("event_type", string(evt.Type)),
		telemetry.WithAttribute("invoice_id", evt.InvoiceID.String()),
	)
	defer span.End()

	to, ok := evt.Type.target()
	if !ok {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unsupported event type %q", evt.Type))
	}
	if evt.InvoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "invoice_id is required")
	}
	if evt.ID != "" && s.deliveries != nil {
		seen, err := s.deliveries.IsProcessed(ctx, evt.ID)
		if err != nil {
			s.logger.Warn("Delivery lookup failed", zap.String("event_id", evt.ID), zap.Error(err))
		} else if seen {
			return &PaymentEventOutcome{Duplicate: true}, nil
		}
	}

	inv, unlock, err := s.lockInvoice(ctx, evt.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	out := &PaymentEventOutcome{Invoice: inv}
	if statusRank[inv.Status] >= statusRank[to] {
		s.logger.Info("Payment event ignored",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("event_type", string(evt.Type)),
			zap.String("status", inv.Status.String()),
		)
		s.markDelivered(ctx, evt.ID)
		return out, nil
	}

	switch to {
	case franchise.InvoiceStatusSent:
		err = inv.MarkSent()
	case franchise.InvoiceStatusProcessing:
		err = inv.MarkProcessing()
	case franchise.InvoiceStatusPaid:
		at := evt.OccurredAt
		if at.IsZero() {
			at = s.now()
		}
		err = inv.MarkPaid(at)
	}
	if err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("save invoice: %w", err)
	}
	s.markDelivered(ctx, evt.ID)
	s.publish(ctx, inv)
	out.Applied = true
	s.logger.Info("Invoice status updated from payment event",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("event_type", string(evt.Type)),
		zap.String("status", inv.Status.String()),
	)
	return out, nil
}

func (s *Service) markDelivered(ctx context.Context, id string) {
	if id == "" || s.deliveries == nil {
		return
	}
	if _, err := s.deliveries.MarkProcessed(ctx, id, deliveryTTL); err != nil {
		s.logger.Warn("Failed to remember delivery", zap.String("event_id", id), zap.Error(err))
	}
}
