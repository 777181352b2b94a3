package franchise

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus tracks an invoice through collection
type InvoiceStatus string

const (
	InvoiceStatusDraft      InvoiceStatus = "draft"
	InvoiceStatusSent       InvoiceStatus = "sent"
	InvoiceStatusProcessing InvoiceStatus = "processing"
	InvoiceStatusPaid       InvoiceStatus = "paid"
)

// IsValid checks if the status is known
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusProcessing, InvoiceStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// InvoiceKey identifies the invoice for a franchise, brand and billing period
type InvoiceKey struct {
	FranchiseeID uuid.UUID
	Brand        Brand
	Period       period.Week
}

// LockKey renders the key for use with keyed locks
func (k InvoiceKey) LockKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.FranchiseeID, k.Brand.Normalize(), k.Period.StartString(), k.Period.EndString())
}

// Projection is the fee engine output written onto an invoice
type Projection struct {
	TotalGross    decimal.Decimal
	FeePercentage decimal.Decimal
	FeeAmount     decimal.Decimal
}

// Invoice is the billable aggregate for one franchise, brand and period
type Invoice struct {
	shared.BaseAggregateRoot
	Number        string          `json:"invoice_number"`
	FranchiseeID  uuid.UUID       `json:"franchisee_id"`
	Brand         Brand           `json:"brand"`
	Period        period.Week     `json:"period"`
	TotalGross    decimal.Decimal `json:"total_gross_revenue"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	Status        InvoiceStatus   `json:"status"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

// NewInvoice creates a draft invoice from a fee projection
func NewInvoice(number string, key InvoiceKey, p Projection) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if key.FranchiseeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_FRANCHISEE", "Franchisee ID cannot be empty")
	}
	if key.Period.Start.IsZero() || key.Period.End.Before(key.Period.Start) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Invoice period is not valid")
	}
	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		FranchiseeID:      key.FranchiseeID,
		Brand:             key.Brand.Normalize(),
		Period:            key.Period,
		Status:            InvoiceStatusDraft,
	}
	inv.setProjection(p)
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// Key returns the invoice identity tuple
func (i *Invoice) Key() InvoiceKey {
	return InvoiceKey{FranchiseeID: i.FranchiseeID, Brand: i.Brand, Period: i.Period}
}

// IsDraft reports whether manual edits are allowed
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

func (i *Invoice) setProjection(p Projection) {
	i.TotalGross = Round2(p.TotalGross)
	i.FeePercentage = Round2(p.FeePercentage)
	i.FeeAmount = Round2(p.FeeAmount)
}

// ApplyProjection overwrites the totals with a fresh recomputation from reports.
// Any earlier manual override is replaced.
func (i *Invoice) ApplyProjection(p Projection) {
	i.setProjection(p)
	i.Changed(NewInvoiceRecomputedEvent(i))
}

// DraftOverride carries operator edits to a draft invoice; nil fields are unchanged
type DraftOverride struct {
	TotalGross    *decimal.Decimal
	FeeAmount     *decimal.Decimal
	FeePercentage *decimal.Decimal
	Period        *period.Week
}

// Override applies operator edits. Only draft invoices may be edited, amounts
// must be non-negative, and an edit that changes nothing is rejected.
func (i *Invoice) Override(o DraftOverride) error {
	if !i.IsDraft() {
		return shared.NewDomainError("INVALID_STATE", "Only draft invoices can be edited")
	}
	changed := false
	for _, v := range []*decimal.Decimal{o.TotalGross, o.FeeAmount, o.FeePercentage} {
		if v != nil && v.IsNegative() {
			return shared.NewDomainError("INVALID_AMOUNT", "Amounts must be zero or positive")
		}
	}
	if o.TotalGross != nil {
		i.TotalGross = Round2(*o.TotalGross)
		changed = true
	}
	if o.FeeAmount != nil {
		i.FeeAmount = Round2(*o.FeeAmount)
		changed = true
	}
	if o.FeePercentage != nil {
		i.FeePercentage = Round2(*o.FeePercentage)
		changed = true
	}
	if o.Period != nil {
		i.Period = *o.Period
		changed = true
	}
	if !changed {
		return shared.NewDomainError("INVALID_INPUT", "No changes.")
	}
	i.Changed(NewInvoiceOverriddenEvent(i))
	return nil
}

// MarkSent records that the invoice has been issued
func (i *Invoice) MarkSent() error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send invoice in %s status", i.Status))
	}
	return i.transition(InvoiceStatusSent)
}

// MarkProcessing records that collection has started
func (i *Invoice) MarkProcessing() error {
	if i.Status != InvoiceStatusDraft && i.Status != InvoiceStatusSent {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start collection for invoice in %s status", i.Status))
	}
	return i.transition(InvoiceStatusProcessing)
}

// MarkPaid records settlement
func (i *Invoice) MarkPaid(at time.Time) error {
	if i.Status == InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already marked as paid")
	}
	paidAt := at.UTC()
	i.PaidAt = &paidAt
	return i.transition(InvoiceStatusPaid)
}

func (i *Invoice) transition(to InvoiceStatus) error {
	from := i.Status
	i.Status = to
	i.Changed(NewInvoiceStatusChangedEvent(i, from))
	return nil
}
