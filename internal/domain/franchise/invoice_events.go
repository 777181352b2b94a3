package franchise

import (
	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const aggregateTypeInvoice = "Invoice"

// Event type names published for invoices
const (
	EventTypeInvoiceCreated       = "InvoiceCreated"
	EventTypeInvoiceRecomputed    = "InvoiceRecomputed"
	EventTypeInvoiceOverridden    = "InvoiceOverridden"
	EventTypeInvoiceStatusChanged = "InvoiceStatusChanged"
)

// InvoiceTotalsEvent carries the invoice figures at the time of the event
type InvoiceTotalsEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	FranchiseeID  uuid.UUID       `json:"franchisee_id"`
	Brand         string          `json:"brand,omitempty"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	TotalGross    decimal.Decimal `json:"total_gross_revenue"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
}

func newTotalsEvent(eventType string, inv *Invoice) InvoiceTotalsEvent {
	return InvoiceTotalsEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, aggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		FranchiseeID:    inv.FranchiseeID,
		Brand:           inv.Brand.String(),
		PeriodStart:     inv.Period.StartString(),
		PeriodEnd:       inv.Period.EndString(),
		TotalGross:      inv.TotalGross,
		FeePercentage:   inv.FeePercentage,
		FeeAmount:       inv.FeeAmount,
	}
}

// NewInvoiceCreatedEvent is raised when a draft invoice is first created
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceTotalsEvent {
	e := newTotalsEvent(EventTypeInvoiceCreated, inv)
	return &e
}

// NewInvoiceRecomputedEvent is raised when report changes refresh the totals
func NewInvoiceRecomputedEvent(inv *Invoice) *InvoiceTotalsEvent {
	e := newTotalsEvent(EventTypeInvoiceRecomputed, inv)
	return &e
}

// NewInvoiceOverriddenEvent is raised after an operator edits a draft
func NewInvoiceOverriddenEvent(inv *Invoice) *InvoiceTotalsEvent {
	e := newTotalsEvent(EventTypeInvoiceOverridden, inv)
	return &e
}

// InvoiceStatusChangedEvent is raised on every status transition
type InvoiceStatusChangedEvent struct {
	InvoiceTotalsEvent
	From InvoiceStatus `json:"from"`
	To   InvoiceStatus `json:"to"`
}

// NewInvoiceStatusChangedEvent creates a status transition event
func NewInvoiceStatusChangedEvent(inv *Invoice, from InvoiceStatus) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		InvoiceTotalsEvent: newTotalsEvent(EventTypeInvoiceStatusChanged, inv),
		From:               from,
		To:                 inv.Status,
	}
}
