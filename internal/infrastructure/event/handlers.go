package event

import (
	"context"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoiceAuditHandler writes one structured log line per invoice event
type InvoiceAuditHandler struct {
	logger *zap.Logger
}

// NewInvoiceAuditHandler creates the audit handler
func NewInvoiceAuditHandler(logger *zap.Logger) *InvoiceAuditHandler {
	return &InvoiceAuditHandler{logger: logger.Named("invoice-audit")}
}

// EventTypes implements shared.EventHandler
func (h *InvoiceAuditHandler) EventTypes() []string {
	return []string{
		franchise.EventTypeInvoiceCreated,
		franchise.EventTypeInvoiceRecomputed,
		franchise.EventTypeInvoiceOverridden,
		franchise.EventTypeInvoiceStatusChanged,
	}
}

// Handle implements shared.EventHandler
func (h *InvoiceAuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("invoice_id", event.AggregateID().String()),
	}
	switch e := event.(type) {
	case *franchise.InvoiceStatusChangedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("from", e.From.String()),
			zap.String("to", e.To.String()),
		)
	case *franchise.InvoiceTotalsEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("franchisee_id", e.FranchiseeID.String()),
			zap.String("period_start", e.PeriodStart),
			zap.String("period_end", e.PeriodEnd),
			zap.String("gross", e.TotalGross.StringFixed(2)),
			zap.String("fee", e.FeeAmount.StringFixed(2)),
		)
	}
	h.logger.Info("Invoice event", fields...)
	return nil
}

// BrokerForwarder relays every event on the bus to an external publisher
type BrokerForwarder struct {
	publisher shared.EventPublisher
}

// NewBrokerForwarder creates a wildcard handler forwarding to publisher
func NewBrokerForwarder(publisher shared.EventPublisher) *BrokerForwarder {
	return &BrokerForwarder{publisher: publisher}
}

// EventTypes returns nil so the forwarder receives all events
func (f *BrokerForwarder) EventTypes() []string { return nil }

// Handle implements shared.EventHandler
func (f *BrokerForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	return f.publisher.Publish(ctx, event)
}

var (
	_ shared.EventHandler = (*InvoiceAuditHandler)(nil)
	_ shared.EventHandler = (*BrokerForwarder)(nil)
)
