package telemetry

import (
	"context"
	"fmt"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BillingMetrics counts invoice lifecycle events and fee totals. It is
// subscribed to the event bus like any other handler.
type BillingMetrics struct {
	invoices    *Counter
	recomputes  *Counter
	overrides   *Counter
	transitions *Counter
	feeAmount   *Histogram
}

// NewBillingMetrics registers the billing instruments on meter
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	var (
		m   BillingMetrics
		err error
	)
	if m.invoices, err = NewCounter(meter, "billing_invoices_created_total", "Invoices created", "{invoice}"); err != nil {
		return nil, err
	}
	if m.recomputes, err = NewCounter(meter, "billing_invoices_recomputed_total", "Draft invoices recomputed from new reports", "{invoice}"); err != nil {
		return nil, err
	}
	if m.overrides, err = NewCounter(meter, "billing_invoices_overridden_total", "Draft invoices edited by hand", "{invoice}"); err != nil {
		return nil, err
	}
	if m.transitions, err = NewCounter(meter, "billing_invoice_status_changes_total", "Invoice status transitions", "{transition}"); err != nil {
		return nil, err
	}
	m.feeAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "billing_invoice_fee_amount",
		Description: "Fee amount on created invoices",
		Unit:        "GBP",
		Buckets:     []float64{0, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// EventTypes implements shared.EventHandler
func (m *BillingMetrics) EventTypes() []string {
	return []string{
		franchise.EventTypeInvoiceCreated,
		franchise.EventTypeInvoiceRecomputed,
		franchise.EventTypeInvoiceOverridden,
		franchise.EventTypeInvoiceStatusChanged,
	}
}

// Handle implements shared.EventHandler
func (m *BillingMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *franchise.InvoiceTotalsEvent:
		brand := attribute.String("brand", brandLabel(e.Brand))
		switch e.EventType() {
		case franchise.EventTypeInvoiceCreated:
			m.invoices.Inc(ctx, brand)
			m.feeAmount.Record(ctx, e.FeeAmount.InexactFloat64(), brand)
		case franchise.EventTypeInvoiceRecomputed:
			m.recomputes.Inc(ctx, brand)
		case franchise.EventTypeInvoiceOverridden:
			m.overrides.Inc(ctx, brand)
		}
	case *franchise.InvoiceStatusChangedEvent:
		m.transitions.Inc(ctx,
			attribute.String("from", e.From.String()),
			attribute.String("to", e.To.String()),
		)
	default:
		return fmt.Errorf("billing metrics: unexpected event %T", event)
	}
	return nil
}

// brandLabel keeps the metric cardinality bounded for monthly invoices
func brandLabel(brand string) string {
	if brand == "" {
		return "monthly"
	}
	return brand
}

var _ shared.EventHandler = (*BillingMetrics)(nil)
