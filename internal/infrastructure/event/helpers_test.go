package event

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T) *franchise.Invoice {
	t.Helper()
	start := period.Date(2026, 1, 5)
	inv, err := franchise.NewInvoice("HT-2026-0007", franchise.InvoiceKey{
		FranchiseeID: uuid.New(),
		Brand:        franchise.BrandWingShack,
		Period:       period.Week{Start: start, End: period.AddDays(start, 6)},
	}, franchise.Projection{
		TotalGross:    decimal.RequireFromString("1000.00"),
		FeePercentage: decimal.RequireFromString("6"),
		FeeAmount:     decimal.RequireFromString("60.00"),
	})
	require.NoError(t, err)
	return inv
}

func createdEvent(t *testing.T) *franchise.InvoiceTotalsEvent {
	t.Helper()
	return franchise.NewInvoiceCreatedEvent(newTestInvoice(t))
}

// recordingHandler captures events and can be told to fail or panic
type recordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panics     bool
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}
