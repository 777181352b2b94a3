package telemetry_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T", m.Name, m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func newInvoice(t *testing.T) *franchise.Invoice {
	t.Helper()
	start := period.Date(2026, 1, 5)
	week := period.Week{Start: start, End: period.AddDays(start, 6)}
	inv, err := franchise.NewInvoice("HT-2026-0003",
		franchise.InvoiceKey{FranchiseeID: uuid.New(), Brand: franchise.BrandWingShack, Period: week},
		franchise.Projection{
			TotalGross:    decimal.NewFromInt(1000),
			FeePercentage: decimal.NewFromInt(6),
			FeeAmount:     decimal.NewFromInt(60),
		})
	require.NoError(t, err)
	return inv
}

func TestBillingMetrics_CountsInvoiceEvents(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewBillingMetrics(provider.Meter("billing"))
	require.NoError(t, err)
	assert.Len(t, m.EventTypes(), 4)

	inv := newInvoice(t)
	ctx := context.Background()
	for _, ev := range inv.GetDomainEvents() {
		require.NoError(t, m.Handle(ctx, ev))
	}
	inv.ClearDomainEvents()
	require.NoError(t, inv.MarkSent())
	for _, ev := range inv.GetDomainEvents() {
		require.NoError(t, m.Handle(ctx, ev))
	}

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumOf(t, got["billing_invoices_created_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["billing_invoice_status_changes_total"]))

	hist, ok := got["billing_invoice_fee_amount"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, 60.0, hist.DataPoints[0].Sum)
}

type otherEvent struct{ shared.BaseDomainEvent }

func TestBillingMetrics_RejectsUnknownEvent(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	m, err := telemetry.NewBillingMetrics(provider.Meter("billing"))
	require.NoError(t, err)

	ev := &otherEvent{shared.NewBaseDomainEvent("Other", "Thing", uuid.New())}
	assert.Error(t, m.Handle(context.Background(), ev))
}

func TestMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	counter, err := telemetry.NewCounter(mp.Meter("test"), "noop_total", "noop", "1")
	require.NoError(t, err)
	counter.Inc(context.Background())
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestHistogram_RecordDuration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	h, err := telemetry.NewHistogram(provider.Meter("test"), telemetry.HistogramOpts{
		Name: "job_duration_seconds", Unit: "s", Buckets: []float64{1, 10},
	})
	require.NoError(t, err)
	h.RecordDuration(context.Background(), 1500*1e6)

	hist := collect(t, reader)["job_duration_seconds"].Data.(metricdata.Histogram[float64])
	assert.InDelta(t, 1.5, hist.DataPoints[0].Sum, 1e-9)
	assert.Equal(t, []float64{1, 10}, hist.DataPoints[0].Bounds)
}
