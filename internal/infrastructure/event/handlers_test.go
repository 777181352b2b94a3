package event

import (
	"context"
	"errors"
	"testing"

	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInvoiceAuditHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewInvoiceAuditHandler(zap.New(core))

	inv := newTestInvoice(t)
	require.NoError(t, inv.MarkSent())
	for _, e := range inv.GetDomainEvents() {
		require.NoError(t, h.Handle(context.Background(), e))
	}

	entries := logs.FilterMessage("Invoice event").All()
	require.Len(t, entries, 2)
	created := entries[0].ContextMap()
	assert.Equal(t, "InvoiceCreated", created["event_type"])
	assert.Equal(t, "1000.00", created["gross"])
	assert.Equal(t, "60.00", created["fee"])
	changed := entries[1].ContextMap()
	assert.Equal(t, "draft", changed["from"])
	assert.Equal(t, "sent", changed["to"])
}

type publisherFunc func(ctx context.Context, events ...shared.DomainEvent) error

func (f publisherFunc) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return f(ctx, events...)
}

func TestBrokerForwarder(t *testing.T) {
	var forwarded []shared.DomainEvent
	f := NewBrokerForwarder(publisherFunc(func(_ context.Context, events ...shared.DomainEvent) error {
		forwarded = append(forwarded, events...)
		return nil
	}))
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(f)

	require.NoError(t, bus.Publish(context.Background(), createdEvent(t)))
	assert.Len(t, forwarded, 1)
	assert.Nil(t, f.EventTypes())

	failing := NewBrokerForwarder(publisherFunc(func(context.Context, ...shared.DomainEvent) error {
		return errors.New("broker down")
	}))
	assert.Error(t, failing.Handle(context.Background(), createdEvent(t)))
}
