package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	t.Run("typed and wildcard handlers", func(t *testing.T) {
		r := NewHandlerRegistry()
		typed := newRecordingHandler()
		wildcard := newRecordingHandler()
		r.Register(typed, "InvoiceCreated", "InvoiceRecomputed")
		r.Register(wildcard)

		assert.Equal(t, []any{typed, wildcard}, toAny(r.GetHandlers("InvoiceCreated")))
		assert.Equal(t, []any{wildcard}, toAny(r.GetHandlers("InvoiceStatusChanged")))
		assert.Equal(t, 2, r.Len())
	})

	t.Run("unregister removes every registration", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newRecordingHandler()
		other := newRecordingHandler()
		r.Register(h, "InvoiceCreated", "InvoiceRecomputed")
		r.Register(h)
		r.Register(other, "InvoiceCreated")

		r.Unregister(h)

		assert.Equal(t, []any{other}, toAny(r.GetHandlers("InvoiceCreated")))
		assert.Empty(t, r.GetHandlers("InvoiceRecomputed"))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newRecordingHandler()
		r.Register(h, "InvoiceCreated")

		got := r.GetHandlers("InvoiceCreated")
		got[0] = nil

		assert.Same(t, h, r.GetHandlers("InvoiceCreated")[0])
	})
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
