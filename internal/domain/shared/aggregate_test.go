package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseAggregateRoot_PersistedVersion(t *testing.T) {
	t.Run("new aggregates were never stored", func(t *testing.T) {
		a := NewBaseAggregateRoot()
		assert.Equal(t, 1, a.Version)
		assert.Equal(t, 0, a.PersistedVersion())

		a.MarkPersisted()
		assert.Equal(t, 1, a.PersistedVersion())
	})

	t.Run("changes move the version past the stored one", func(t *testing.T) {
		a := RestoreAggregateRoot(NewBaseEntity(), 4)
		assert.Equal(t, 4, a.PersistedVersion())

		a.Changed(nil)
		a.Changed(nil)
		assert.Equal(t, 6, a.Version)
		assert.Equal(t, 4, a.PersistedVersion())

		a.MarkPersisted()
		assert.Equal(t, 6, a.PersistedVersion())
	})
}
