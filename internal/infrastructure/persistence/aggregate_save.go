package persistence

import (
	"context"

	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"gorm.io/gorm"
)

// saveAggregate inserts an aggregate that was never stored, or updates the
// row only while it still carries the version the aggregate was loaded at.
// Inserts run under a savepoint so a unique violation leaves an enclosing
// transaction usable.
func saveAggregate(ctx context.Context, db *gorm.DB, root *shared.BaseAggregateRoot, model any) error {
	if root.PersistedVersion() == 0 {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(model).Error
		})
		if err != nil {
			return err
		}
		root.MarkPersisted()
		return nil
	}

	result := db.WithContext(ctx).
		Model(model).
		Where("version = ?", root.PersistedVersion()).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	root.MarkPersisted()
	return nil
}
