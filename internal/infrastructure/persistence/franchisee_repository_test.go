package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestFranchisee(t *testing.T, name, location string, model franchise.PaymentModel) *franchise.Franchisee {
	fees := franchise.FeeConfiguration{Model: model}
	if model == franchise.PaymentModelMonthlyFixed {
		fee := decimal.NewFromInt(250)
		fees.MonthlyFee = &fee
	}
	f, err := franchise.NewFranchisee(name, location, "", []franchise.Brand{franchise.BrandWingShack}, fees)
	require.NoError(t, err)
	return f
}

func TestGormFranchiseeRepository_SaveAndFind(t *testing.T) {
	db := setupFranchiseTestDB(t)
	repo := NewGormFranchiseeRepository(db)
	ctx := context.Background()

	f := newTestFranchisee(t, "Tum Ltd", "Bethnal Green", franchise.PaymentModelPercentage)
	require.NoError(t, repo.Save(ctx, f))

	found, err := repo.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tum Ltd", found.Name)
	assert.Equal(t, []franchise.Brand{franchise.BrandWingShack}, found.Brands)
	assert.Equal(t, franchise.DirectionCollectFees, found.Fees.Direction)

	rate := decimal.RequireFromString("7.25")
	require.NoError(t, found.UpdateFees(franchise.FeeConfiguration{
		Model:          franchise.PaymentModelPercentage,
		PercentageRate: &rate,
		Direction:      franchise.DirectionPayThem,
	}))
	require.NoError(t, repo.Save(ctx, found))

	updated, err := repo.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, updated.Fees.PercentageRate.Equal(rate))
	assert.True(t, updated.PaysDirectly())
	assert.Equal(t, found.Version, updated.Version)
}

func TestGormFranchiseeRepository_StaleSaveIsRejected(t *testing.T) {
	db := setupFranchiseTestDB(t)
	repo := NewGormFranchiseeRepository(db)
	ctx := context.Background()

	f := newTestFranchisee(t, "Tum Ltd", "Bethnal Green", franchise.PaymentModelPercentage)
	require.NoError(t, repo.Save(ctx, f))

	first, err := repo.FindByID(ctx, f.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, f.ID)
	require.NoError(t, err)

	pay := franchise.FeeConfiguration{Model: franchise.PaymentModelPercentage, Direction: franchise.DirectionPayThem}
	require.NoError(t, first.UpdateFees(pay))
	require.NoError(t, repo.Save(ctx, first))

	require.NoError(t, second.UpdateFees(franchise.FeeConfiguration{Model: franchise.PaymentModelPercentage, Direction: franchise.DirectionCollectFees}))
	assert.ErrorIs(t, repo.Save(ctx, second), shared.ErrConcurrencyConflict)

	stored, err := repo.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, stored.PaysDirectly())
}

func TestGormFranchiseeRepository_FindByID_NotFound(t *testing.T) {
	repo := NewGormFranchiseeRepository(setupFranchiseTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormFranchiseeRepository_FindAll(t *testing.T) {
	db := setupFranchiseTestDB(t)
	repo := NewGormFranchiseeRepository(db)
	ctx := context.Background()

	for _, tc := range []struct{ name, location string }{
		{"Charlie", "Camden"},
		{"Alpha", "Bethnal Green"},
		{"Bravo", "Luton"},
	} {
		require.NoError(t, repo.Save(ctx, newTestFranchisee(t, tc.name, tc.location, franchise.PaymentModelPercentage)))
	}
	require.NoError(t, repo.Save(ctx, newTestFranchisee(t, "Delta", "Dalston", franchise.PaymentModelMonthlyFixed)))

	t.Run("orders by name and paginates", func(t *testing.T) {
		items, total, err := repo.FindAll(ctx, shared.Filter{Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, items, 2)
		assert.Equal(t, "Alpha", items[0].Name)
		assert.Equal(t, "Bravo", items[1].Name)
	})

	t.Run("searches name and location", func(t *testing.T) {
		items, total, err := repo.FindAll(ctx, shared.Filter{Filters: map[string]string{"search": "green"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "Alpha", items[0].Name)
	})

	t.Run("filters by payment model", func(t *testing.T) {
		items, err := repo.FindByPaymentModel(ctx, franchise.PaymentModelMonthlyFixed)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Delta", items[0].Name)
		assert.True(t, items[0].Fees.MonthlyAmount().Equal(decimal.NewFromInt(250)))
	})
}

func TestGormFranchiseeRepository_Delete(t *testing.T) {
	db := setupFranchiseTestDB(t)
	repo := NewGormFranchiseeRepository(db)
	ctx := context.Background()

	f := newTestFranchisee(t, "Tum Ltd", "Bethnal Green", franchise.PaymentModelPercentage)
	require.NoError(t, repo.Save(ctx, f))

	require.NoError(t, repo.Delete(ctx, f.ID))
	assert.ErrorIs(t, repo.Delete(ctx, f.ID), shared.ErrNotFound)
}

func TestGormFranchiseeRepository_DatabaseErrors(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	repo := NewGormFranchiseeRepository(gormDB)

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "franchisees" WHERE id = \$1 ORDER BY .* LIMIT .*`).
		WithArgs(id, 1).
		WillReturnError(assert.AnError)

	_, err = repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
