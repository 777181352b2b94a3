package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_Commit(t *testing.T) {
	db := setupFranchiseTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()
	fid := uuid.New()
	week := testWeek(2026, time.February, 9)

	err := scope.Execute(ctx, func(repos reconciliation.TransactionalRepositories) error {
		if err := repos.ReportRepo().Replace(ctx, newTestReport(t, fid, franchise.BrandWingShack, franchise.PlatformDeliveroo, week, "100")); err != nil {
			return err
		}
		key := franchise.InvoiceKey{FranchiseeID: fid, Brand: franchise.BrandWingShack, Period: week}
		return repos.InvoiceRepo().Save(ctx, newTestInvoice(t, "HT-2026-0001", key, "6"))
	})
	require.NoError(t, err)

	_, err = NewGormInvoiceRepository(db).FindByKey(ctx, franchise.InvoiceKey{FranchiseeID: fid, Brand: franchise.BrandWingShack, Period: week})
	assert.NoError(t, err)
}

func TestGormTransactionScope_Rollback(t *testing.T) {
	db := setupFranchiseTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()
	fid := uuid.New()
	week := testWeek(2026, time.February, 9)
	report := newTestReport(t, fid, franchise.BrandWingShack, franchise.PlatformDeliveroo, week, "100")
	boom := errors.New("invoice write failed")

	err := scope.Execute(ctx, func(repos reconciliation.TransactionalRepositories) error {
		if err := repos.ReportRepo().Replace(ctx, report); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewGormRevenueReportRepository(db).FindByKey(ctx, report.Key())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
