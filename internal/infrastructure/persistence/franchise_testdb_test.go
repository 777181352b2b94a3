package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupFranchiseTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// one connection, so every statement sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(&models.FranchiseeModel{}, &models.RevenueReportModel{}, &models.InvoiceModel{})
	require.NoError(t, err)
	return db
}

func testWeek(y int, m time.Month, d int) period.Week {
	start := period.Date(y, m, d)
	return period.Week{Start: start, End: period.AddDays(start, 6)}
}

func newTestReport(t *testing.T, franchiseeID uuid.UUID, brand franchise.Brand, p franchise.Platform, w period.Week, gross string) *franchise.RevenueReport {
	r, err := franchise.NewRevenueReport(franchise.ReportKey{
		FranchiseeID: franchiseeID,
		Brand:        brand,
		Platform:     p,
		Period:       w,
	}, decimal.RequireFromString(gross), franchise.SourceManual, nil)
	require.NoError(t, err)
	return r
}

func newTestInvoice(t *testing.T, number string, key franchise.InvoiceKey, fee string) *franchise.Invoice {
	inv, err := franchise.NewInvoice(number, key, franchise.Projection{
		TotalGross:    decimal.NewFromInt(1000),
		FeePercentage: decimal.NewFromInt(6),
		FeeAmount:     decimal.RequireFromString(fee),
	})
	require.NoError(t, err)
	return inv
}
