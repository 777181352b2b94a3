package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRevenueReportRepository implements RevenueReportRepository using GORM
type GormRevenueReportRepository struct {
	db *gorm.DB
}

// NewGormRevenueReportRepository creates a new GormRevenueReportRepository
func NewGormRevenueReportRepository(db *gorm.DB) *GormRevenueReportRepository {
	return &GormRevenueReportRepository{db: db}
}

// Replace deletes the report stored under r's key, if any, and inserts r.
// Both statements run in one transaction (a savepoint when already inside one).
func (r *GormRevenueReportRepository) Replace(ctx context.Context, report *franchise.RevenueReport) error {
	model := models.RevenueReportModelFromDomain(report)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := whereReportKey(tx, report.Key()).
			Delete(&models.RevenueReportModel{}).Error; err != nil {
			return err
		}
		return tx.Create(model).Error
	})
}

// FindByKey finds the report stored under a report key
func (r *GormRevenueReportRepository) FindByKey(ctx context.Context, key franchise.ReportKey) (*franchise.RevenueReport, error) {
	var model models.RevenueReportModel
	if err := whereReportKey(r.db.WithContext(ctx), key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindForInvoice returns the reports rolling up into an invoice key,
// optionally restricted to some platforms. A blank brand matches all brands.
func (r *GormRevenueReportRepository) FindForInvoice(ctx context.Context, key franchise.InvoiceKey, platforms ...franchise.Platform) ([]franchise.RevenueReport, error) {
	query := r.db.WithContext(ctx).
		Where("franchisee_id = ? AND period_start = ? AND period_end = ?",
			key.FranchiseeID, period.Day(key.Period.Start), period.Day(key.Period.End))
	if brand := key.Brand.Normalize(); !brand.IsBlank() {
		query = query.Where("brand = ?", brand)
	}
	if len(platforms) > 0 {
		query = query.Where("platform IN ?", platforms)
	}

	var rows []models.RevenueReportModel
	if err := query.Order("platform ASC, brand ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return reportsToDomain(rows), nil
}

// FindDirectByPeriodEnd returns direct-platform reports whose sales period ends on the given day
func (r *GormRevenueReportRepository) FindDirectByPeriodEnd(ctx context.Context, franchiseeID uuid.UUID, brand franchise.Brand, end time.Time) ([]franchise.RevenueReport, error) {
	query := r.db.WithContext(ctx).
		Where("franchisee_id = ? AND platform = ? AND period_end = ?",
			franchiseeID, franchise.PlatformSlerp, period.Day(end))
	if b := brand.Normalize(); !b.IsBlank() {
		query = query.Where("brand = ?", b)
	}

	var rows []models.RevenueReportModel
	if err := query.Order("period_start ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return reportsToDomain(rows), nil
}

// FindByFranchisee returns a page of a franchisee's reports, newest period first.
// Supported filters: "brand" and "platform".
func (r *GormRevenueReportRepository) FindByFranchisee(ctx context.Context, franchiseeID uuid.UUID, filter shared.Filter) ([]franchise.RevenueReport, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.RevenueReportModel{}).
		Where("franchisee_id = ?", franchiseeID)
	if brand := filter.Get("brand"); brand != "" {
		query = query.Where("brand = ?", brand)
	}
	if platform := filter.Get("platform"); platform != "" {
		query = query.Where("platform = ?", platform)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.RevenueReportModel
	if err := query.Order(revenueReportSort.orderClause(filter.OrderBy, filter.OrderDir)).
		Order("platform ASC").
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return reportsToDomain(rows), total, nil
}

func whereReportKey(db *gorm.DB, key franchise.ReportKey) *gorm.DB {
	return db.Where("franchisee_id = ? AND brand = ? AND platform = ? AND period_start = ? AND period_end = ?",
		key.FranchiseeID, key.Brand.Normalize(), key.Platform,
		period.Day(key.Period.Start), period.Day(key.Period.End))
}

func reportsToDomain(rows []models.RevenueReportModel) []franchise.RevenueReport {
	out := make([]franchise.RevenueReport, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

var _ franchise.RevenueReportRepository = (*GormRevenueReportRepository)(nil)
