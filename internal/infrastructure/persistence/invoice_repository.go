package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// InvoiceNumberPrefix starts every invoice number
const InvoiceNumberPrefix = "HT"

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*franchise.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByKey finds the invoice for a franchise, brand and period
func (r *GormInvoiceRepository) FindByKey(ctx context.Context, key franchise.InvoiceKey) (*franchise.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("franchisee_id = ? AND brand = ? AND period_start = ? AND period_end = ?",
			key.FranchiseeID, key.Brand.Normalize(),
			period.Day(key.Period.Start), period.Day(key.Period.End)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFranchisee returns a page of a franchisee's invoices, newest period first.
// Supported filters: "status" and "brand".
func (r *GormInvoiceRepository) FindByFranchisee(ctx context.Context, franchiseeID uuid.UUID, filter shared.Filter) ([]franchise.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("franchisee_id = ?", franchiseeID)
	if status := filter.Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if brand := filter.Get("brand"); brand != "" {
		query = query.Where("brand = ?", brand)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvoiceModel
	if err := query.Order(invoiceSort.orderClause(filter.OrderBy, filter.OrderDir)).
		Order("invoice_number DESC").
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]franchise.Invoice, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

// ExistsForPeriod reports whether any invoice of the franchisee covers exactly the period
func (r *GormInvoiceRepository) ExistsForPeriod(ctx context.Context, franchiseeID uuid.UUID, p period.Week) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("franchisee_id = ? AND period_start = ? AND period_end = ?",
			franchiseeID, period.Day(p.Start), period.Day(p.End)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindForPeriod returns the earliest invoice covering exactly the period, whatever its brand
func (r *GormInvoiceRepository) FindForPeriod(ctx context.Context, franchiseeID uuid.UUID, p period.Week) (*franchise.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("franchisee_id = ? AND period_start = ? AND period_end = ?",
			franchiseeID, period.Day(p.Start), period.Day(p.End)).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an invoice. Updates are checked against the version
// the invoice was loaded at; a duplicate number on insert is reported as
// franchise.ErrInvoiceNumberTaken and a duplicate key as a concurrency conflict.
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *franchise.Invoice) error {
	err := saveAggregate(ctx, r.db, &inv.BaseAggregateRoot, models.InvoiceModelFromDomain(inv))
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	var count int64
	if cerr := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("invoice_number = ?", inv.Number).
		Count(&count).Error; cerr != nil {
		return cerr
	}
	if count > 0 {
		return franchise.ErrInvoiceNumberTaken
	}
	return shared.ErrConcurrencyConflict
}

// Delete deletes an invoice. Its revenue reports are left in place.
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GenerateInvoiceNumber returns the next HT-YYYY-NNNN number for the year.
// The unique index on invoice_number rejects a number taken concurrently.
func (r *GormInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, year int) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", InvoiceNumberPrefix, year)

	var last string
	err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Select("invoice_number").
		Where("invoice_number LIKE ?", prefix+"%").
		Order("LENGTH(invoice_number) DESC, invoice_number DESC").
		Limit(1).
		Scan(&last).Error
	if err != nil {
		return "", fmt.Errorf("failed to read last invoice number: %w", err)
	}

	seq := 0
	if last != "" {
		n, convErr := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if convErr != nil {
			return "", fmt.Errorf("malformed invoice number %q: %w", last, convErr)
		}
		seq = n
	}
	return FormatInvoiceNumber(year, seq+1), nil
}

// FormatInvoiceNumber renders a year and sequence as HT-YYYY-NNNN
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", InvoiceNumberPrefix, year, seq)
}

var _ franchise.InvoiceRepository = (*GormInvoiceRepository)(nil)
