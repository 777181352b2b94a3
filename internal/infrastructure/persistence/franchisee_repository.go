package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFranchiseeRepository implements FranchiseeRepository using GORM
type GormFranchiseeRepository struct {
	db *gorm.DB
}

// NewGormFranchiseeRepository creates a new GormFranchiseeRepository
func NewGormFranchiseeRepository(db *gorm.DB) *GormFranchiseeRepository {
	return &GormFranchiseeRepository{db: db}
}

// FindByID finds a franchisee by its ID
func (r *GormFranchiseeRepository) FindByID(ctx context.Context, id uuid.UUID) (*franchise.Franchisee, error) {
	var model models.FranchiseeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of franchisees and the total count matching the filter.
// Supported filters: "search" (name or location substring) and "payment_model".
func (r *GormFranchiseeRepository) FindAll(ctx context.Context, filter shared.Filter) ([]franchise.Franchisee, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FranchiseeModel{})
	if search := filter.Get("search"); strings.TrimSpace(search) != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(location) LIKE ?", like, like)
	}
	if model := filter.Get("payment_model"); model != "" {
		query = query.Where("payment_model = ?", model)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.FranchiseeModel
	if err := query.Order(franchiseeSort.orderClause(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return franchiseesToDomain(rows), total, nil
}

// FindByPaymentModel returns every franchisee on the given fee model
func (r *GormFranchiseeRepository) FindByPaymentModel(ctx context.Context, model franchise.PaymentModel) ([]franchise.Franchisee, error) {
	var rows []models.FranchiseeModel
	if err := r.db.WithContext(ctx).
		Where("payment_model = ?", model).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return franchiseesToDomain(rows), nil
}

// Save creates or updates a franchisee, checking the version it was loaded at
func (r *GormFranchiseeRepository) Save(ctx context.Context, f *franchise.Franchisee) error {
	return saveAggregate(ctx, r.db, &f.BaseAggregateRoot, models.FranchiseeModelFromDomain(f))
}

// Delete deletes a franchisee
func (r *GormFranchiseeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.FranchiseeModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func franchiseesToDomain(rows []models.FranchiseeModel) []franchise.Franchisee {
	out := make([]franchise.Franchisee, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

var _ franchise.FranchiseeRepository = (*GormFranchiseeRepository)(nil)
