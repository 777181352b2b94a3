// Package franchisee manages the registry of franchise sites and their fee models.
package franchisee

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"go.uber.org/zap"
)

// Service handles franchisee registry operations
type Service struct {
	repo   franchise.FranchiseeRepository
	logger *zap.Logger
}

// NewService creates a new franchisee Service
func NewService(repo franchise.FranchiseeRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Create registers a franchisee
func (s *Service) Create(ctx context.Context, req CreateFranchiseeRequest) (*FranchiseeResponse, error) {
	f, err := franchise.NewFranchisee(req.Name, req.Location, req.Email, toBrands(req.Brands), req.Fees.toDomain())
	if err != nil {
		return nil, err
	}
	f.BusinessAddress = strings.TrimSpace(req.BusinessAddress)
	f.SiteAddress = strings.TrimSpace(req.SiteAddress)

	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info("Franchisee created",
		zap.String("franchisee_id", f.ID.String()),
		zap.String("payment_model", string(f.Fees.Model)),
	)
	resp := ToFranchiseeResponse(f)
	return &resp, nil
}

// GetByID returns one franchisee
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*FranchiseeResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToFranchiseeResponse(f)
	return &resp, nil
}

// List returns a page of franchisees
func (s *Service) List(ctx context.Context, filter shared.Filter) (shared.Paginated[FranchiseeResponse], error) {
	items, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[FranchiseeResponse]{}, err
	}
	out := make([]FranchiseeResponse, 0, len(items))
	for i := range items {
		out = append(out, ToFranchiseeResponse(&items[i]))
	}
	return shared.NewPaginated(out, total, filter.Page, filter.Limit()), nil
}

// ListMonthly returns every franchisee billed a fixed monthly fee
func (s *Service) ListMonthly(ctx context.Context) ([]franchise.Franchisee, error) {
	return s.repo.FindByPaymentModel(ctx, franchise.PaymentModelMonthlyFixed)
}

// Update changes contact details and brands
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateFranchiseeRequest) (*FranchiseeResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, shared.NewDomainError("INVALID_NAME", "Franchisee name cannot be empty")
		}
		f.Name = name
	}
	if req.Location != nil {
		loc := strings.TrimSpace(*req.Location)
		if loc == "" {
			return nil, shared.NewDomainError("INVALID_LOCATION", "Location cannot be empty")
		}
		f.Location = loc
	}
	if req.Email != nil {
		f.Email = strings.TrimSpace(*req.Email)
	}
	if req.BusinessAddress != nil {
		f.BusinessAddress = strings.TrimSpace(*req.BusinessAddress)
	}
	if req.SiteAddress != nil {
		f.SiteAddress = strings.TrimSpace(*req.SiteAddress)
	}
	if req.Brands != nil {
		if err := f.SetBrands(toBrands(req.Brands)); err != nil {
			return nil, err
		}
	}
	f.Touch()
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	resp := ToFranchiseeResponse(f)
	return &resp, nil
}

// UpdateFees replaces the fee configuration. Existing invoices keep their
// totals until their reports are next saved.
func (s *Service) UpdateFees(ctx context.Context, id uuid.UUID, req FeeConfigRequest) (*FranchiseeResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.UpdateFees(req.toDomain()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info("Franchisee fees updated",
		zap.String("franchisee_id", f.ID.String()),
		zap.String("payment_model", string(f.Fees.Model)),
		zap.String("payment_direction", string(f.Fees.Direction)),
	)
	resp := ToFranchiseeResponse(f)
	return &resp, nil
}

// Delete removes a franchisee
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
