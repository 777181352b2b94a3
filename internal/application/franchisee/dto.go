package franchisee

import (
	"time"

	"github.com/google/uuid"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/shopspring/decimal"
)

// FeeConfigRequest carries a franchisee's fee model
type FeeConfigRequest struct {
	PaymentModel        string           `json:"payment_model" binding:"required,oneof=percentage percentage_per_platform monthly_fixed"`
	PercentageRate      *decimal.Decimal `json:"percentage_rate"`
	DeliverooPercentage *decimal.Decimal `json:"deliveroo_percentage"`
	UberEatsPercentage  *decimal.Decimal `json:"ubereats_percentage"`
	JustEatPercentage   *decimal.Decimal `json:"justeat_percentage"`
	SlerpPercentage     *decimal.Decimal `json:"slerp_percentage"`
	MonthlyFee          *decimal.Decimal `json:"monthly_fee"`
	PaymentDirection    string           `json:"payment_direction" binding:"omitempty,oneof=collect_fees pay_them"`
}

// toDomain converts the request to a fee configuration
func (r FeeConfigRequest) toDomain() franchise.FeeConfiguration {
	direction := franchise.PaymentDirection(r.PaymentDirection)
	if direction == "" {
		direction = franchise.DirectionCollectFees
	}
	return franchise.FeeConfiguration{
		Model:               franchise.PaymentModel(r.PaymentModel),
		PercentageRate:      r.PercentageRate,
		DeliverooPercentage: r.DeliverooPercentage,
		UberEatsPercentage:  r.UberEatsPercentage,
		JustEatPercentage:   r.JustEatPercentage,
		SlerpPercentage:     r.SlerpPercentage,
		MonthlyFee:          r.MonthlyFee,
		Direction:           direction,
	}
}

// CreateFranchiseeRequest represents a request to register a franchisee
type CreateFranchiseeRequest struct {
	Name            string           `json:"name" binding:"required,min=1,max=200"`
	Location        string           `json:"location" binding:"required,min=1,max=200"`
	Email           string           `json:"email" binding:"omitempty,email,max=200"`
	BusinessAddress string           `json:"business_address" binding:"max=500"`
	SiteAddress     string           `json:"site_address" binding:"max=500"`
	Brands          []string         `json:"brands"`
	Fees            FeeConfigRequest `json:"fees" binding:"required"`
}

// UpdateFranchiseeRequest represents a request to update contact details; nil fields are unchanged
type UpdateFranchiseeRequest struct {
	Name            *string  `json:"name" binding:"omitempty,min=1,max=200"`
	Location        *string  `json:"location" binding:"omitempty,min=1,max=200"`
	Email           *string  `json:"email" binding:"omitempty,email,max=200"`
	BusinessAddress *string  `json:"business_address" binding:"omitempty,max=500"`
	SiteAddress     *string  `json:"site_address" binding:"omitempty,max=500"`
	Brands          []string `json:"brands"`
}

// FranchiseeResponse represents a franchisee in API responses
type FranchiseeResponse struct {
	ID              uuid.UUID                  `json:"id"`
	Name            string                     `json:"name"`
	Location        string                     `json:"location"`
	Email           string                     `json:"email"`
	BusinessAddress string                     `json:"business_address"`
	SiteAddress     string                     `json:"site_address"`
	Brands          []franchise.Brand          `json:"brands"`
	Fees            franchise.FeeConfiguration `json:"fees"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// ToFranchiseeResponse converts a domain franchisee to its response
func ToFranchiseeResponse(f *franchise.Franchisee) FranchiseeResponse {
	brands := f.Brands
	if brands == nil {
		brands = []franchise.Brand{}
	}
	return FranchiseeResponse{
		ID:              f.ID,
		Name:            f.Name,
		Location:        f.Location,
		Email:           f.Email,
		BusinessAddress: f.BusinessAddress,
		SiteAddress:     f.SiteAddress,
		Brands:          brands,
		Fees:            f.Fees,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

func toBrands(in []string) []franchise.Brand {
	out := make([]franchise.Brand, 0, len(in))
	for _, b := range in {
		out = append(out, franchise.Brand(b))
	}
	return out
}
