package franchise

import (
	"strings"

	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentModel selects how the franchise fee is computed
type PaymentModel string

const (
	PaymentModelPercentage            PaymentModel = "percentage"
	PaymentModelPercentagePerPlatform PaymentModel = "percentage_per_platform"
	PaymentModelMonthlyFixed          PaymentModel = "monthly_fixed"
)

// IsValid checks if the model is known
func (m PaymentModel) IsValid() bool {
	switch m {
	case PaymentModelPercentage, PaymentModelPercentagePerPlatform, PaymentModelMonthlyFixed:
		return true
	}
	return false
}

// IsPercentageBased reports whether fees derive from uploaded revenue
func (m PaymentModel) IsPercentageBased() bool {
	return m == PaymentModelPercentage || m == PaymentModelPercentagePerPlatform
}

// PaymentDirection records who pays whom once fees are known
type PaymentDirection string

const (
	DirectionCollectFees PaymentDirection = "collect_fees"
	DirectionPayThem     PaymentDirection = "pay_them"
)

// IsValid checks if the direction is known
func (d PaymentDirection) IsValid() bool {
	return d == DirectionCollectFees || d == DirectionPayThem
}

// DefaultFlatRate applies when a flat-percentage franchisee has no rate configured
var DefaultFlatRate = decimal.NewFromInt(6)

// FeeConfiguration is the fee model snapshot consumed by the fee engine
type FeeConfiguration struct {
	Model               PaymentModel     `json:"payment_model"`
	PercentageRate      *decimal.Decimal `json:"percentage_rate,omitempty"`
	DeliverooPercentage *decimal.Decimal `json:"deliveroo_percentage,omitempty"`
	UberEatsPercentage  *decimal.Decimal `json:"ubereats_percentage,omitempty"`
	JustEatPercentage   *decimal.Decimal `json:"justeat_percentage,omitempty"`
	SlerpPercentage     *decimal.Decimal `json:"slerp_percentage,omitempty"`
	MonthlyFee          *decimal.Decimal `json:"monthly_fee,omitempty"`
	Direction           PaymentDirection `json:"payment_direction"`
}

// NominalRate is the configured flat rate, or the default when unset. It is
// the effective percentage reported when there is no revenue to divide by.
func (c FeeConfiguration) NominalRate() decimal.Decimal {
	if c.PercentageRate == nil {
		return DefaultFlatRate
	}
	return *c.PercentageRate
}

// PlatformRate returns the percentage charged on one platform's revenue.
// The direct platform always uses its own rate; per-platform franchisees use
// the matching aggregator rate; everyone else pays the flat rate.
func (c FeeConfiguration) PlatformRate(p Platform) decimal.Decimal {
	if p == PlatformSlerp {
		return valueOr(c.SlerpPercentage, decimal.Zero)
	}
	if c.Model == PaymentModelPercentagePerPlatform {
		switch p {
		case PlatformDeliveroo:
			return valueOr(c.DeliverooPercentage, decimal.Zero)
		case PlatformUberEats:
			return valueOr(c.UberEatsPercentage, decimal.Zero)
		case PlatformJustEat:
			return valueOr(c.JustEatPercentage, decimal.Zero)
		}
		return decimal.Zero
	}
	if c.PercentageRate == nil || c.PercentageRate.IsZero() {
		return DefaultFlatRate
	}
	return *c.PercentageRate
}

// MonthlyAmount returns the fixed monthly fee or zero
func (c FeeConfiguration) MonthlyAmount() decimal.Decimal {
	return valueOr(c.MonthlyFee, decimal.Zero)
}

// HasDirectRate reports whether a direct-platform rate is configured
func (c FeeConfiguration) HasDirectRate() bool {
	return c.SlerpPercentage != nil
}

// Validate checks model-specific requirements
func (c FeeConfiguration) Validate() error {
	if !c.Model.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_MODEL", "Payment model is not valid")
	}
	if !c.Direction.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_DIRECTION", "Payment direction is not valid")
	}
	for _, rate := range []*decimal.Decimal{
		c.PercentageRate, c.DeliverooPercentage, c.UberEatsPercentage, c.JustEatPercentage, c.SlerpPercentage,
	} {
		if rate != nil && (rate.IsNegative() || rate.GreaterThan(hundred)) {
			return shared.NewDomainError("INVALID_RATE", "Percentages must be between 0 and 100")
		}
	}
	if c.MonthlyFee != nil && c.MonthlyFee.IsNegative() {
		return shared.NewDomainError("INVALID_MONTHLY_FEE", "Monthly fee cannot be negative")
	}
	return nil
}

func valueOr(d *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if d == nil {
		return fallback
	}
	return *d
}

// Franchisee is a franchise site billed by the fee engine
type Franchisee struct {
	shared.BaseAggregateRoot
	Name            string           `json:"name"`
	Location        string           `json:"location"`
	Email           string           `json:"email"`
	BusinessAddress string           `json:"business_address"`
	SiteAddress     string           `json:"site_address"`
	Brands          []Brand          `json:"brands"`
	Fees            FeeConfiguration `json:"fees"`
}

// NewFranchisee creates a validated franchisee
func NewFranchisee(name, location, email string, brands []Brand, fees FeeConfiguration) (*Franchisee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Franchisee name cannot be empty")
	}
	if strings.TrimSpace(location) == "" {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location cannot be empty")
	}
	if fees.Direction == "" {
		fees.Direction = DirectionCollectFees
	}
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	f := &Franchisee{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Location:          strings.TrimSpace(location),
		Email:             strings.TrimSpace(email),
		Fees:              fees,
	}
	if err := f.SetBrands(brands); err != nil {
		return nil, err
	}
	return f, nil
}

// SetBrands replaces the traded brands
func (f *Franchisee) SetBrands(brands []Brand) error {
	seen := make(map[Brand]bool, len(brands))
	out := make([]Brand, 0, len(brands))
	for _, b := range brands {
		b = b.Normalize()
		if b.IsBlank() || seen[b] {
			continue
		}
		if !b.IsKnown() {
			return shared.NewDomainError("INVALID_BRAND", "Unknown brand: "+string(b))
		}
		seen[b] = true
		out = append(out, b)
	}
	f.Brands = out
	f.Touch()
	return nil
}

// UpdateFees replaces the fee configuration
func (f *Franchisee) UpdateFees(fees FeeConfiguration) error {
	if err := fees.Validate(); err != nil {
		return err
	}
	f.Fees = fees
	f.Changed(nil)
	return nil
}

// PaysDirectly reports whether fees are netted off money paid to the franchisee
func (f *Franchisee) PaysDirectly() bool {
	return f.Fees.Direction == DirectionPayThem
}

// MatchesLocation compares a location label from an export against the
// franchisee's location. Labels match when either contains the other, or when
// the part after " - " (e.g. "Hungry Tum - Bethnal Green") does.
func (f *Franchisee) MatchesLocation(label string) bool {
	ours := strings.ToLower(strings.TrimSpace(f.Location))
	theirs := strings.ToLower(strings.TrimSpace(label))
	if ours == "" || theirs == "" {
		return false
	}
	if strings.Contains(theirs, ours) || strings.Contains(ours, theirs) {
		return true
	}
	if idx := strings.LastIndex(theirs, " - "); idx >= 0 {
		suffix := strings.TrimSpace(theirs[idx+3:])
		return suffix != "" && (suffix == ours || strings.Contains(ours, suffix) || strings.Contains(suffix, ours))
	}
	return false
}
