package franchise

import "strings"

// Brand is a storefront trading from a franchise site. The empty brand means
// "unassigned" on reports and "all brands combined" on invoices.
type Brand string

const (
	BrandWingShack  Brand = "Wing Shack"
	BrandSmshBn     Brand = "SMSH BN"
	BrandEggsNStuff Brand = "Eggs n Stuff"
)

// KnownBrands returns the house brands in allocation order
func KnownBrands() []Brand {
	return []Brand{BrandWingShack, BrandSmshBn, BrandEggsNStuff}
}

// DefaultBrand receives a whole-document total when a statement has no per-brand rows
const DefaultBrand = BrandWingShack

// IsKnown reports whether b is one of the house brands
func (b Brand) IsKnown() bool {
	for _, k := range KnownBrands() {
		if k == b {
			return true
		}
	}
	return false
}

// IsBlank reports whether no brand is assigned
func (b Brand) IsBlank() bool {
	return strings.TrimSpace(string(b)) == ""
}

// Normalize trims surrounding whitespace
func (b Brand) Normalize() Brand {
	return Brand(strings.TrimSpace(string(b)))
}

// String returns the string representation of Brand
func (b Brand) String() string {
	return string(b)
}

// Slug returns a path-safe form used in storage keys
func (b Brand) Slug() string {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	return strings.ReplaceAll(s, " ", "-")
}
