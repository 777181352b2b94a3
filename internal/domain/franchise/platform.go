package franchise

import (
	"fmt"
	"strings"
)

// Platform identifies the channel a statement came from
type Platform string

const (
	PlatformDeliveroo Platform = "deliveroo"
	PlatformUberEats  Platform = "ubereats"
	PlatformJustEat   Platform = "justeat"
	PlatformSlerp     Platform = "slerp" // direct orders, Tuesday to Monday sales periods
)

// AggregatorPlatforms returns the marketplaces billed on Monday–Sunday weeks
func AggregatorPlatforms() []Platform {
	return []Platform{PlatformDeliveroo, PlatformUberEats, PlatformJustEat}
}

// AllPlatforms returns every supported platform
func AllPlatforms() []Platform {
	return []Platform{PlatformDeliveroo, PlatformUberEats, PlatformJustEat, PlatformSlerp}
}

// IsValid checks if the platform is known
func (p Platform) IsValid() bool {
	switch p {
	case PlatformDeliveroo, PlatformUberEats, PlatformJustEat, PlatformSlerp:
		return true
	}
	return false
}

// IsAggregator reports whether revenue on this platform counts towards the weekly fee
func (p Platform) IsAggregator() bool {
	return p == PlatformDeliveroo || p == PlatformUberEats || p == PlatformJustEat
}

// String returns the string representation of Platform
func (p Platform) String() string {
	return string(p)
}

// Label returns the display name
func (p Platform) Label() string {
	switch p {
	case PlatformDeliveroo:
		return "Deliveroo"
	case PlatformUberEats:
		return "Uber Eats"
	case PlatformJustEat:
		return "Just Eat"
	case PlatformSlerp:
		return "Slerp (Direct)"
	default:
		return string(p)
	}
}

// ParsePlatform accepts the canonical tag or a display label
func ParsePlatform(s string) (Platform, error) {
	key := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.TrimSpace(s)))
	switch key {
	case "deliveroo":
		return PlatformDeliveroo, nil
	case "ubereats", "uber":
		return PlatformUberEats, nil
	case "justeat":
		return PlatformJustEat, nil
	case "slerp", "slerp(direct)", "direct":
		return PlatformSlerp, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}
