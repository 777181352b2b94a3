package statement

import (
	"testing"
	"time"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAllocate(t *testing.T) {
	week := period.ResolveCalendarWeek(period.Date(2024, time.May, 15))

	t.Run("explicit zero brand is kept", func(t *testing.T) {
		allocs := Allocate(Breakdown{
			franchise.BrandWingShack:  dec("120.00"),
			franchise.BrandSmshBn:     decimal.Zero,
			franchise.BrandEggsNStuff: dec("340.50"),
		}, week)
		require.Len(t, allocs, 3)
		assert.Equal(t, franchise.BrandWingShack, allocs[0].Brand)
		assert.Equal(t, "120.00", allocs[0].Amount.StringFixed(2))
		assert.Equal(t, franchise.BrandSmshBn, allocs[1].Brand)
		assert.True(t, allocs[1].Amount.IsZero())
		assert.Equal(t, "340.50", allocs[2].Amount.StringFixed(2))
		for _, a := range allocs {
			assert.Equal(t, week, a.Week)
		}
	})

	t.Run("missing brands appear at zero", func(t *testing.T) {
		allocs := Allocate(Breakdown{franchise.BrandEggsNStuff: dec("10.005")}, week)
		require.Len(t, allocs, 3)
		assert.True(t, allocs[0].Amount.IsZero())
		assert.Equal(t, "10.01", allocs[2].Amount.StringFixed(2))
	})
}

func TestBreakdownHelpers(t *testing.T) {
	b := SingleBrand(dec("99.99"))
	assert.Len(t, b, 3)
	assert.Equal(t, "99.99", b[franchise.DefaultBrand].StringFixed(2))
	assert.Equal(t, "99.99", b.Total().StringFixed(2))

	c := CompleteBreakdown(Breakdown{franchise.BrandSmshBn: dec("1.234")})
	assert.Equal(t, "1.23", c[franchise.BrandSmshBn].StringFixed(2))
	assert.True(t, c[franchise.BrandWingShack].IsZero())
}

func TestConfidence(t *testing.T) {
	assert.True(t, ConfidenceHigh.AtLeast(ConfidenceMedium))
	assert.False(t, ConfidenceLow.AtLeast(ConfidenceMedium))
	assert.True(t, ConfidenceMedium.AtLeast(ConfidenceMedium))

	r := NoMatch(franchise.PlatformJustEat, franchise.SourcePDF)
	assert.Equal(t, ConfidenceLow, r.Confidence)
	assert.True(t, r.GrossRevenue.IsZero())
	assert.False(t, r.HasBreakdown())

	r.WithPeriod(period.Date(2024, time.May, 19), true)
	require.NotNil(t, r.InferredPeriod)
}
