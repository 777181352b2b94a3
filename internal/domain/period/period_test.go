package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"iso", "2024-01-14", Date(2024, time.January, 14), true},
		{"iso with time", "2024-01-14T09:30:00Z", Date(2024, time.January, 14), true},
		{"day first slash", "03/04/2024", Date(2024, time.April, 3), true},
		{"day first dash", "03-04-2024", Date(2024, time.April, 3), true},
		{"single digits", "3/4/2024", Date(2024, time.April, 3), true},
		{"two digit year", "14/01/24", Date(2024, time.January, 14), true},
		{"compact", "20260202", Date(2026, time.February, 2), true},
		{"natural short month", "14 Jan 2024", Date(2024, time.January, 14), true},
		{"natural long month", "14 January 2024", Date(2024, time.January, 14), true},
		{"natural lower case", "14 jan 2024", Date(2024, time.January, 14), true},
		{"ordinal", "14th January 2024", Date(2024, time.January, 14), true},
		{"weekday prefix", "Sunday 14 January 2024", Date(2024, time.January, 14), true},
		{"month first natural", "Jan 14, 2024", Date(2024, time.January, 14), true},
		{"month out of range", "01/13/2024", time.Time{}, false},
		{"day rollover", "31/02/2024", time.Time{}, false},
		{"empty", "   ", time.Time{}, false},
		{"garbage", "next tuesday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFlexibleDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolveCalendarWeek(t *testing.T) {
	t.Run("every day of a week resolves to the same Monday to Sunday range", func(t *testing.T) {
		want := Week{Start: Date(2024, time.January, 8), End: Date(2024, time.January, 14)}
		for d := 0; d < 7; d++ {
			got := ResolveCalendarWeek(AddDays(want.Start, d))
			assert.Equal(t, want, got)
		}
	})

	t.Run("idempotent and anchored on Monday and Sunday", func(t *testing.T) {
		start := Date(2023, time.December, 20)
		for d := 0; d < 400; d++ {
			w := ResolveCalendarWeek(AddDays(start, d))
			assert.Equal(t, time.Monday, w.Start.Weekday())
			assert.Equal(t, time.Sunday, w.End.Weekday())
			assert.Equal(t, w, ResolveCalendarWeek(w.Start))
			assert.Equal(t, w, ResolveCalendarWeek(w.End))
			assert.True(t, w.Contains(AddDays(start, d)))
		}
	})

	t.Run("time of day and zone are ignored", func(t *testing.T) {
		loc := time.FixedZone("BST", 3600)
		got := ResolveCalendarWeek(time.Date(2024, time.January, 14, 23, 30, 0, 0, loc))
		assert.Equal(t, "2024-01-08", got.StartString())
		assert.Equal(t, "2024-01-14", got.EndString())
	})
}

func TestNormalizeWeek(t *testing.T) {
	w, err := NormalizeWeek("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", w.StartString())

	_, err = NormalizeWeek("10/01/2024")
	assert.Error(t, err)
}

func TestDirectPlatformPeriods(t *testing.T) {
	t.Run("sales period end is the next Monday on or after fulfillment", func(t *testing.T) {
		assert.Equal(t, Date(2026, time.February, 9), SalesPeriodEndFromFulfillment(Date(2026, time.February, 3)))
		assert.Equal(t, Date(2026, time.February, 9), SalesPeriodEndFromFulfillment(Date(2026, time.February, 9)))
		assert.Equal(t, Date(2026, time.February, 9), SalesPeriodEndFromFulfillment(Date(2026, time.February, 8)))
	})

	t.Run("payout is one cycle after the sales period end", func(t *testing.T) {
		assert.Equal(t, Date(2026, time.February, 16), PayoutDateFromFulfillment(Date(2026, time.February, 5)))
		assert.Equal(t, time.Monday, PayoutDateFromFulfillment(Date(2026, time.February, 5)).Weekday())
	})

	t.Run("sales period for payout spans Tuesday to Monday", func(t *testing.T) {
		w := SalesPeriodForPayout(Date(2026, time.February, 16))
		assert.Equal(t, Date(2026, time.February, 3), w.Start)
		assert.Equal(t, Date(2026, time.February, 9), w.End)
		assert.Equal(t, time.Tuesday, w.Start.Weekday())
		assert.Equal(t, time.Monday, w.End.Weekday())
	})

	t.Run("round trip contains the fulfillment date", func(t *testing.T) {
		start := Date(2025, time.December, 1)
		for d := 0; d < 120; d++ {
			fulfilled := AddDays(start, d)
			w := SalesPeriodForPayout(PayoutDateFromFulfillment(fulfilled))
			assert.True(t, w.Contains(fulfilled), "fulfilled %s not in %s..%s", fulfilled, w.Start, w.End)
		}
	})

	t.Run("aggregator week maps to the direct period one payout cycle back", func(t *testing.T) {
		sunday := Date(2026, time.February, 15)
		assert.Equal(t, Date(2026, time.February, 16), DirectPayoutForAggregatorWeek(sunday))
		assert.Equal(t, Date(2026, time.February, 9), DirectPeriodEndForAggregatorWeek(sunday))
		assert.Equal(t, AddDays(sunday, -6), DirectPeriodEndForAggregatorWeek(sunday))

		// week ending Sunday 9 Feb pays Monday 10 Feb for sales ending Monday 3 Feb
		assert.Equal(t, Date(2025, time.February, 3), DirectPeriodEndForAggregatorWeek(Date(2025, time.February, 9)))
	})
}

func TestRecommendedBACSDate(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday", Date(2026, time.February, 16), Date(2026, time.February, 20)},
		{"thursday", Date(2026, time.February, 19), Date(2026, time.February, 20)},
		{"friday rolls a week", Date(2026, time.February, 20), Date(2026, time.February, 27)},
		{"saturday", Date(2026, time.February, 21), Date(2026, time.February, 27)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendedBACSDate(tt.in))
		})
	}
}

func TestMonthPeriods(t *testing.T) {
	w, err := ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.February, 1), w.Start)
	assert.Equal(t, Date(2024, time.February, 29), w.End)

	_, err = ParseMonth("2024-13")
	assert.Error(t, err)
	_, err = ParseMonth("Feb 2024")
	assert.Error(t, err)

	last := LastFullMonth(time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-12", MonthKey(last.Start))
	assert.Equal(t, Date(2025, time.December, 31), last.End)
}

func TestFormatWeekRange(t *testing.T) {
	assert.Equal(t, "8 Jan – 14 Jan 2024", FormatWeekRange(Date(2024, time.January, 8), Date(2024, time.January, 14)))
	assert.Equal(t, "30 Dec 2024 – 5 Jan 2025", FormatWeekRange(Date(2024, time.December, 30), Date(2025, time.January, 5)))
}
