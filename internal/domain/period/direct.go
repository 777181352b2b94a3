package period

import "time"

// payoutLag is the fixed gap between the Monday closing a direct-platform
// sales period and the Monday that period is paid out.
const payoutLag = 7

// salesPeriodLength covers Tuesday through Monday inclusive.
const salesPeriodLength = 7

// nextMonday returns t if it is a Monday, otherwise the following Monday
func nextMonday(t time.Time) time.Time {
	d := Day(t)
	days := (int(time.Monday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, days)
}

// SalesPeriodEndFromFulfillment returns the Monday that closes the Tuesday–Monday
// sales period containing the fulfillment date.
func SalesPeriodEndFromFulfillment(fulfilled time.Time) time.Time {
	return nextMonday(fulfilled)
}

// PayoutDateFromFulfillment returns the Monday on which sales fulfilled on the
// given date are paid out: one cycle after the Monday closing their sales period.
func PayoutDateFromFulfillment(fulfilled time.Time) time.Time {
	return AddDays(SalesPeriodEndFromFulfillment(fulfilled), payoutLag)
}

// SalesPeriodForPayout returns the Tuesday–Monday sales period paid on the given
// payout Monday: [payout−13, payout−7].
func SalesPeriodForPayout(payout time.Time) Week {
	end := AddDays(payout, -payoutLag)
	return Week{Start: AddDays(end, -(salesPeriodLength - 1)), End: end}
}

// DirectPayoutForAggregatorWeek returns the direct-platform payout Monday that
// follows an aggregator invoice week ending on the given Sunday.
func DirectPayoutForAggregatorWeek(aggregatorWeekEnd time.Time) time.Time {
	return AddDays(aggregatorWeekEnd, 1)
}

// DirectPeriodEndForAggregatorWeek returns the sales-period end stored on the
// direct-platform reports shown alongside an aggregator invoice week.
// For a week ending Sunday 15 Feb the payout is Monday 16 Feb and the sales
// period ends Monday 9 Feb.
func DirectPeriodEndForAggregatorWeek(aggregatorWeekEnd time.Time) time.Time {
	return SalesPeriodForPayout(DirectPayoutForAggregatorWeek(aggregatorWeekEnd)).End
}

// RecommendedBACSDate returns the collection date suggested for a direct-debit
// invoice: the next Friday strictly after the invoice date.
func RecommendedBACSDate(invoiceDate time.Time) time.Time {
	d := Day(invoiceDate)
	days := (int(time.Friday) - int(d.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return d.AddDate(0, 0, days)
}
