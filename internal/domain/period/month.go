package period

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// MonthLayout is the yyyy-MM selector accepted for monthly billing
const MonthLayout = "2006-01"

var monthPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// MonthPeriod returns the first and last day of a calendar month
func MonthPeriod(year int, month time.Month) Week {
	start := Date(year, month, 1)
	return Week{Start: start, End: start.AddDate(0, 1, -1)}
}

// LastFullMonth returns the most recent month that has fully elapsed
func LastFullMonth(now time.Time) Week {
	first := Date(now.Year(), now.Month(), 1)
	prev := first.AddDate(0, -1, 0)
	return MonthPeriod(prev.Year(), prev.Month())
}

// ParseMonth parses a yyyy-MM selector
func ParseMonth(s string) (Week, error) {
	m := monthPattern.FindStringSubmatch(s)
	if m == nil {
		return Week{}, fmt.Errorf("month must be yyyy-MM, got %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Week{}, fmt.Errorf("month out of range in %q", s)
	}
	return MonthPeriod(year, time.Month(month)), nil
}

// MonthKey formats a period start as yyyy-MM
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}
