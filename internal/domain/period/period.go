// Package period maps dates onto the billing periods used by the platforms:
// Monday–Sunday weeks for the aggregators, Tuesday–Monday sales periods paid
// the following Monday for the direct-order platform, and calendar months for
// fixed monthly fees.
package period

import (
	"fmt"
	"time"
)

// DateLayout is the canonical storage format for period boundaries
const DateLayout = "2006-01-02"

// Day is one calendar day as the Monday–Sunday arithmetic sees it.
// Values are normalised to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a normalised day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a normalised day
func AddDays(t time.Time, days int) time.Time {
	return Day(t).AddDate(0, 0, days)
}

// Week is an inclusive [Start, End] range of days
type Week struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range (inclusive)
func (w Week) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// StartString returns Start as yyyy-MM-dd
func (w Week) StartString() string { return w.Start.Format(DateLayout) }

// EndString returns End as yyyy-MM-dd
func (w Week) EndString() string { return w.End.Format(DateLayout) }

// String renders the range as "1 Jan – 7 Jan 2024"
func (w Week) String() string {
	return FormatWeekRange(w.Start, w.End)
}

// ResolveCalendarWeek returns the Monday–Sunday week containing t
func ResolveCalendarWeek(t time.Time) Week {
	d := Day(t)
	// Weekday: Sunday=0. Days since Monday: Mon=0 … Sun=6.
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDate(0, 0, -offset)
	return Week{Start: start, End: start.AddDate(0, 0, 6)}
}

// NormalizeWeek snaps an arbitrary start date onto its containing Monday–Sunday week
func NormalizeWeek(start string) (Week, error) {
	t, err := time.Parse(DateLayout, start)
	if err != nil {
		return Week{}, fmt.Errorf("invalid week start %q: %w", start, err)
	}
	return ResolveCalendarWeek(t), nil
}

// FormatWeekRange renders a period for display on statements and invoices
func FormatWeekRange(start, end time.Time) string {
	if start.Year() == end.Year() {
		return fmt.Sprintf("%s – %s", start.Format("2 Jan"), end.Format("2 Jan 2006"))
	}
	return fmt.Sprintf("%s – %s", start.Format("2 Jan 2006"), end.Format("2 Jan 2006"))
}
