package period

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	isoPrefix    = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	slashedYMD   = regexp.MustCompile(`^(\d{4})[/.](\d{1,2})[/.](\d{1,2})$`)
	dayFirst     = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4}|\d{2})$`)
	compact      = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	ordinal      = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	weekdayStart = regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*,?\s+`)
	spaces       = regexp.MustCompile(`\s+`)
)

// naturalLayouts are tried in order once numeric forms have been ruled out.
var naturalLayouts = []string{
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan, 2006",
	"2 January, 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"2 Jan 06",
}

// ParseFlexibleDate parses the date shapes found on statements and exports.
// Numeric forms are always read day-first (UK convention): "03/04/2024" is
// 3 April. Components are range-checked; ok is false when nothing fits.
func ParseFlexibleDate(s string) (time.Time, bool) {
	str := strings.TrimSpace(s)
	if str == "" {
		return time.Time{}, false
	}

	if m := isoPrefix.FindStringSubmatch(str); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := slashedYMD.FindStringSubmatch(str); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := dayFirst.FindStringSubmatch(str); m != nil {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return build(year, m[2], m[1])
	}
	if m := compact.FindStringSubmatch(str); m != nil {
		return build(m[1], m[2], m[3])
	}

	natural := weekdayStart.ReplaceAllString(str, "")
	natural = ordinal.ReplaceAllString(natural, "$1")
	natural = spaces.ReplaceAllString(natural, " ")
	natural = cases.Title(language.English).String(natural)
	for _, layout := range naturalLayouts {
		if t, err := time.Parse(layout, natural); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}

// build validates numeric components and rejects rollovers such as 31/02
func build(y, m, d string) (time.Time, bool) {
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(m)
	day, err3 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 1900 || year > 2999 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := Date(year, time.Month(month), day)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
