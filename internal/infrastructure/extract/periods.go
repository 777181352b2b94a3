package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hungrytum/franchise-billing/internal/domain/period"
)

const (
	dmy      = `\d{1,2}[\/\-]\d{1,2}[\/\-]\d{2,4}`
	dmy4     = `\d{1,2}[\/\-]\d{1,2}[\/\-]\d{4}`
	ymd      = `\d{4}[\/\-]\d{2}[\/\-]\d{2}`
	natural  = `[\d ]+\w+\s+\d{4}`
	rangeDMY = `(` + dmy4 + `)\s*[-–]\s*` + dmy4
)

// Labelled date phrases found on PDF statements, most specific first
var textPeriodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)week\s+ending\s+(` + dmy + `|` + ymd + `|` + natural + `)`),
	regexp.MustCompile(`(?i)period\s+ending\s+(` + dmy + `|` + ymd + `|` + natural + `)`),
	regexp.MustCompile(`(?i)statement\s+period[:\s]+(` + dmy + `)`),
	regexp.MustCompile(`(?i)for\s+the\s+period[:\s]+(` + dmy + `)`),
	regexp.MustCompile(`(?i)(?:week|period)\s+end[:\s]+(` + dmy + `)`),
	regexp.MustCompile(rangeDMY),
	regexp.MustCompile(`(?i)statement\s+date[:\s]+(` + dmy4 + `)`),
	regexp.MustCompile(`(?i)payment\s+date[:\s]+(` + dmy4 + `)`),
	regexp.MustCompile(`(?i)billing\s+period[:\s]+(` + dmy4 + `)`),
	regexp.MustCompile(`(?i)statement\s+for[:\s]+(` + dmy4 + `)`),
	regexp.MustCompile(`(?i)(?:week|period)\s+of[:\s]+(` + dmy4 + `)`),
}

// Labelled date phrases found in HTML statements
var htmlPeriodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:week|period)\s+ending\s+(` + dmy + `|` + ymd + `)`),
	regexp.MustCompile(`(?i)(?:statement|payment)\s+(?:date|period)[:\s]+(` + dmy4 + `)`),
	regexp.MustCompile(`(?i)for\s+(?:the\s+)?period[:\s]+(` + dmy4 + `)`),
	regexp.MustCompile(`(?i)(?:week|period)\s+of[:\s]+(` + dmy4 + `)`),
	regexp.MustCompile(rangeDMY),
}

var (
	standaloneDate = regexp.MustCompile(`\b(` + dmy4 + `)\b`)
	filenameDate   = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)
)

// textHeadLength limits the standalone-date search in extracted PDF text to
// the top of the document, where the statement date usually sits.
const textHeadLength = 2000

// PeriodFromText infers a statement date from extracted PDF text
func PeriodFromText(text string) (time.Time, bool) {
	if t, ok := firstLabelledDate(text, textPeriodPatterns); ok {
		return t, true
	}
	head := text
	if len(head) > textHeadLength {
		head = head[:textHeadLength]
	}
	return standalone(head)
}

// PeriodFromHTMLText infers a statement date from stripped HTML text
func PeriodFromHTMLText(text string) (time.Time, bool) {
	if t, ok := firstLabelledDate(text, htmlPeriodPatterns); ok {
		return t, true
	}
	return standalone(text)
}

// PeriodFromFilename reads a YYYYMMDD run embedded in a file name, as in
// "ACME_LIMITED_20260202_statement.pdf".
func PeriodFromFilename(name string) (time.Time, bool) {
	m := filenameDate.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	return period.ParseFlexibleDate(fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
}

func firstLabelledDate(text string, patterns []*regexp.Regexp) (time.Time, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil || strings.TrimSpace(m[1]) == "" {
			continue
		}
		if t, ok := period.ParseFlexibleDate(strings.TrimSpace(m[1])); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func standalone(text string) (time.Time, bool) {
	m := standaloneDate.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	return period.ParseFlexibleDate(m[1])
}
