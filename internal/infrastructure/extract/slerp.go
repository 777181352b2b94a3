package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Slerp export column names
const (
	slerpFulfillmentColumn = "fulfillment date"
	slerpLocationColumn    = "location name"
	slerpGMVColumn         = "product total after discounts (gmv)"
	slerpStatusColumn      = "status"
	slerpFulfilledStatus   = "fulfilled"
)

// Slerp workbook errors
var (
	ErrNoSheets       = shared.NewDomainError(shared.ErrInvalidInput.Code, "No sheets in workbook")
	ErrEmptySheet     = shared.NewDomainError(shared.ErrInvalidInput.Code, "Sheet is empty")
	ErrMissingColumns = shared.NewDomainError(shared.ErrInvalidInput.Code, "Could not find required columns: Fulfillment date, Location name, Product total after discounts (GMV).")
)

// SlerpPayWeek is the fulfilled GMV of one location for one payout Monday
type SlerpPayWeek struct {
	Location     string          `json:"location"`
	PayoutDate   time.Time       `json:"payout_date"`
	WeekStart    time.Time       `json:"week_start"`
	WeekEnd      time.Time       `json:"week_end"`
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
}

// Week returns the Tuesday–Monday sales period
func (w SlerpPayWeek) Week() period.Week {
	return period.Week{Start: w.WeekStart, End: w.WeekEnd}
}

// SlerpParser reads Slerp completed-order exports
type SlerpParser struct {
	excluded map[string]struct{}
}

// NewSlerpParser creates a parser skipping the given locations (case-insensitive)
func NewSlerpParser(excludedLocations ...string) *SlerpParser {
	excluded := make(map[string]struct{}, len(excludedLocations))
	for _, l := range excludedLocations {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			excluded[l] = struct{}{}
		}
	}
	return &SlerpParser{excluded: excluded}
}

var gmvNoise = regexp.MustCompile(`[£,\s]`)

// Parse groups fulfilled orders by location and payout Monday, sorted by
// payout date then location.
func (p *SlerpParser) Parse(data []byte) ([]SlerpPayWeek, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, extractionFailed("Could not read the Slerp spreadsheet.", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, extractionFailed("Could not read the Slerp spreadsheet.", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	header := rows[0]
	iDate := slerpColumn(header, slerpFulfillmentColumn)
	iLocation := slerpColumn(header, slerpLocationColumn)
	iGMV := slerpColumn(header, slerpGMVColumn)
	iStatus := slerpColumn(header, slerpStatusColumn)
	if iDate < 0 || iLocation < 0 || iGMV < 0 {
		return nil, ErrMissingColumns
	}

	type groupKey struct {
		location string
		payout   time.Time
	}
	totals := make(map[groupKey]decimal.Decimal)

	for _, row := range rows[1:] {
		if iStatus >= 0 && strings.ToLower(strings.TrimSpace(cell(row, iStatus))) != slerpFulfilledStatus {
			continue
		}
		location := strings.TrimSpace(cell(row, iLocation))
		if _, skip := p.excluded[strings.ToLower(location)]; skip {
			continue
		}
		fulfilled, ok := slerpDate(cell(row, iDate))
		if !ok {
			continue
		}
		gmv := leadingGMV(cell(row, iGMV))
		if !gmv.IsPositive() {
			continue
		}
		key := groupKey{location: location, payout: period.PayoutDateFromFulfillment(fulfilled)}
		totals[key] = totals[key].Add(gmv)
	}

	out := make([]SlerpPayWeek, 0, len(totals))
	for key, gross := range totals {
		sales := period.SalesPeriodForPayout(key.payout)
		out = append(out, SlerpPayWeek{
			Location:     key.location,
			PayoutDate:   key.payout,
			WeekStart:    sales.Start,
			WeekEnd:      sales.End,
			GrossRevenue: franchise.Round2(gross),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PayoutDate.Equal(out[j].PayoutDate) {
			return out[i].PayoutDate.Before(out[j].PayoutDate)
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}

// slerpColumn finds a header by two-way containment after lowercasing and
// dropping trailing required-field asterisks.
func slerpColumn(header []string, want string) int {
	for i, h := range header {
		n := strings.TrimRight(strings.ToLower(strings.TrimSpace(h)), "*")
		if twoWayContains(n, want) {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// slerpDate reads D/M/YYYY text or an Excel date serial
func slerpDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return period.Day(t), true
	}
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return time.Time{}, false
	}
	// drop a trailing time of day
	year := strings.Fields(parts[2])
	if len(year) == 0 {
		return time.Time{}, false
	}
	return period.ParseFlexibleDate(fmt.Sprintf("%s/%s/%s", parts[0], parts[1], year[0]))
}

func leadingGMV(v string) decimal.Decimal {
	return leadingAmount(gmvNoise.ReplaceAllString(v, ""))
}
