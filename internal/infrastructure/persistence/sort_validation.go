package persistence

import (
	"strings"
)

const (
	sortAsc  = "ASC"
	sortDesc = "DESC"
)

// sortColumns whitelists the columns a listing may be ordered by. Each
// column carries the direction used when the caller does not pick one:
// names read A to Z, dates and amounts newest or largest first.
type sortColumns struct {
	natural  map[string]string
	fallback string
}

// orderClause returns a safe "column DIR" for user-supplied field and dir.
// Unknown columns fall back, and any dir other than asc/desc means the
// column's natural direction.
func (s sortColumns) orderClause(field, dir string) string {
	col := strings.TrimSpace(field)
	if _, ok := s.natural[col]; !ok {
		col = s.fallback
	}
	switch d := strings.ToUpper(strings.TrimSpace(dir)); d {
	case sortAsc, sortDesc:
		return col + " " + d
	default:
		return col + " " + s.natural[col]
	}
}

var franchiseeSort = sortColumns{
	fallback: "name",
	natural: map[string]string{
		"id":            sortAsc,
		"name":          sortAsc,
		"location":      sortAsc,
		"payment_model": sortAsc,
		"created_at":    sortDesc,
		"updated_at":    sortDesc,
	},
}

var revenueReportSort = sortColumns{
	fallback: "period_start",
	natural: map[string]string{
		"id":            sortAsc,
		"platform":      sortAsc,
		"brand":         sortAsc,
		"period_start":  sortDesc,
		"period_end":    sortDesc,
		"gross_revenue": sortDesc,
		"created_at":    sortDesc,
		"updated_at":    sortDesc,
	},
}

var invoiceSort = sortColumns{
	fallback: "period_start",
	natural: map[string]string{
		"id":                  sortAsc,
		"status":              sortAsc,
		"invoice_number":      sortDesc,
		"period_start":        sortDesc,
		"period_end":          sortDesc,
		"fee_amount":          sortDesc,
		"total_gross_revenue": sortDesc,
		"created_at":          sortDesc,
		"updated_at":          sortDesc,
	},
}
