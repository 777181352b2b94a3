package shared

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Filter is a list query: page window, requested ordering and equality
// filters keyed by column ("status", "brand", "platform") plus "search".
// Repositories whitelist OrderBy and ignore keys they do not know.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Filters  map[string]string
}

// DefaultFilter is the first page with no ordering preference, leaving each
// listing to apply its own natural order.
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: defaultPageSize, Filters: map[string]string{}}
}

// Get returns the value filtered on for key, or "" when unset
func (f Filter) Get(key string) string {
	return f.Filters[key]
}

// Offset returns the number of rows before the requested page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the page size clamped to (0, maxPageSize]
func (f Filter) Limit() int {
	switch {
	case f.PageSize <= 0:
		return defaultPageSize
	case f.PageSize > maxPageSize:
		return maxPageSize
	default:
		return f.PageSize
	}
}

// Paginated is one page of a listing
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated wraps items with the page counts derived from total
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	if pageSize <= 0 {
		pageSize = 1
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}
