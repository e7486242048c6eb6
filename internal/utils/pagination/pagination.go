package pagination

// Pagination holds page parameters bound from a query string.
// Zero values fall back to the defaults.
type Pagination struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// Default values.
const (
	DefaultPage     = 1
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// New creates pagination with default values.
func New() *Pagination {
	return &Pagination{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}
}

// Offset returns the number of items before the current page.
func (p *Pagination) Offset() int {
	page := p.Page
	if page < 1 {
		page = DefaultPage
	}
	return (page - 1) * p.Limit()
}

// Limit returns the effective page size.
func (p *Pagination) Limit() int {
	if p.PageSize < 1 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// TotalPages calculates the total number of pages.
func (p *Pagination) TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	size := int64(p.Limit())
	return int((total + size - 1) / size)
}

// PageInfo represents pagination info in API responses.
type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Info returns pagination info for API responses.
func (p *Pagination) Info(total int64) PageInfo {
	page := p.Page
	if page < 1 {
		page = DefaultPage
	}
	return PageInfo{
		Page:       page,
		PageSize:   p.Limit(),
		Total:      total,
		TotalPages: p.TotalPages(total),
	}
}

// Slice returns the window of items for the current page. Pages past the
// end yield an empty, non-nil slice.
func Slice[T any](items []T, p *Pagination) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
