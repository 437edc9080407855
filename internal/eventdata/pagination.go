package eventdata

// Pagination defaults and bounds shared by every paged operation.
const (
	DefaultPageLimit = 25
	MaxPageLimit     = 100
)

// PageParams carries the caller's page selection. Page is 1-based.
type PageParams struct {
	Page  int
	Limit int
}

// Normalize clamps page parameters into their contract bounds: page >= 1,
// limit in 1..MaxPageLimit, defaulting to DefaultPageLimit when unset.
func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset returns the number of items preceding the requested page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination is the page metadata attached to every paged result.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// PageResult is one page of data plus its metadata.
type PageResult[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// PaginateSlice slices an already ordered, fully materialized result set.
// Slicing after ordering is a contract requirement: applying limit/offset
// before grouping corrupts the aggregate counts.
func PaginateSlice[T any](items []T, p PageParams) PageResult[T] {
	p = p.Normalize()

	total := len(items)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}

	// Past-the-end pages return an empty data array with total unchanged.
	data := make([]T, end-start)
	copy(data, items[start:end])

	return PageResult[T]{
		Data: data,
		Pagination: Pagination{
			Page:  p.Page,
			Limit: p.Limit,
			Total: total,
			Pages: (total + p.Limit - 1) / p.Limit,
		},
	}
}
