package entities

// Paging defaults for event listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListFilter selects and pages the events visible to a principal.
type ListFilter struct {
	Title    string // Case-insensitive substring match (empty = all)
	Page     int    // 1-based; values below 1 are treated as 1
	PageSize int    // Defaults to DefaultPageSize, capped at MaxPageSize
}

// Normalize returns a copy of f with paging defaults applied.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset returns the number of rows skipped before the current page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Page is one page of events.
type Page struct {
	Results     []Event `json:"results"`
	Count       int     `json:"count"`
	NumPages    int     `json:"num_pages"`
	CurrentPage int     `json:"current_page"`
}

// NewPage builds a Page from a result slice and the total matching count.
func NewPage(results []Event, total int, f ListFilter) *Page {
	numPages := 0
	if total > 0 {
		numPages = (total + f.PageSize - 1) / f.PageSize
	}
	if results == nil {
		results = []Event{}
	}
	return &Page{
		Results:     results,
		Count:       total,
		NumPages:    numPages,
		CurrentPage: f.Page,
	}
}
