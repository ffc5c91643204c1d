package search

// Entry is one usable search result row. MD5 is the natural key the
// rest of the system (metadata, covers, downloads) keys off.
type Entry struct {
	Authors   string   `json:"authors"`
	Title     string   `json:"title"`
	MD5       string   `json:"md5"`
	Topic     string   `json:"topic"`
	Extension string   `json:"extension,omitempty"`
	Size      string   `json:"size"`
	Language  string   `json:"language,omitempty"`
	CoverURL  string   `json:"cover_url,omitempty"`
	Relevance *float64 `json:"relevance,omitempty"`
}

// Pagination is derived per query from the count query result.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	HasNextPage bool `json:"has_next_page"`
	TotalPages  int  `json:"total_pages"`
}

// NewPagination computes pagination from a row count. A zero count yields
// nil: the caller had no matching rows, so there is nothing to paginate.
// Total pages floors count/perPage but never drops below one page while
// rows exist, so an exactly-one-page result set reports total_pages == 1.
func NewPagination(page, rowCount, perPage int) *Pagination {
	if rowCount <= 0 {
		return nil
	}
	totalPages := rowCount / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	return &Pagination{
		CurrentPage: page,
		HasNextPage: page+1 < totalPages,
		TotalPages:  totalPages,
	}
}

// Response is the unit stored in cache and returned to the caller:
// one topic-and-query-specific page (or a merged dual-topic page).
type Response struct {
	Pagination *Pagination `json:"pagination"`
	Results    []Entry     `json:"results"`
}
