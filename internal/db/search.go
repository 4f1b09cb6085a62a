package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	SessionTag   string // optional @session_id pre-filter, applied before KNN ranking
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for a sorted, paginated FT.SEARCH listing.
type ListQuery struct {
	IndexName    string
	SessionTag   string // optional @session_id filter; empty = match all
	SortBy       string // numeric field to sort ascending by; empty = no sort
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
