package db

// KNNQuery is the input for vector similarity search. Filter, when set, is a
// raw FT pre-filter expression (e.g. a tag match); empty means match-all.
type KNNQuery struct {
	IndexName    string
	Filter       string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search. Distance is the
// backend's raw vector distance; smaller is closer.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
