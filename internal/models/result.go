package models

// SearchResult is a single retrieved chunk.
type SearchResult struct {
	Text  string  `json:"text"`
	Page  int64   `json:"page"`
	Score float32 `json:"score"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	Query      string         `json:"query"`
	Collection string         `json:"collection"`
	QueryTime  int64          `json:"query_time_ms"`
}
