package models

import (
	"fmt"
	"strings"
)

// DefaultTopK is the number of results returned when a query does not set one.
const DefaultTopK = 5

// SearchQuery is a similarity query against one collection.
type SearchQuery struct {
	Query      string `json:"query"`
	Collection string `json:"collection"`
	TopK       int    `json:"top_k,omitempty"`
}

// Validate trims the query, requires a collection and clamps TopK to [1, maxTopK].
// An empty query text is valid and yields no results.
func (q *SearchQuery) Validate(maxTopK int) error {
	q.Query = strings.TrimSpace(q.Query)
	if strings.TrimSpace(q.Collection) == "" {
		return fmt.Errorf("collection cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}
