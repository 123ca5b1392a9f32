// Package search answers similarity queries against a vector collection.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/vector"
	"go.uber.org/zap"
)

// defaultPage is reported when a hit carries no usable page number.
const defaultPage = 1

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Engine runs similarity search over one collection at a time.
type Engine struct {
	store    vector.Store
	embedder QueryEmbedder
	maxTopK  int
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxTopK caps the number of results a query may request.
func WithMaxTopK(n int) EngineOption {
	return func(e *Engine) { e.maxTopK = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(store vector.Store, embedder QueryEmbedder, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query returns up to topK chunks of collection most similar to query. A blank
// query returns an empty result without embedding or contacting the store.
// topK <= 0 means models.DefaultTopK.
func (e *Engine) Query(ctx context.Context, collection, query string, topK int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SearchResult{}, nil
	}
	if topK <= 0 {
		topK = models.DefaultTopK
	}
	if e.maxTopK > 0 && topK > e.maxTopK {
		topK = e.maxTopK
	}

	vec, err := e.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	hits, err := e.store.Search(ctx, collection, vec, uint64(topK))
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, decodeHit(h))
	}
	e.logger.Debug("query answered",
		zap.String("collection", collection),
		zap.Int("top_k", topK),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Search validates q, runs Query and wraps the results with timing.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := q.Validate(e.maxTopK); err != nil {
		return nil, err
	}
	results, err := e.Query(ctx, q.Collection, q.Query, q.TopK)
	if err != nil {
		return nil, err
	}
	return &models.SearchResponse{
		Results:    results,
		Query:      q.Query,
		Collection: q.Collection,
		QueryTime:  time.Since(start).Milliseconds(),
	}, nil
}

// decodeHit reads the text and page payload fields. The page may be stored as an
// integer, a double or a numeric string; anything else falls back to page 1.
func decodeHit(h vector.ScoredPoint) models.SearchResult {
	res := models.SearchResult{Score: h.Score, Page: defaultPage}
	if text, ok := h.Payload[indexer.PayloadText].AsString(); ok {
		res.Text = text
	}
	if page, ok := h.Payload[indexer.PayloadPage].AsInt64(); ok {
		res.Page = page
	}
	return res
}
