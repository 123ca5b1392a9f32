package tui

import (
	"context"

	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/search"
)

// Backend is the subset of folio the REPL drives.
type Backend interface {
	IndexFile(ctx context.Context, path, collection string) (*indexer.Result, error)
	Query(ctx context.Context, collection, query string, topK int) ([]models.SearchResult, error)
	Collections(ctx context.Context) ([]string, error)
}

// Service adapts an indexer and a search engine to Backend.
type Service struct {
	Indexer *indexer.Indexer
	Engine  *search.Engine
}

// IndexFile ingests path into collection.
func (s *Service) IndexFile(ctx context.Context, path, collection string) (*indexer.Result, error) {
	return s.Indexer.IndexFile(ctx, path, collection)
}

// Query searches collection.
func (s *Service) Query(ctx context.Context, collection, query string, topK int) ([]models.SearchResult, error) {
	return s.Engine.Query(ctx, collection, query, topK)
}

// Collections lists collection names.
func (s *Service) Collections(ctx context.Context) ([]string, error) {
	return s.Indexer.Collections().List(ctx)
}
