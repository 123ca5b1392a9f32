package main

import (
	"fmt"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/embedding"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/search"
	"github.com/hyperjump/folio/internal/storage"
	"github.com/hyperjump/folio/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Store    vector.Store
	Embedder *embedding.Service
	Registry storage.Registry
	Engine   *search.Engine
	Indexer  *indexer.Indexer
}

// Close releases every component that was created.
func (c *Components) Close() {
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// initializeComponents wires the store, embedding service, indexer and engine from cfg.
// The registry is opened only when withRegistry is set. The model is not loaded
// until the first embedding call.
func initializeComponents(cfg *config.Config, logger *zap.Logger, withRegistry bool, idxOpts ...indexer.IndexerOption) (*Components, error) {
	c := &Components{}

	distance, err := vector.ParseDistance(cfg.Collection.Distance)
	if err != nil {
		return nil, err
	}
	policy, err := indexer.ParsePolicy(cfg.Collection.Policy)
	if err != nil {
		return nil, err
	}
	strategy, err := indexer.ParseStrategy(cfg.Chunking.Strategy)
	if err != nil {
		return nil, err
	}

	store, err := vector.NewStore(cfg.Store.Type, vector.QdrantOptions{
		Host:    cfg.Qdrant.Host,
		Port:    cfg.Qdrant.Port,
		APIKey:  cfg.Qdrant.APIKey,
		UseTLS:  cfg.Qdrant.UseTLS,
		Timeout: cfg.Qdrant.Timeout(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	c.Store = store

	c.Embedder = embedding.NewService(
		embedding.NewLoader(cfg.Embedding, logger),
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithCacheSize(cfg.Embedding.CacheSize),
		embedding.WithLogger(logger),
	)

	if withRegistry {
		reg, err := storage.NewRegistry(cfg.Registry.Database, cfg.Registry.MaxEntries)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize upload registry: %w", err)
		}
		c.Registry = reg
	}

	chunker := indexer.NewChunker(
		indexer.WithStrategy(strategy),
		indexer.WithTargetSize(cfg.Chunking.TargetSize),
		indexer.WithOverlap(cfg.Chunking.Overlap()),
		indexer.WithMaxTokens(cfg.Chunking.MaxTokens),
		indexer.WithRemoveHeaders(cfg.Chunking.RemoveHeadersOrDefault()),
		indexer.WithWorkers(cfg.Chunking.Workers),
	)
	collections := indexer.NewCollections(store,
		indexer.WithPolicy(policy),
		indexer.WithDistance(distance),
		indexer.WithUpsertBatch(cfg.Collection.UpsertBatch),
		indexer.WithCollectionLogger(logger),
	)
	opts := append([]indexer.IndexerOption{
		indexer.WithLogger(logger),
		indexer.WithBatchSize(cfg.Embedding.BatchSize),
	}, idxOpts...)
	c.Indexer = indexer.NewIndexer(chunker, c.Embedder, collections, opts...)
	c.Engine = search.NewEngine(store, c.Embedder,
		search.WithMaxTopK(cfg.Search.MaxTopK),
		search.WithLogger(logger),
	)
	return c, nil
}
