package watcher

import (
	"context"
	"path/filepath"

	"github.com/hyperjump/folio/internal/fileid"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/storage"
	"go.uber.org/zap"
)

// IngestHandler indexes each settled file into the collection named by
// fileid.CollectionName and records it in the upload registry under the same id.
// A changed file replaces its previous collection.
type IngestHandler struct {
	indexer  *indexer.Indexer
	registry storage.Registry
	logger   *zap.Logger
}

// NewIngestHandler creates a handler backed by idx and registry.
func NewIngestHandler(idx *indexer.Indexer, registry storage.Registry, logger *zap.Logger) *IngestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{indexer: idx, registry: registry, logger: logger}
}

// Changed re-indexes path.
func (h *IngestHandler) Changed(ctx context.Context, path string) {
	collection := fileid.CollectionName(path)
	log := h.logger.With(zap.String("path", path), zap.String("collection", collection))

	if err := h.registry.Put(ctx, &models.Upload{
		ID:         collection,
		Collection: collection,
		Filename:   filepath.Base(path),
		Status:     models.UploadPending,
	}); err != nil {
		log.Error("registering watched file failed", zap.Error(err))
		return
	}
	if err := h.drop(ctx, collection); err != nil {
		log.Error("dropping previous collection failed", zap.Error(err))
		_ = h.registry.Complete(context.WithoutCancel(ctx), collection, 0, err)
		return
	}

	res, err := h.indexer.IndexFile(ctx, path, collection)
	chunks := 0
	if err != nil {
		log.Error("indexing watched file failed", zap.Error(err))
	} else {
		chunks = res.Chunks
		log.Info("indexed watched file", zap.Int("pages", res.Pages), zap.Int("chunks", res.Chunks))
	}
	if err := h.registry.Complete(context.WithoutCancel(ctx), collection, chunks, err); err != nil {
		log.Error("recording watched file status failed", zap.Error(err))
	}
}

// Removed drops the collection and registry entry of path.
func (h *IngestHandler) Removed(ctx context.Context, path string) {
	collection := fileid.CollectionName(path)
	log := h.logger.With(zap.String("path", path), zap.String("collection", collection))
	if err := h.drop(ctx, collection); err != nil {
		log.Error("removing collection failed", zap.Error(err))
		return
	}
	if err := h.registry.Delete(ctx, collection); err != nil {
		log.Error("removing registry entry failed", zap.Error(err))
		return
	}
	log.Info("removed watched file")
}

func (h *IngestHandler) drop(ctx context.Context, collection string) error {
	cols := h.indexer.Collections()
	exists, err := cols.Exists(ctx, collection)
	if err != nil || !exists {
		return err
	}
	return cols.Delete(ctx, collection)
}
