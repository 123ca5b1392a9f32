package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hyperjump/folio/internal/extract"
	"github.com/hyperjump/folio/internal/models"
	"go.uber.org/zap"
)

// Embedder is the embedding stage as seen by the pipeline.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
	Dimension(ctx context.Context) (int, error)
}

// ProgressFunc is called as work completes within a stage.
type ProgressFunc func(stage Stage, done, total int)

// Result summarizes a successful ingestion.
type Result struct {
	Collection   string
	Pages        int
	SkippedPages int
	Chunks       int
	Duration     time.Duration
}

// Indexer runs the ingestion pipeline: extract, chunk, create the collection,
// embed and upsert.
type Indexer struct {
	chunker     *Chunker
	embedder    Embedder
	collections *Collections
	extractor   *extract.Extractor
	batchSize   int
	progress    ProgressFunc
	logger      *zap.Logger // optional; when set, logs pipeline events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for pipeline events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) IndexerOption {
	return func(idx *Indexer) { idx.progress = fn }
}

// WithBatchSize sets how many chunks are embedded per model call.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithExtractor sets the extractor used by IndexFile. When unset, files are read as plain text.
func WithExtractor(e *extract.Extractor) IndexerOption {
	return func(idx *Indexer) { idx.extractor = e }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(chunker *Chunker, embedder Embedder, collections *Collections, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		chunker:     chunker,
		embedder:    embedder,
		collections: collections,
		batchSize:   32,
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.extractor == nil {
		idx.extractor = extract.NewExtractor()
	}
	return idx
}

// Chunker returns the chunker used by the pipeline.
func (idx *Indexer) Chunker() *Chunker { return idx.chunker }

// Collections returns the collection client used by the pipeline.
func (idx *Indexer) Collections() *Collections { return idx.collections }

// IndexFile extracts the file at path page by page and ingests it into collection.
// Unreadable pages are skipped and logged.
func (idx *Indexer) IndexFile(ctx context.Context, path, collection string) (*Result, error) {
	if idx.logger != nil {
		idx.logger.Debug("indexer indexing file", zap.String("path", path), zap.String("collection", collection))
	}
	pages, skipped, err := idx.extractor.ExtractPages(path)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Collection: collection, Err: err}
	}
	for _, pe := range skipped {
		if idx.logger != nil {
			idx.logger.Warn("skipping unreadable page",
				zap.String("file", filepath.Base(path)),
				zap.Uint32("page", pe.Page),
				zap.Error(pe.Err),
			)
		}
	}
	if len(pages) == 0 {
		return nil, &StageError{Stage: StageExtract, Collection: collection, Err: ErrNoPages}
	}
	res, err := idx.Ingest(ctx, collection, pages)
	if err != nil {
		return nil, err
	}
	res.SkippedPages = len(skipped)
	return res, nil
}

// Ingest chunks pages, creates the collection, embeds the chunks and upserts
// them. If a stage after collection creation fails the collection is dropped
// again; StageError.Partial reports a failed rollback.
func (idx *Indexer) Ingest(ctx context.Context, collection string, pages []models.Page) (*Result, error) {
	start := time.Now()

	chunks, err := idx.chunker.ChunkPages(ctx, pages)
	if err != nil {
		return nil, &StageError{Stage: StageChunk, Collection: collection, Err: err}
	}
	if len(chunks) == 0 {
		return nil, &StageError{Stage: StageChunk, Collection: collection, Err: ErrNoChunks}
	}
	idx.report(StageChunk, len(pages), len(pages))

	dim, err := idx.embedder.Dimension(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageEmbed, Collection: collection, Err: err}
	}
	if err := idx.collections.Create(ctx, collection, uint64(dim)); err != nil {
		return nil, &StageError{Stage: StageCollection, Collection: collection, Err: err}
	}

	vectors, err := idx.embed(ctx, chunks)
	if err != nil {
		return nil, idx.rollback(ctx, StageEmbed, collection, err)
	}
	if err := idx.collections.Upsert(ctx, collection, chunks, vectors); err != nil {
		return nil, idx.rollback(ctx, StageUpsert, collection, err)
	}
	idx.report(StageUpsert, len(chunks), len(chunks))

	res := &Result{
		Collection: collection,
		Pages:      len(pages),
		Chunks:     len(chunks),
		Duration:   time.Since(start),
	}
	if idx.logger != nil {
		idx.logger.Info("document indexed",
			zap.String("collection", collection),
			zap.Int("pages", res.Pages),
			zap.Int("chunks", res.Chunks),
			zap.Duration("took", res.Duration),
		)
	}
	return res, nil
}

func (idx *Indexer) embed(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += idx.batchSize {
		end := min(start+idx.batchSize, len(texts))
		batch, err := idx.embedder.EmbedBatch(ctx, texts[start:end], idx.batchSize)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
		idx.report(StageEmbed, end, len(texts))
	}
	return vectors, nil
}

func (idx *Indexer) rollback(ctx context.Context, stage Stage, collection string, cause error) error {
	se := &StageError{Stage: stage, Collection: collection, Err: cause}
	if err := idx.collections.Delete(context.WithoutCancel(ctx), collection); err != nil {
		se.Partial = true
		if idx.logger != nil {
			idx.logger.Error("rollback failed", zap.String("collection", collection), zap.Error(err))
		}
		return se
	}
	if idx.logger != nil {
		idx.logger.Debug("rolled back collection", zap.String("collection", collection), zap.String("stage", string(stage)))
	}
	return se
}

func (idx *Indexer) report(stage Stage, done, total int) {
	if idx.progress != nil {
		idx.progress(stage, done, total)
	}
}

// IsStage reports whether err is a StageError for stage.
func IsStage(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}

// FormatResult renders a one-line summary of res.
func FormatResult(res *Result) string {
	return fmt.Sprintf("indexed %d chunks from %d pages into %q in %s",
		res.Chunks, res.Pages, res.Collection, res.Duration.Round(time.Millisecond))
}
