package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/folio/internal/embedding"
	"github.com/hyperjump/folio/internal/fileid"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/storage"
	"github.com/hyperjump/folio/internal/vector"
	"go.uber.org/zap"
)

func newIngestHandler(t *testing.T) (*IngestHandler, *vector.MemoryStore, *storage.MemoryRegistry) {
	t.Helper()
	store := vector.NewMemoryStore()
	svc := embedding.NewStaticService(embedding.NewMockEmbedder(8))
	t.Cleanup(func() { _ = svc.Close() })
	idx := indexer.NewIndexer(indexer.NewChunker(), svc, indexer.NewCollections(store))
	reg := storage.NewMemoryRegistry(0)
	return NewIngestHandler(idx, reg, zap.NewNop()), store, reg
}

func TestIngestHandler_ChangedAndRemoved(t *testing.T) {
	h, store, reg := newIngestHandler(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "Field Notes.txt")
	writeFile(t, path, "Otters live near rivers. They eat fish.")
	collection := fileid.CollectionName(path)

	h.Changed(ctx, path)
	u, err := reg.Get(ctx, collection)
	if err != nil {
		t.Fatal(err)
	}
	if u.Status != models.UploadReady || u.Filename != "Field Notes.txt" || u.Chunks == 0 {
		t.Fatalf("upload = %+v", u)
	}
	first := store.Size(collection)
	if first == 0 {
		t.Fatal("collection should hold points")
	}

	// a second change replaces the collection instead of failing on it
	writeFile(t, path, "Otters live near rivers. They eat fish. They also sleep a lot.")
	h.Changed(ctx, path)
	if u, _ = reg.Get(ctx, collection); u.Status != models.UploadReady {
		t.Fatalf("re-index status = %s (%s)", u.Status, u.Error)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	h.Removed(ctx, path)
	if store.Size(collection) != 0 {
		t.Error("collection should be dropped")
	}
	if _, err := reg.Get(ctx, collection); !errors.Is(err, storage.ErrUnknownUpload) {
		t.Errorf("registry entry should be gone, err = %v", err)
	}
}

func TestIngestHandler_failure(t *testing.T) {
	h, _, reg := newIngestHandler(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "empty.txt")
	writeFile(t, path, "  ")

	h.Changed(ctx, path)
	u, err := reg.Get(ctx, fileid.CollectionName(path))
	if err != nil {
		t.Fatal(err)
	}
	if u.Status != models.UploadFailed || u.Error == "" {
		t.Errorf("upload = %+v, want failed", u)
	}
}

type stallingEmbedder struct{}

func (stallingEmbedder) EmbedBatch(ctx context.Context, _ []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (stallingEmbedder) Dimensions() int      { return 8 }
func (stallingEmbedder) ConcurrentSafe() bool { return true }
func (stallingEmbedder) Close() error         { return nil }

func TestIngestHandler_ChangedRecordsCancellation(t *testing.T) {
	reg, err := storage.NewSQLiteRegistry(filepath.Join(t.TempDir(), "uploads.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	svc := embedding.NewStaticService(stallingEmbedder{})
	defer svc.Close()
	idx := indexer.NewIndexer(indexer.NewChunker(), svc, indexer.NewCollections(vector.NewMemoryStore()))
	h := NewIngestHandler(idx, reg, zap.NewNop())

	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, "Otters live near rivers. They eat fish.")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	h.Changed(ctx, path)

	u, err := reg.Get(context.Background(), fileid.CollectionName(path))
	if err != nil {
		t.Fatal(err)
	}
	if u.Status != models.UploadFailed || u.Error == "" {
		t.Errorf("upload after cancelled ingestion = %+v, want failed", u)
	}
}
