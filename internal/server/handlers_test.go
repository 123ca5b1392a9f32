package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/embedding"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/search"
	"github.com/hyperjump/folio/internal/storage"
	"github.com/hyperjump/folio/internal/vector"
	"go.uber.org/zap"
)

type testEnv struct {
	srv      *Server
	handler  http.Handler
	registry *storage.MemoryRegistry
	store    *vector.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := vector.NewMemoryStore()
	svc := embedding.NewStaticService(embedding.NewMockEmbedder(8))
	t.Cleanup(func() { _ = svc.Close() })
	logger := zap.NewNop()

	idx := indexer.NewIndexer(indexer.NewChunker(), svc, indexer.NewCollections(store), indexer.WithLogger(logger))
	engine := search.NewEngine(store, svc, search.WithLogger(logger))
	registry := storage.NewMemoryRegistry(0)
	cfg := &config.ServerConfig{UploadDir: t.TempDir(), MaxUploadBytes: 1 << 20}

	srv := NewServer(engine, idx, registry, cfg, logger)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return &testEnv{srv: srv, handler: srv.Handler(), registry: registry, store: store}
}

func (e *testEnv) do(t *testing.T, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func uploadRequest(t *testing.T, path, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, path, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return out
}

// upload posts a document and waits for its background ingestion.
func (e *testEnv) upload(t *testing.T, path, field, filename, content string) uploadResponse {
	t.Helper()
	w := e.do(t, uploadRequest(t, path, field, filename, content))
	if w.Code != http.StatusAccepted {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[uploadResponse](t, w)
	e.srv.ingests.Wait()
	return resp
}

const riverText = "Rivers carry water to the sea. Mountains are tall and cold.\fThe second page is about deserts."

func TestUploadAndSearch(t *testing.T) {
	for _, path := range []string{"/upload", "/api/v1/uploads"} {
		t.Run(path, func(t *testing.T) {
			env := newTestEnv(t)
			up := env.upload(t, path, "pdf", "notes.txt", riverText)
			if up.ID == "" || up.Collection != up.ID || up.Status != models.UploadPending {
				t.Fatalf("upload response = %+v", up)
			}

			w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+up.ID, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("get upload status = %d", w.Code)
			}
			got := decode[models.Upload](t, w)
			if got.Status != models.UploadReady || got.Chunks == 0 {
				t.Fatalf("upload after ingest = %+v", got)
			}

			w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/search?q=rivers&id="+up.ID+"&k=1", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("search status = %d, body %s", w.Code, w.Body.String())
			}
			res := decode[searchResponse](t, w)
			if len(res.Results) != 1 {
				t.Fatalf("results = %+v, want 1", res.Results)
			}
			if res.Results[0].Text == "" || res.Results[0].Page < 1 {
				t.Errorf("result = %+v", res.Results[0])
			}
		})
	}
}

func TestUpload_fileField(t *testing.T) {
	env := newTestEnv(t)
	up := env.upload(t, "/upload", "file", "notes.md", "Some markdown text to index.")
	u, err := env.registry.Get(context.Background(), up.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u.Status != models.UploadReady || u.Filename != "notes.md" {
		t.Errorf("upload = %+v", u)
	}
}

func TestUpload_rejects(t *testing.T) {
	env := newTestEnv(t)
	env.srv.config.MaxUploadBytes = 2048

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"unsupported type", uploadRequest(t, "/upload", "pdf", "image.png", "png"), http.StatusUnsupportedMediaType},
		{"no extension", uploadRequest(t, "/upload", "pdf", "README", "plain words"), http.StatusUnsupportedMediaType},
		{"wrong field", uploadRequest(t, "/upload", "document", "a.txt", "text"), http.StatusBadRequest},
		{"too large", uploadRequest(t, "/upload", "pdf", "big.txt", strings.Repeat("x", 16384)), http.StatusRequestEntityTooLarge},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("plain")), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, tt.req); w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
	if env.registry.Len() != 0 {
		t.Errorf("rejected uploads were registered: %d", env.registry.Len())
	}
}

func TestUpload_failedIngestion(t *testing.T) {
	env := newTestEnv(t)
	up := env.upload(t, "/upload", "pdf", "blank.txt", "   \n\n  ")

	u, _ := env.registry.Get(context.Background(), up.ID)
	if u.Status != models.UploadFailed || u.Error == "" {
		t.Fatalf("upload = %+v, want failed with error", u)
	}
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/search?q=anything&id="+up.ID, nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("search status = %d, want 422", w.Code)
	}
}

func TestUpload_sniffsExtensionlessPDF(t *testing.T) {
	env := newTestEnv(t)
	up := env.upload(t, "/upload", "pdf", "scan", "%PDF-1.4\nnot really a pdf")

	entries, err := os.ReadDir(env.srv.config.UploadDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), "_scan.pdf") {
		t.Fatalf("stored files = %v, want one *_scan.pdf", entries)
	}
	u, _ := env.registry.Get(context.Background(), up.ID)
	if u.Filename != "scan" || u.Status != models.UploadFailed {
		t.Errorf("upload = %+v, want filename scan and failed ingestion", u)
	}
}

func TestSearch_statusCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.registry.Put(ctx, &models.Upload{ID: "pending", Collection: "pending", Status: models.UploadPending}); err != nil {
		t.Fatal(err)
	}
	if err := env.registry.Put(ctx, &models.Upload{ID: "gone", Collection: "gone", Status: models.UploadReady}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing q", "?id=pending", http.StatusBadRequest},
		{"missing id", "?q=hello", http.StatusBadRequest},
		{"unknown id", "?q=hello&id=nope", http.StatusNotFound},
		{"pending", "?q=hello&id=pending", http.StatusConflict},
		{"collection deleted", "?q=hello&id=gone", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/search"+tt.query, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestSearch_blankQueryIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	up := env.upload(t, "/upload", "pdf", "notes.txt", riverText)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/search?q=%20%20&id="+up.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if res := decode[searchResponse](t, w); res.Results == nil || len(res.Results) != 0 {
		t.Errorf("results = %#v, want empty list", res.Results)
	}
}

func TestGetUpload_unknown(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListUploads(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "/upload", "pdf", "a.txt", "First document.")
	env.upload(t, "/upload", "pdf", "b.txt", "Second document.")

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/uploads?limit=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	out := decode[struct {
		Uploads []models.Upload `json:"uploads"`
	}](t, w)
	if len(out.Uploads) != 1 || out.Uploads[0].Filename != "b.txt" {
		t.Errorf("uploads = %+v", out.Uploads)
	}
}

func TestCollections(t *testing.T) {
	env := newTestEnv(t)
	up := env.upload(t, "/upload", "pdf", "notes.txt", riverText)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/collections", nil))
	out := decode[map[string][]string](t, w)
	if len(out["collections"]) != 1 || out["collections"][0] != up.Collection {
		t.Fatalf("collections = %v", out)
	}

	w = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/collections/"+up.Collection, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if env.store.Size(up.Collection) != 0 {
		t.Error("collection points should be gone")
	}
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/collections", nil))
	if out := decode[map[string][]string](t, w); len(out["collections"]) != 0 {
		t.Errorf("collections after delete = %v", out)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "/upload", "pdf", "notes.txt", riverText)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	out := decode[map[string]any](t, w)
	if out["status"] != "ok" {
		t.Errorf("health = %v", out)
	}
	if n, ok := out["upload_bytes"].(float64); !ok || n != float64(len(riverText)) {
		t.Errorf("upload_bytes = %v, want %d", out["upload_bytes"], len(riverText))
	}
}

func TestStop_waitsForIngestions(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, uploadRequest(t, "/upload", "pdf", "notes.txt", riverText))
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	up := decode[uploadResponse](t, w)
	if err := env.srv.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	u, _ := env.registry.Get(context.Background(), up.ID)
	if u.Status != models.UploadReady {
		t.Errorf("status after Stop = %s, want ready", u.Status)
	}
}

// stallingEmbedder blocks every batch until its context is cancelled.
type stallingEmbedder struct{}

func (stallingEmbedder) EmbedBatch(ctx context.Context, _ []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (stallingEmbedder) Dimensions() int      { return 8 }
func (stallingEmbedder) ConcurrentSafe() bool { return true }
func (stallingEmbedder) Close() error         { return nil }

func TestStop_timeoutRecordsFailure(t *testing.T) {
	registry, err := storage.NewSQLiteRegistry(filepath.Join(t.TempDir(), "uploads.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer registry.Close()
	svc := embedding.NewStaticService(stallingEmbedder{})
	defer svc.Close()
	store := vector.NewMemoryStore()
	logger := zap.NewNop()
	idx := indexer.NewIndexer(indexer.NewChunker(), svc, indexer.NewCollections(store), indexer.WithLogger(logger))
	cfg := &config.ServerConfig{UploadDir: t.TempDir(), MaxUploadBytes: 1 << 20}
	srv := NewServer(search.NewEngine(store, svc), idx, registry, cfg, logger)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, uploadRequest(t, "/upload", "pdf", "notes.txt", riverText))
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	up := decode[uploadResponse](t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = srv.Stop(ctx)

	u, err := registry.Get(context.Background(), up.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u.Status != models.UploadFailed || u.Error == "" {
		t.Errorf("upload after Stop timeout = %+v, want failed", u)
	}
}

// rejectingRegistry fails every Put.
type rejectingRegistry struct {
	storage.Registry
}

func (rejectingRegistry) Put(context.Context, *models.Upload) error {
	return errors.New("registry is read-only")
}

func TestUpload_registryFailureRemovesFile(t *testing.T) {
	store := vector.NewMemoryStore()
	svc := embedding.NewStaticService(embedding.NewMockEmbedder(8))
	defer svc.Close()
	idx := indexer.NewIndexer(indexer.NewChunker(), svc, indexer.NewCollections(store))
	cfg := &config.ServerConfig{UploadDir: t.TempDir(), MaxUploadBytes: 1 << 20}
	srv := NewServer(search.NewEngine(store, svc), idx, rejectingRegistry{storage.NewMemoryRegistry(0)}, cfg, zap.NewNop())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, uploadRequest(t, "/upload", "pdf", "notes.txt", riverText))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	entries, err := os.ReadDir(cfg.UploadDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir still holds %d files", len(entries))
	}
}
