package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type countingLoader struct {
	calls atomic.Int32
	model Embedder
	err   error
}

func (l *countingLoader) load(ctx context.Context) (Embedder, error) {
	l.calls.Add(1)
	return l.model, l.err
}

// recordingEmbedder wraps MockEmbedder and records batch sizes.
type recordingEmbedder struct {
	*MockEmbedder
	mu      sync.Mutex
	batches []int
	short   bool
	closed  bool
}

func (r *recordingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	r.mu.Lock()
	r.batches = append(r.batches, len(texts))
	r.mu.Unlock()
	vecs, err := r.MockEmbedder.EmbedBatch(ctx, texts)
	if r.short && len(vecs) > 0 {
		vecs = vecs[:len(vecs)-1]
	}
	return vecs, err
}

func (r *recordingEmbedder) ConcurrentSafe() bool { return false }

func (r *recordingEmbedder) Close() error {
	r.closed = true
	return nil
}

func TestService_EmbedBatchPreservesOrder(t *testing.T) {
	model := &recordingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	svc := NewStaticService(model)
	texts := []string{"alpha", "beta", "gamma", "delta", "epsilon"}

	got, err := svc.EmbedBatch(context.Background(), texts, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(got), len(texts))
	}
	for i, text := range texts {
		want := model.Embed(text)
		for j := range want {
			if got[i][j] != want[j] {
				t.Fatalf("vector %d does not match text %q", i, text)
			}
		}
	}
	if len(model.batches) != 3 || model.batches[2] != 1 {
		t.Errorf("batches = %v, want [2 2 1]", model.batches)
	}
}

func TestService_BatchedEqualsUnbatched(t *testing.T) {
	svc := NewStaticService(NewMockEmbedder(16))
	texts := []string{"one", "two", "three"}
	ctx := context.Background()

	batched, err := svc.EmbedBatch(ctx, texts, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, text := range texts {
		single, err := svc.EmbedOne(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		for j := range single {
			if single[j] != batched[i][j] {
				t.Fatalf("EmbedOne(%q) differs from batch result", text)
			}
		}
	}
}

func TestService_EmptyInput(t *testing.T) {
	svc := NewStaticService(NewMockEmbedder(4))
	got, err := svc.EmbedBatch(context.Background(), nil, 0)
	if err != nil || len(got) != 0 {
		t.Errorf("EmbedBatch(nil) = %v, %v", got, err)
	}
}

func TestService_InitializesOnce(t *testing.T) {
	loader := &countingLoader{model: NewMockEmbedder(4)}
	svc := NewService(loader.load)

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := svc.EmbedOne(context.Background(), "query")
				errs <- err
				return
			}
			_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"}, 1)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if got := loader.calls.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestService_InitFailureIsTerminal(t *testing.T) {
	cause := errors.New("no such model")
	loader := &countingLoader{err: cause}
	svc := NewService(loader.load)
	ctx := context.Background()

	for range 3 {
		_, err := svc.EmbedOne(ctx, "x")
		if !errors.Is(err, ErrModelInit) || !errors.Is(err, cause) {
			t.Fatalf("err = %v, want ErrModelInit wrapping the cause", err)
		}
	}
	if _, err := svc.Dimension(ctx); !errors.Is(err, ErrModelInit) {
		t.Errorf("Dimension err = %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Errorf("loader called %d times, want 1", loader.calls.Load())
	}
}

func TestService_NilModel(t *testing.T) {
	svc := NewService((&countingLoader{}).load)
	if _, err := svc.Dimension(context.Background()); !errors.Is(err, ErrModelInit) {
		t.Errorf("err = %v, want ErrModelInit", err)
	}
}

func TestService_LoaderPanic(t *testing.T) {
	svc := NewService(func(context.Context) (Embedder, error) { panic("bad model file") })
	ctx := context.Background()
	if dim, err := svc.Dimension(ctx); !errors.Is(err, ErrModelInit) || dim != 0 {
		t.Errorf("Dimension = %d, %v; want ErrModelInit", dim, err)
	}
	if _, err := svc.EmbedOne(ctx, "x"); !errors.Is(err, ErrModelInit) {
		t.Errorf("EmbedOne err = %v, want ErrModelInit", err)
	}
}

func TestService_DimensionMismatch(t *testing.T) {
	model := &recordingEmbedder{MockEmbedder: NewMockEmbedder(4), short: true}
	svc := NewStaticService(model)
	if _, err := svc.EmbedBatch(context.Background(), []string{"a", "b"}, 0); !errors.Is(err, ErrDimension) {
		t.Errorf("err = %v, want ErrDimension", err)
	}
}

func TestService_Dimension(t *testing.T) {
	svc := NewStaticService(NewMockEmbedder(12))
	dim, err := svc.Dimension(context.Background())
	if err != nil || dim != 12 {
		t.Errorf("Dimension = %d, %v", dim, err)
	}
}

func TestService_Close(t *testing.T) {
	model := &recordingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	svc := NewStaticService(model, WithCacheSize(0))
	ctx := context.Background()
	if _, err := svc.EmbedOne(ctx, "warm"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
	if !model.closed {
		t.Error("model was not closed")
	}
	if _, err := svc.EmbedOne(ctx, "after"); !errors.Is(err, ErrClosed) {
		t.Errorf("err after close = %v, want ErrClosed", err)
	}
}

func TestService_CanceledContext(t *testing.T) {
	svc := NewStaticService(NewMockEmbedder(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.EmbedBatch(ctx, []string{"a"}, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func BenchmarkService_EmbedBatch(b *testing.B) {
	svc := NewStaticService(NewMockEmbedder(384), WithCacheSize(0))
	defer svc.Close()
	texts := []string{
		"benchmark query text for embedding",
		"a second sentence about rivers",
		"and a third about mountains",
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = svc.EmbedBatch(ctx, texts, 0)
	}
}
