package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultBatchSize is used when neither the caller nor the service sets a batch size.
const DefaultBatchSize = 32

var (
	// ErrModelInit wraps the loader failure. Initialization is not retried.
	ErrModelInit = errors.New("embedding model initialization failed")
	// ErrDimension is returned when the model yields the wrong number or width of vectors.
	ErrDimension = errors.New("embedding dimension mismatch")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("embedding service closed")
)

// Service owns a single model handle, built on first use.
type Service struct {
	loader    Loader
	batchSize int
	cache     *queryCache
	logger    *zap.Logger

	once    sync.Once
	initErr error

	mu         sync.RWMutex
	model      Embedder
	dim        int
	concurrent bool
	closed     bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBatchSize sets the default batch size for EmbedBatch.
func WithBatchSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithCacheSize sets the capacity of the EmbedOne cache. Zero disables it.
func WithCacheSize(n int) ServiceOption {
	return func(s *Service) {
		s.cache = newQueryCache(n)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService returns a service that calls loader on the first embedding request.
func NewService(loader Loader, opts ...ServiceOption) *Service {
	s := &Service{
		loader:    loader,
		batchSize: DefaultBatchSize,
		cache:     newQueryCache(1024),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStaticService wraps an already loaded model.
func NewStaticService(model Embedder, opts ...ServiceOption) *Service {
	return NewService(func(context.Context) (Embedder, error) { return model, nil }, opts...)
}

func (s *Service) init(ctx context.Context) error {
	s.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				s.initErr = fmt.Errorf("%w: loader panicked: %v", ErrModelInit, r)
				s.logger.Error("embedding model loader panicked", zap.Any("panic", r))
			}
		}()
		model, err := s.loader(context.WithoutCancel(ctx))
		if err == nil && model == nil {
			err = errors.New("loader returned no model")
		}
		if err != nil {
			s.initErr = fmt.Errorf("%w: %w", ErrModelInit, err)
			s.logger.Error("embedding model failed to load", zap.Error(err))
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			_ = model.Close()
			s.initErr = ErrClosed
			return
		}
		s.model = model
		s.dim = model.Dimensions()
		s.concurrent = model.ConcurrentSafe()
		s.logger.Info("embedding model loaded",
			zap.Int("dimensions", s.dim),
			zap.Bool("concurrent", s.concurrent),
		)
	})
	return s.initErr
}

// Dimension returns the vector width of the loaded model, loading it if needed.
func (s *Service) Dimension(ctx context.Context) (int, error) {
	if err := s.init(ctx); err != nil {
		return 0, err
	}
	return s.dim, nil
}

// EmbedBatch embeds texts in batches of batchSize and returns one vector per text in
// input order. batchSize <= 0 uses the service default.
func (s *Service) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = s.batchSize
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batchSize, len(texts))
		vecs, err := s.run(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *Service) run(ctx context.Context, batch []string) ([][]float32, error) {
	if s.concurrent {
		s.mu.RLock()
		defer s.mu.RUnlock()
	} else {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if s.closed || s.model == nil {
		return nil, ErrClosed
	}

	vecs, err := s.model.EmbedBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("%w: %d vectors for %d texts", ErrDimension, len(vecs), len(batch))
	}
	for i, v := range vecs {
		if len(v) != s.dim {
			return nil, fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimension, i, len(v), s.dim)
		}
	}
	return vecs, nil
}

// EmbedOne embeds a single query. Texts that differ only in whitespace share
// one cached vector.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	key := queryKey(text)
	if v, ok := s.cache.lookup(key); ok {
		return v, nil
	}
	vecs, err := s.EmbedBatch(ctx, []string{key}, 1)
	if err != nil {
		return nil, err
	}
	s.cache.store(key, vecs[0])
	return vecs[0], nil
}

// Close releases the model. Calls after Close fail with ErrClosed.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.model == nil {
		return nil
	}
	err := s.model.Close()
	s.model = nil
	return err
}
