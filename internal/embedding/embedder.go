// Package embedding provides text embedding via ONNX, lazily loaded behind a
// concurrency-safe service.
package embedding

import "context"

// Embedder is a loaded model that produces vector embeddings for text.
type Embedder interface {
	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// ConcurrentSafe reports whether EmbedBatch may run on several goroutines at once.
	ConcurrentSafe() bool
	Close() error
}

// Loader builds the model. It is called at most once per Service.
type Loader func(ctx context.Context) (Embedder, error)
