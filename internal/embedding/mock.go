package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/folio/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and model-less runs. The same
// text always gets the same unit-length vector.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding derived from the hash of text.
func (e *MockEmbedder) Embed(text string) []float32 {
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = e.Embed(text)
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// ConcurrentSafe is true; MockEmbedder holds no mutable state.
func (e *MockEmbedder) ConcurrentSafe() bool { return true }

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
