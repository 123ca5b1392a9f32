package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/vector"
	"go.uber.org/zap"
)

// Payload keys written with every point.
const (
	PayloadText = "text"
	PayloadPage = "page"
)

const defaultUpsertBatch = 256

// Policy decides what Create does when collections already exist.
type Policy string

const (
	// PolicyFail refuses to create a collection whose name is taken.
	PolicyFail Policy = "fail"
	// PolicyReplace drops the same-named collection first.
	PolicyReplace Policy = "replace"
	// PolicyResetAll drops every collection in the store first.
	PolicyResetAll Policy = "reset_all"
)

// ParsePolicy converts a config value to a Policy; empty means PolicyFail.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyFail, nil
	case PolicyFail, PolicyReplace, PolicyResetAll:
		return p, nil
	default:
		return "", fmt.Errorf("unknown collection policy %q", s)
	}
}

// Collections creates, fills and removes vector collections.
type Collections struct {
	store       vector.Store
	policy      Policy
	distance    vector.Distance
	upsertBatch int
	logger      *zap.Logger
}

// CollectionOption configures Collections.
type CollectionOption func(*Collections)

// WithPolicy sets the create policy.
func WithPolicy(p Policy) CollectionOption {
	return func(c *Collections) { c.policy = p }
}

// WithDistance sets the metric for new collections.
func WithDistance(d vector.Distance) CollectionOption {
	return func(c *Collections) { c.distance = d }
}

// WithUpsertBatch sets how many points are sent per upsert request.
func WithUpsertBatch(n int) CollectionOption {
	return func(c *Collections) {
		if n > 0 {
			c.upsertBatch = n
		}
	}
}

// WithCollectionLogger sets the logger.
func WithCollectionLogger(l *zap.Logger) CollectionOption {
	return func(c *Collections) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCollections returns a client over store using PolicyFail and dot product by default.
func NewCollections(store vector.Store, opts ...CollectionOption) *Collections {
	c := &Collections{
		store:       store,
		policy:      PolicyFail,
		distance:    vector.DistanceDot,
		upsertBatch: defaultUpsertBatch,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create makes a collection of dim-sized vectors, applying the policy to any
// existing collections first.
func (c *Collections) Create(ctx context.Context, name string, dim uint64) error {
	switch c.policy {
	case PolicyResetAll:
		names, err := c.store.ListCollections(ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			if err := c.store.DeleteCollection(ctx, n); err != nil {
				return err
			}
		}
		c.logger.Warn("dropped all collections", zap.Int("count", len(names)))
	case PolicyReplace:
		exists, err := c.store.CollectionExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			if err := c.store.DeleteCollection(ctx, name); err != nil {
				return err
			}
			c.logger.Info("replaced existing collection", zap.String("collection", name))
		}
	default:
		exists, err := c.store.CollectionExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
		}
	}
	return c.store.CreateCollection(ctx, vector.Collection{Name: name, Dimension: dim, Distance: c.distance})
}

// Upsert writes one point per chunk with the chunk's position as its id. chunks
// and vectors must be the same length; otherwise nothing is written.
func (c *Collections) Upsert(ctx context.Context, name string, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrLengthMismatch, len(chunks), len(vectors))
	}
	for start := 0; start < len(chunks); start += c.upsertBatch {
		end := min(start+c.upsertBatch, len(chunks))
		points := make([]vector.Point, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, vector.Point{
				ID:     uint64(i),
				Vector: vectors[i],
				Payload: map[string]any{
					PayloadText: chunks[i].Content,
					PayloadPage: int64(chunks[i].Page),
				},
			})
		}
		if err := c.store.Upsert(ctx, name, points); err != nil {
			return err
		}
	}
	c.logger.Debug("upserted points", zap.String("collection", name), zap.Int("count", len(chunks)))
	return nil
}

// Exists reports whether the collection exists.
func (c *Collections) Exists(ctx context.Context, name string) (bool, error) {
	return c.store.CollectionExists(ctx, name)
}

// List returns the collection names.
func (c *Collections) List(ctx context.Context) ([]string, error) {
	return c.store.ListCollections(ctx)
}

// Delete drops a collection.
func (c *Collections) Delete(ctx context.Context, name string) error {
	return c.store.DeleteCollection(ctx, name)
}
