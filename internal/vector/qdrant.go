package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// qdrantAPI is the subset of *qdrant.Client used by QdrantStore.
type qdrantAPI interface {
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, collectionName string) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Close() error
}

// QdrantOptions configures the connection to a Qdrant server over gRPC.
type QdrantOptions struct {
	Host    string
	Port    int
	APIKey  string
	UseTLS  bool
	Timeout time.Duration
}

// QdrantStore is a Store backed by a Qdrant server.
type QdrantStore struct {
	client  qdrantAPI
	timeout time.Duration
	logger  *zap.Logger
}

// QdrantOption configures a QdrantStore.
type QdrantOption func(*QdrantStore)

// WithLogger sets a logger for store operations.
func WithLogger(l *zap.Logger) QdrantOption {
	return func(s *QdrantStore) { s.logger = l }
}

// NewQdrantStore creates a client for the configured server. The connection is
// established lazily on the first call.
func NewQdrantStore(opts QdrantOptions, options ...QdrantOption) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   opts.Host,
		Port:                   opts.Port,
		APIKey:                 opts.APIKey,
		UseTLS:                 opts.UseTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return newQdrantStore(client, opts.Timeout, options...), nil
}

func newQdrantStore(client qdrantAPI, timeout time.Duration, options ...QdrantOption) *QdrantStore {
	s := &QdrantStore{client: client, timeout: timeout, logger: zap.NewNop()}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *QdrantStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// CreateCollection creates a collection with a single unnamed dense vector.
func (s *QdrantStore) CreateCollection(ctx context.Context, c Collection) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     c.Dimension,
			Distance: qdrantDistance(c.Distance),
		}),
	})
	if err != nil {
		return classify("create collection "+c.Name, err)
	}
	s.logger.Debug("qdrant collection created",
		zap.String("collection", c.Name),
		zap.Uint64("dimension", c.Dimension),
		zap.String("distance", string(c.Distance)))
	return nil
}

// CollectionExists reports whether name exists on the server.
func (s *QdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ok, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, classify("collection exists "+name, err)
	}
	return ok, nil
}

// ListCollections returns the names of all collections on the server.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, classify("list collections", err)
	}
	return names, nil
}

// DeleteCollection drops a collection and its points.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return classify("delete collection "+name, err)
	}
	s.logger.Debug("qdrant collection deleted", zap.String("collection", name))
	return nil
}

// Upsert writes points and waits until they are applied.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload, err := qdrant.TryValueMap(p.Payload)
		if err != nil {
			return fmt.Errorf("encode payload for point %d: %w", p.ID, err)
		}
		structs[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectorsDense(p.Vector),
			Payload: payload,
		}
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return classify("upsert into "+collection, err)
	}
	return nil
}

// Search runs a nearest-neighbour query with payloads included.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]ScoredPoint, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, classify("search "+collection, err)
	}
	out := make([]ScoredPoint, 0, len(hits))
	for _, h := range hits {
		payload := make(map[string]PayloadValue, len(h.GetPayload()))
		for k, v := range h.GetPayload() {
			payload[k] = payloadFromQdrant(v)
		}
		out = append(out, ScoredPoint{
			ID:      h.GetId().GetNum(),
			Score:   h.GetScore(),
			Payload: payload,
		})
	}
	return out, nil
}

// Close tears down the gRPC connections.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func payloadFromQdrant(v *qdrant.Value) PayloadValue {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return IntegerValue(k.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return DoubleValue(k.DoubleValue)
	case *qdrant.Value_StringValue:
		return StringValue(k.StringValue)
	case *qdrant.Value_BoolValue:
		return BoolValue(k.BoolValue)
	case *qdrant.Value_NullValue, nil:
		return PayloadValue{Kind: KindNull}
	default:
		return PayloadValue{Kind: KindOther}
	}
}

func qdrantDistance(d Distance) qdrant.Distance {
	switch d {
	case DistanceCosine:
		return qdrant.Distance_Cosine
	case DistanceEuclid:
		return qdrant.Distance_Euclid
	case DistanceManhattan:
		return qdrant.Distance_Manhattan
	default:
		return qdrant.Distance_Dot
	}
}

// classify maps gRPC failures onto the package's sentinel errors.
func classify(op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	case codes.NotFound:
		return fmt.Errorf("%s: %w: %w", op, ErrCollectionNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w: %w", op, ErrCollectionExists, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
