package vector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeQdrant struct {
	created  *qdrant.CreateCollection
	upserted *qdrant.UpsertPoints
	queried  *qdrant.QueryPoints
	hits     []*qdrant.ScoredPoint
	err      error
	closed   bool
}

func (f *fakeQdrant) CreateCollection(ctx context.Context, r *qdrant.CreateCollection) error {
	f.created = r
	return f.err
}

func (f *fakeQdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	return f.created != nil && f.created.GetCollectionName() == name, f.err
}

func (f *fakeQdrant) ListCollections(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"docs"}, nil
}

func (f *fakeQdrant) DeleteCollection(ctx context.Context, name string) error { return f.err }

func (f *fakeQdrant) Upsert(ctx context.Context, r *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.upserted = r
	return &qdrant.UpdateResult{}, f.err
}

func (f *fakeQdrant) Query(ctx context.Context, r *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.queried = r
	return f.hits, f.err
}

func (f *fakeQdrant) Close() error {
	f.closed = true
	return nil
}

func TestQdrantStore_CreateCollection(t *testing.T) {
	fake := &fakeQdrant{}
	s := newQdrantStore(fake, 0)
	err := s.CreateCollection(context.Background(), Collection{Name: "docs", Dimension: 384, Distance: DistanceDot})
	if err != nil {
		t.Fatal(err)
	}
	params := fake.created.GetVectorsConfig().GetParams()
	if params.GetSize() != 384 || params.GetDistance() != qdrant.Distance_Dot {
		t.Errorf("vector params = %v", params)
	}
}

func TestQdrantStore_UpsertPayload(t *testing.T) {
	fake := &fakeQdrant{}
	s := newQdrantStore(fake, 0)
	err := s.Upsert(context.Background(), "docs", []Point{
		{ID: 3, Vector: []float32{0.1, 0.2}, Payload: map[string]any{"text": "hello", "page": int64(9)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !fake.upserted.GetWait() {
		t.Error("upsert should wait for the write to apply")
	}
	p := fake.upserted.GetPoints()[0]
	if p.GetId().GetNum() != 3 {
		t.Errorf("id = %v", p.GetId())
	}
	if p.GetPayload()["page"].GetIntegerValue() != 9 {
		t.Errorf("page payload = %v", p.GetPayload()["page"])
	}
	if p.GetPayload()["text"].GetStringValue() != "hello" {
		t.Errorf("text payload = %v", p.GetPayload()["text"])
	}
}

func TestQdrantStore_UpsertRejectsUnsupportedPayload(t *testing.T) {
	s := newQdrantStore(&fakeQdrant{}, 0)
	err := s.Upsert(context.Background(), "docs", []Point{
		{ID: 1, Vector: []float32{1}, Payload: map[string]any{"bad": struct{}{}}},
	})
	if err == nil {
		t.Fatal("expected payload encoding error")
	}
}

func TestQdrantStore_SearchDecodesPayload(t *testing.T) {
	fake := &fakeQdrant{hits: []*qdrant.ScoredPoint{
		{Id: qdrant.NewIDNum(1), Score: 0.9, Payload: map[string]*qdrant.Value{
			"text": qdrant.NewValueString("first"),
			"page": qdrant.NewValueDouble(4),
		}},
		{Id: qdrant.NewIDNum(2), Score: 0.5, Payload: map[string]*qdrant.Value{
			"text": qdrant.NewValueString("second"),
			"page": qdrant.NewValueInt(6),
		}},
	}}
	s := newQdrantStore(fake, 0)
	res, err := s.Search(context.Background(), "docs", []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if fake.queried.GetLimit() != 5 || !fake.queried.GetWithPayload().GetEnable() {
		t.Errorf("query request = %v", fake.queried)
	}
	if len(res) != 2 || res[0].ID != 1 || res[0].Score != 0.9 {
		t.Fatalf("results = %+v", res)
	}
	if res[0].Payload["page"].Kind != KindDouble || res[1].Payload["page"].Kind != KindInteger {
		t.Errorf("payload kinds = %v, %v", res[0].Payload["page"].Kind, res[1].Payload["page"].Kind)
	}
}

// clientError wraps a failure the way the Qdrant client reports every call:
// an operation name around the gRPC status, reachable through Unwrap.
type clientError struct {
	op  string
	err error
}

func (e *clientError) Error() string { return e.op + "() failed: " + e.err.Error() }
func (e *clientError) Unwrap() error { return e.err }

func TestQdrantStore_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		code codes.Code
		want error
	}{
		{codes.Unavailable, ErrStoreUnavailable},
		{codes.DeadlineExceeded, ErrStoreUnavailable},
		{codes.NotFound, ErrCollectionNotFound},
		{codes.AlreadyExists, ErrCollectionExists},
	}
	wrappers := map[string]func(error) error{
		"bare":         func(err error) error { return err },
		"client error": func(err error) error { return &clientError{op: "ListCollections", err: err} },
		"fmt wrapped":  func(err error) error { return fmt.Errorf("list: %w", &clientError{op: "List", err: err}) },
	}
	for name, wrap := range wrappers {
		for _, tt := range tests {
			s := newQdrantStore(&fakeQdrant{err: wrap(status.Error(tt.code, "boom"))}, 0)
			if _, err := s.ListCollections(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("%s, code %v: err = %v, want %v", name, tt.code, err, tt.want)
			}
		}
	}
	s := newQdrantStore(&fakeQdrant{err: errors.New("plain")}, 0)
	err := s.DeleteCollection(context.Background(), "docs")
	if err == nil || errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("plain error misclassified: %v", err)
	}
}

func TestQdrantStore_Close(t *testing.T) {
	fake := &fakeQdrant{}
	if err := newQdrantStore(fake, 0).Close(); err != nil || !fake.closed {
		t.Error("Close should close the client")
	}
}
