// Package vector defines the vector store contract and its Qdrant and in-memory
// implementations.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStoreUnavailable reports that the vector store could not be reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrCollectionNotFound reports an operation on a collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrCollectionExists reports a create for a name that is already taken.
	ErrCollectionExists = errors.New("collection already exists")
)

// Distance is the metric a collection compares vectors with.
type Distance string

const (
	DistanceDot       Distance = "dot"
	DistanceCosine    Distance = "cosine"
	DistanceEuclid    Distance = "euclid"
	DistanceManhattan Distance = "manhattan"
)

// ParseDistance converts a config value to a Distance. Empty means dot product.
func ParseDistance(s string) (Distance, error) {
	switch d := Distance(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DistanceDot, nil
	case DistanceDot, DistanceCosine, DistanceEuclid, DistanceManhattan:
		return d, nil
	default:
		return "", fmt.Errorf("unknown distance %q (supported: dot, cosine, euclid, manhattan)", s)
	}
}

// HigherIsBetter reports whether larger scores mean closer vectors.
func (d Distance) HigherIsBetter() bool {
	return d != DistanceEuclid && d != DistanceManhattan
}

// Collection describes a named partition of the store.
type Collection struct {
	Name      string
	Dimension uint64
	Distance  Distance
}

// Point is a vector with a numeric id and a payload. Payload values must be nil,
// bool, integers, floats or strings.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID      uint64
	Score   float32
	Payload map[string]PayloadValue
}

// Store is a vector database holding named collections.
type Store interface {
	CreateCollection(ctx context.Context, c Collection) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, name string) error
	// Upsert writes points and returns once they are searchable.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns up to limit points nearest to vector, best first, with payloads.
	Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]ScoredPoint, error)
	Close() error
}
