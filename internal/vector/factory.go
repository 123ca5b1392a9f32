package vector

import (
	"fmt"

	"go.uber.org/zap"
)

// StoreType selects a Store implementation.
type StoreType string

const (
	// StoreTypeQdrant talks to a Qdrant server over gRPC.
	StoreTypeQdrant StoreType = "qdrant"
	// StoreTypeMemory keeps collections in process memory.
	StoreTypeMemory StoreType = "memory"
)

// NewStore creates a store of the given type. Supported types: "qdrant" (default), "memory".
func NewStore(storeType string, opts QdrantOptions, logger *zap.Logger) (Store, error) {
	switch StoreType(storeType) {
	case StoreTypeQdrant, "":
		s, err := NewQdrantStore(opts, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s (supported: qdrant, memory)", storeType)
	}
}
