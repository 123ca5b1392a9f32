package indexer

import (
	"errors"
	"fmt"
)

// Stage names a step of the ingestion pipeline.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageChunk      Stage = "chunk"
	StageCollection Stage = "collection"
	StageEmbed      Stage = "embed"
	StageUpsert     Stage = "upsert"
)

var (
	// ErrLengthMismatch is returned when chunks and vectors differ in count. Nothing is written.
	ErrLengthMismatch = errors.New("chunk and vector counts differ")
	// ErrNoChunks is returned when a document yields no chunks after filtering.
	ErrNoChunks = errors.New("document produced no chunks")
	// ErrNoPages is returned when extraction yields no readable page.
	ErrNoPages = errors.New("document has no readable pages")
)

// StageError reports which pipeline stage failed. Partial is true when the
// collection was created, a later stage failed and the rollback also failed, so
// the collection may hold some points.
type StageError struct {
	Stage      Stage
	Collection string
	Partial    bool
	Err        error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s stage failed", e.Stage)
	if e.Collection != "" {
		msg += fmt.Sprintf(" for collection %q", e.Collection)
	}
	if e.Partial {
		msg += " (collection partially indexed)"
	}
	return msg + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }
