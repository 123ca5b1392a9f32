// Package storage keeps the upload registry and the uploaded files.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/pkg/utils"
)

// ErrUnknownUpload is returned for an id the registry has never seen or has evicted.
var ErrUnknownUpload = errors.New("unknown upload id")

// Registry maps upload ids to collections and ingestion status. Implementations
// are safe for concurrent use.
type Registry interface {
	// Put inserts or replaces an entry. CreatedAt and UpdatedAt are set when zero.
	Put(ctx context.Context, u *models.Upload) error
	Get(ctx context.Context, id string) (*models.Upload, error)
	// Complete records the outcome of an ingestion. A nil err marks the upload ready.
	Complete(ctx context.Context, id string, chunks int, err error) error
	// List returns entries newest first.
	List(ctx context.Context, offset, limit int) ([]*models.Upload, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewRegistry returns a SQLite registry when database is set, otherwise an
// in-memory registry holding at most maxEntries uploads (0 means unbounded).
func NewRegistry(database string, maxEntries int) (Registry, error) {
	if database == "" {
		return NewMemoryRegistry(maxEntries), nil
	}
	r, err := NewSQLiteRegistry(database)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// maxErrorLen bounds the failure message kept per upload.
const maxErrorLen = 1024

func outcome(err error) (models.UploadStatus, string) {
	if err != nil {
		return models.UploadFailed, utils.Truncate(err.Error(), maxErrorLen)
	}
	return models.UploadReady, ""
}
