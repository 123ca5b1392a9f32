// Package models defines core data structures for pages, chunks, uploads, and search results.
package models

import "time"

// Page is the text of one physical page of a source document.
// Number follows the extractor's convention; PDF pages are 1-based.
type Page struct {
	Number  uint32 `json:"number"`
	Content string `json:"content"`
}

// Chunk is a bounded span of text assembled from a single page.
type Chunk struct {
	Content string `json:"content"`
	Page    uint32 `json:"page"`
}

// UploadStatus is the ingestion state of an uploaded document.
type UploadStatus string

const (
	UploadPending UploadStatus = "pending"
	UploadReady   UploadStatus = "ready"
	UploadFailed  UploadStatus = "failed"
)

// Upload maps an opaque upload id to the collection holding its chunks.
type Upload struct {
	ID         string       `json:"id" db:"id"`
	Collection string       `json:"collection" db:"collection"`
	Filename   string       `json:"filename" db:"filename"`
	Status     UploadStatus `json:"status" db:"status"`
	Error      string       `json:"error,omitempty" db:"error"`
	Chunks     int          `json:"chunks" db:"chunks"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}
