package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/folio/internal/models"
)

// SQLiteRegistry implements Registry using SQLite, so upload ids survive restarts.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := failInterrupted(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to recover pending uploads: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

// errInterrupted is recorded for uploads left pending by a previous process.
const errInterrupted = "ingestion interrupted before completion"

// failInterrupted marks entries still pending at open as failed. No ingestion
// survives the process that started it.
func failInterrupted(db *sql.DB) error {
	_, err := db.Exec(
		`UPDATE uploads SET status = ?, error = ?, updated_at = ? WHERE status = ?`,
		string(models.UploadFailed), errInterrupted, time.Now(), string(models.UploadPending),
	)
	return err
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		filename TEXT,
		status TEXT NOT NULL,
		error TEXT,
		chunks INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Put inserts or replaces an entry.
func (s *SQLiteRegistry) Put(ctx context.Context, u *models.Upload) error {
	if u.ID == "" {
		return fmt.Errorf("upload id cannot be empty")
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO uploads (id, collection, filename, status, error, chunks, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Collection, u.Filename, string(u.Status), u.Error, u.Chunks, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	return nil
}

// Get returns the entry for id.
func (s *SQLiteRegistry) Get(ctx context.Context, id string) (*models.Upload, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, collection, filename, status, error, chunks, created_at, updated_at
		 FROM uploads WHERE id = ?`, id)
	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Complete records the outcome of an ingestion.
func (s *SQLiteRegistry) Complete(ctx context.Context, id string, chunks int, err error) error {
	status, msg := outcome(err)
	res, execErr := s.db.ExecContext(ctx,
		`UPDATE uploads SET status = ?, error = ?, chunks = ?, updated_at = ? WHERE id = ?`,
		string(status), msg, chunks, time.Now(), id,
	)
	if execErr != nil {
		return fmt.Errorf("failed to update upload: %w", execErr)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	return nil
}

// List returns entries newest first.
func (s *SQLiteRegistry) List(ctx context.Context, offset, limit int) ([]*models.Upload, error) {
	if limit <= 0 {
		limit = -1
	}
	offset = max(offset, 0)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, collection, filename, status, error, chunks, created_at, updated_at
		 FROM uploads ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Delete removes an entry.
func (s *SQLiteRegistry) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM uploads WHERE id = ?", id)
	return err
}

// Close closes the database connection.
func (s *SQLiteRegistry) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(row scanner) (*models.Upload, error) {
	var (
		u        models.Upload
		status   string
		filename sql.NullString
		errMsg   sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Collection, &filename, &status, &errMsg, &u.Chunks, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Status = models.UploadStatus(status)
	u.Filename = filename.String
	u.Error = errMsg.String
	return &u, nil
}
