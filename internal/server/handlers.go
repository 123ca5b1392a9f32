package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/folio/internal/extract"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/storage"
	"github.com/hyperjump/folio/internal/vector"
	"go.uber.org/zap"
)

// uploadFields are the multipart fields accepted for the document, in order.
var uploadFields = []string{"pdf", "file"}

type uploadResponse struct {
	ID         string              `json:"id"`
	Collection string              `json:"collection"`
	Status     models.UploadStatus `json:"status"`
}

type searchResponse struct {
	Results []models.SearchResult `json:"results"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := formFile(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file field (pdf or file)")
		return
	}
	defer file.Close()

	filename := header.Filename
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" && sniffPDF(file) {
		ext = ".pdf"
		filename += ext
	}
	if !extract.IsSupported(ext) {
		s.respondError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported file type %q (supported: %s)",
			ext, strings.Join(extract.SupportedExtensions(), ", ")))
		return
	}

	id := uuid.NewString()
	upload := &models.Upload{
		ID:         id,
		Collection: id,
		Filename:   header.Filename,
		Status:     models.UploadPending,
	}
	path, err := storage.SaveUpload(s.config.UploadDir, id, filename, file)
	if err != nil {
		s.logger.Error("saving upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if err := s.registry.Put(r.Context(), upload); err != nil {
		s.logger.Error("registering upload failed", zap.Error(err))
		if rerr := os.Remove(path); rerr != nil {
			s.logger.Warn("removing unregistered upload failed", zap.String("path", path), zap.Error(rerr))
		}
		s.respondError(w, http.StatusInternalServerError, "failed to register upload")
		return
	}

	s.logger.Info("upload accepted",
		zap.String("id", id),
		zap.String("filename", header.Filename),
		zap.Int64("bytes", header.Size),
	)
	s.ingests.Add(1)
	go s.ingest(upload, path)

	s.respondJSON(w, http.StatusAccepted, uploadResponse{ID: id, Collection: upload.Collection, Status: upload.Status})
}

// sniffPDF reports whether an upload without an extension carries a PDF header,
// leaving f rewound.
func sniffPDF(f multipart.File) bool {
	head := make([]byte, 1024)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false
	}
	return extract.IsPDF(head[:n])
}

func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	var lastErr error
	for _, field := range uploadFields {
		f, h, err := r.FormFile(field)
		if err == nil {
			return f, h, nil
		}
		lastErr = err
	}
	return nil, nil, lastErr
}

// ingest indexes an uploaded file and records the outcome in the registry.
func (s *Server) ingest(upload *models.Upload, path string) {
	defer s.ingests.Done()
	ctx := s.ingestCtx

	res, err := s.indexer.IndexFile(ctx, path, upload.Collection)
	chunks := 0
	if err == nil {
		chunks = res.Chunks
		s.logger.Info("upload indexed",
			zap.String("id", upload.ID),
			zap.Int("pages", res.Pages),
			zap.Int("chunks", res.Chunks),
			zap.Duration("duration", res.Duration),
		)
	} else {
		s.logger.Error("upload indexing failed", zap.String("id", upload.ID), zap.Error(err))
	}
	// The outcome is recorded even when Stop cancelled the ingestion.
	if cerr := s.registry.Complete(context.WithoutCancel(ctx), upload.ID, chunks, err); cerr != nil {
		s.logger.Error("recording upload status failed", zap.String("id", upload.ID), zap.Error(cerr))
	}
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := s.registry.Get(r.Context(), id)
	if err != nil {
		s.respondRegistryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, u)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	uploads, err := s.registry.List(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("listing uploads failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if uploads == nil {
		uploads = []*models.Upload{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"uploads": uploads})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	id := r.URL.Query().Get("id")
	if q == "" || id == "" {
		s.respondError(w, http.StatusBadRequest, "q and id are required")
		return
	}
	topK, _ := strconv.Atoi(r.URL.Query().Get("k"))

	u, err := s.registry.Get(r.Context(), id)
	if err != nil {
		s.respondRegistryError(w, err)
		return
	}
	switch u.Status {
	case models.UploadPending:
		s.respondError(w, http.StatusConflict, "upload is still being indexed")
		return
	case models.UploadFailed:
		s.respondError(w, http.StatusUnprocessableEntity, "upload failed: "+u.Error)
		return
	}

	s.logger.Debug("search request", zap.String("id", id), zap.String("query", q), zap.Int("k", topK))
	results, err := s.engine.Query(r.Context(), u.Collection, q, topK)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := s.indexer.Collections().List(r.Context())
	if err != nil {
		s.logger.Error("listing collections failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"collections": names})
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.logger.Debug("delete collection request", zap.String("collection", name))
	if err := s.indexer.Collections().Delete(r.Context(), name); err != nil {
		s.logger.Error("deleting collection failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"collection": name, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if n, err := storage.DiskUsageBytes(s.config.UploadDir); err == nil {
		resp["upload_bytes"] = n
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, vector.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, vector.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondRegistryError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrUnknownUpload) {
		s.respondError(w, http.StatusNotFound, "unknown upload id")
		return
	}
	s.logger.Error("registry lookup failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
