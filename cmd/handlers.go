package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/model"
	"github.com/finsight-ai/finsight/internal/store"
)

type server struct {
	runCtx  context.Context
	env     *Env
	limiter *userLimiter
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts a multipart document upload, stores the file under
// the upload directory with a generated name, and registers it as uploaded.
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(cfg.Extract.MaxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if cfg.Extract.MaxFileSize > 0 && header.Size > cfg.Extract.MaxFileSize {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds size limit")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtension(ext) {
		writeError(w, http.StatusBadRequest, "unsupported file type "+ext)
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		zap.L().Error("create upload dir", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	storedName := uuid.New().String() + ext
	storedPath := filepath.Join(cfg.Upload.Dir, storedName)
	dst, err := os.Create(storedPath)
	if err != nil {
		zap.L().Error("create upload file", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	written, err := io.Copy(dst, file)
	dst.Close()
	if err != nil {
		os.Remove(storedPath)
		zap.L().Error("write upload file", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	doc := &model.Document{
		OriginalFilename: header.Filename,
		Filename:         storedName,
		FilePath:         storedPath,
		FileSize:         written,
		ContentType:      header.Header.Get("Content-Type"),
		UploadedBy:       userID,
	}
	if err := s.env.Store.CreateDocument(r.Context(), doc); err != nil {
		os.Remove(storedPath)
		zap.L().Error("create document", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not register document")
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// handleAnalyze starts a pipeline run for an uploaded document. The run
// happens asynchronously; the response only acknowledges the request. A
// document already being processed is rejected so concurrent runs cannot
// race on its status.
func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Query  string `json:"query"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		req.Query = "Provide a comprehensive financial analysis"
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}

	if !s.limiter.Allow(req.UserID) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	doc, err := s.env.Store.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if doc.Status == model.DocumentStatusProcessing {
		writeError(w, http.StatusConflict, "document is already being processed")
		return
	}

	if err := s.env.Store.UpdateDocumentStatus(r.Context(), id, model.DocumentStatusProcessing, nil, ""); err != nil {
		zap.L().Error("mark document processing", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start analysis")
		return
	}

	go func() {
		rec, err := s.env.Pipeline.Run(s.runCtx, req.Query, doc.FilePath, req.UserID, doc.ID)
		if err != nil {
			zap.L().Error("analysis failed",
				zap.String("document_id", doc.ID),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("analysis complete",
			zap.String("document_id", doc.ID),
			zap.String("analysis_id", rec.ID),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":      "queued",
		"document_id": doc.ID,
	})
}

func (s *server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.env.Store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.DocumentFilter{
		UploadedBy: q.Get("uploaded_by"),
		Status:     model.DocumentStatus(q.Get("status")),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	docs, err := s.env.Store.ListDocuments(r.Context(), filter)
	if err != nil {
		zap.L().Error("list documents", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list documents")
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.env.Store.GetDocument(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	recs, err := s.env.Store.ListAnalyses(r.Context(), id)
	if err != nil {
		zap.L().Error("list analyses", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list analyses")
		return
	}
	if recs == nil {
		recs = []model.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, err := s.env.Store.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func allowedExtension(ext string) bool {
	exts := cfg.Extract.AllowedExtensions
	if len(exts) == 0 {
		exts = []string{".pdf", ".docx", ".txt"}
	}
	for _, a := range exts {
		if strings.EqualFold(strings.TrimSpace(a), ext) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
