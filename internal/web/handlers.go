package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amengaji/Keel/internal/core"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.Limiter().Status(),
	})
}

// handleListImports returns the registered import types and their column contracts.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Imports())
}

// handleTemplate serves a blank workbook for an import type.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	importType := chi.URLParam(r, "importType")

	data, err := s.service.Template(r.Context(), importType)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_template.xlsx"`, importType))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// handlePreview analyzes an uploaded workbook without writing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	importType := chi.URLParam(r, "importType")

	_, data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	report, err := s.service.Preview(r.Context(), importType, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleCommit re-validates and persists an uploaded workbook.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	importType := chi.URLParam(r, "importType")

	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.Commit(withClient(r.Context(), r), core.CommitRequest{
		ImportType: importType,
		FileName:   name,
		Data:       data,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHistory lists committed batches for an import type, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	importType := chi.URLParam(r, "importType")
	limit := parseIntParam(r, "limit", core.DefaultHistoryLimit)

	batches, err := s.service.History(r.Context(), importType, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if batches == nil {
		batches = []core.ImportBatch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

// handleSourceFile downloads the archived workbook of a committed batch.
func (s *Server) handleSourceFile(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	data, contentType, err := s.service.SourceFile(r.Context(), batchID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, batchID))
	_, _ = w.Write(data)
}

// readUpload reads the multipart "file" field, bounded by the configured
// maximum file size.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(min(maxSize, 32<<20)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return "", nil, errFileTooLarge
		}
		return "", nil, fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return filepath.Base(header.Filename), data, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
