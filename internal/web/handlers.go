package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/listings/internal/core"
	"github.com/JonMunkholm/listings/internal/store"
	"github.com/JonMunkholm/listings/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size for form fields and
// part headers.
const multipartOverhead = 1 << 20

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.handleUpload(w, r, http.StatusOK, s.service.Preview)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.handleUpload(w, r, http.StatusCreated, s.service.Import)
}

// handleUpload reads the multipart "file" field and runs it through run.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, okStatus int,
	run func(context.Context, string, io.Reader) (*core.ImportReport, error)) {

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
		} else {
			err = fmt.Errorf("%w: %v", errBadForm, err)
		}
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	report, err := run(requestContext(r), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(okStatus)
		_ = templates.ImportReport(report).Render(r.Context(), w)
		return
	}
	writeJSON(w, r, okStatus, report)
}

func (s *Server) handleListBuildings(w http.ResponseWriter, r *http.Request) {
	buildings, err := s.service.ListBuildings(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, buildings)
}

func (s *Server) handleGetBuilding(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.GetBuilding(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, b)
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultImportHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, r, http.StatusBadRequest, ErrorResponse{
				Error: "invalid limit", Message: "limit must be a positive integer", Code: "REQ001",
			})
			return
		}
		limit = n
	}

	records, err := s.service.ListImports(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, records)
}

type healthResponse struct {
	Status   string             `json:"status"`
	Database string             `json:"database,omitempty"`
	Imports  core.LimiterStatus `json:"imports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Imports: s.service.LimiterStatus()}
	status := http.StatusOK

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	writeJSON(w, r, status, resp)
}
