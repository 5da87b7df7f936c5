// Package handler exposes report-card import, dashboard and search over HTTP.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/export"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/insights"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/repository"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/search"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/service"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/stats"
	"github.com/FACorreiaa/report-card-importer/pkg/storage"
)

const (
	defaultMaxUpload   = 20 << 20
	defaultSearchLimit = 20
	uploadField        = "file"
)

// Importer is the subset of the import service the handler needs
type Importer interface {
	ImportFile(ctx context.Context, filename string, data []byte) (*service.ImportResult, error)
	Parse(ctx context.Context, filename string, data []byte) (*service.ParseReport, error)
	SchoolYear() int
}

// Reader loads persisted rosters and import jobs
type Reader interface {
	ListClasses(ctx context.Context, year int) ([]parser.ParsedClass, error)
	ListImportJobs(ctx context.Context, limit int) ([]repository.ImportJob, error)
}

// Searcher looks students up by name or status
type Searcher interface {
	Search(text string, limit int) ([]search.StudentHit, error)
	ByStatus(status parser.Status, limit int) ([]search.StudentHit, error)
}

// ReportCardHandler serves the report-card API
type ReportCardHandler struct {
	importer  Importer
	reader    Reader
	store     storage.Storage // Optional: uploads are not kept when nil
	index     Searcher        // Optional: search returns 503 when nil
	maxUpload int64
	logger    *slog.Logger
}

// NewReportCardHandler creates a new report-card handler
func NewReportCardHandler(importer Importer, reader Reader, logger *slog.Logger) *ReportCardHandler {
	return &ReportCardHandler{
		importer:  importer,
		reader:    reader,
		maxUpload: defaultMaxUpload,
		logger:    logger,
	}
}

// WithStorage keeps every upload on disk
func (h *ReportCardHandler) WithStorage(store storage.Storage) *ReportCardHandler {
	h.store = store
	return h
}

// WithSearch enables student search
func (h *ReportCardHandler) WithSearch(index Searcher) *ReportCardHandler {
	h.index = index
	return h
}

// WithMaxUpload bounds the size of one uploaded file in bytes
func (h *ReportCardHandler) WithMaxUpload(n int64) *ReportCardHandler {
	if n > 0 {
		h.maxUpload = n
	}
	return h
}

// RegisterHTTP registers the API routes
func (h *ReportCardHandler) RegisterHTTP(r chi.Router) {
	r.Post("/api/import", h.handleImport)
	r.Post("/api/parse", h.handleParse)
	r.Get("/api/import/jobs", h.handleJobs)
	r.Get("/api/dashboard", h.handleDashboard)
	r.Get("/api/insights", h.handleInsights)
	r.Get("/api/export.csv", h.handleExport)
	r.Get("/api/students/search", h.handleSearch)
}

type uploadedFile struct {
	name        string
	contentType string
	data        []byte
}

// fileOutcome is the per-file entry of an import response
type fileOutcome struct {
	File   string                `json:"file"`
	FileID string                `json:"file_id,omitempty"`
	Result *service.ImportResult `json:"result,omitempty"`
	Queued bool                  `json:"queued,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// handleImport imports every uploaded file. With ?async=true files are only
// stored and left for the scheduled inbox scan.
// POST /api/import
func (h *ReportCardHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	files, err := h.readUploads(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	async := r.URL.Query().Get("async") == "true"
	if async && h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "upload storage is not configured")
		return
	}

	outcomes := make([]fileOutcome, 0, len(files))
	failed := 0
	for _, f := range files {
		out := fileOutcome{File: f.name}

		var info *storage.FileInfo
		if h.store != nil {
			// sync uploads bypass the inbox so the scheduled scan never sees them
			save := h.store.SaveClaimed
			if async {
				save = h.store.Save
			}
			info, err = save(r.Context(), f.name, f.contentType, bytes.NewReader(f.data))
			if err != nil {
				h.logger.Error("failed to store upload", slog.String("file", f.name), slog.Any("error", err))
				out.Error = "failed to store upload"
				failed++
				outcomes = append(outcomes, out)
				continue
			}
			out.FileID = info.ID.String()
		}

		if async {
			out.Queued = true
			outcomes = append(outcomes, out)
			continue
		}

		result, err := h.importer.ImportFile(r.Context(), f.name, f.data)
		if err != nil {
			out.Error = err.Error()
			failed++
		} else {
			out.Result = result
		}

		if info != nil {
			if cerr := h.store.Complete(r.Context(), info.ID, err == nil); cerr != nil {
				h.logger.Warn("failed to file upload", slog.String("file", f.name), slog.Any("error", cerr))
			}
		}
		outcomes = append(outcomes, out)
	}

	status := http.StatusOK
	switch {
	case async:
		status = http.StatusAccepted
	case failed == len(files):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{"files": outcomes})
}

// handleParse parses one upload without storing it. ?format=csv returns the
// roster as CSV.
// POST /api/parse
func (h *ReportCardHandler) handleParse(w http.ResponseWriter, r *http.Request) {
	files, err := h.readUploads(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one file is required")
		return
	}

	report, err := h.importer.Parse(r.Context(), files[0].name, files[0].data)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, h.logger, report.Classes)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GET /api/import/jobs
func (h *ReportCardHandler) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := h.reader.ListImportJobs(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list import jobs", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list import jobs")
		return
	}
	if jobs == nil {
		jobs = []repository.ImportJob{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// GET /api/dashboard
func (h *ReportCardHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	classes, ok := h.loadClasses(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(classes))
}

// GET /api/insights
func (h *ReportCardHandler) handleInsights(w http.ResponseWriter, r *http.Request) {
	classes, ok := h.loadClasses(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, insights.Analyze(classes))
}

// GET /api/export.csv
func (h *ReportCardHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	classes, ok := h.loadClasses(w, r)
	if !ok {
		return
	}
	writeCSV(w, h.logger, classes)
}

// handleSearch matches ?q= against student names, or lists ?status= matches
// GET /api/students/search
func (h *ReportCardHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not available")
		return
	}

	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultSearchLimit
	}

	var hits []search.StudentHit
	switch {
	case q.Get("status") != "":
		hits, err = h.index.ByStatus(parser.Status(strings.ToUpper(q.Get("status"))), limit)
	case strings.TrimSpace(q.Get("q")) != "":
		hits, err = h.index.Search(q.Get("q"), limit)
	default:
		writeError(w, http.StatusBadRequest, "q or status is required")
		return
	}
	if err != nil {
		h.logger.Error("student search failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if hits == nil {
		hits = []search.StudentHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": hits})
}

func (h *ReportCardHandler) loadClasses(w http.ResponseWriter, r *http.Request) ([]parser.ParsedClass, bool) {
	year := h.importer.SchoolYear()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return nil, false
		}
		year = y
	}

	classes, err := h.reader.ListClasses(r.Context(), year)
	if err != nil {
		h.logger.Error("failed to list classes", slog.Int("year", year), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load classes")
		return nil, false
	}
	return classes, true
}

func (h *ReportCardHandler) readUploads(w http.ResponseWriter, r *http.Request) ([]uploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload*4)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		return nil, errors.New("no file uploaded")
	}

	files := make([]uploadedFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.maxUpload {
			return nil, fmt.Errorf("%s exceeds the upload limit", fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		files = append(files, uploadedFile{
			name:        fh.Filename,
			contentType: fh.Header.Get("Content-Type"),
			data:        data,
		})
	}
	return files, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, parser.ErrDecodeFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeCSV(w http.ResponseWriter, logger *slog.Logger, classes []parser.ParsedClass) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="boletins.csv"`)
	if err := export.WriteCSV(w, classes, nil); err != nil {
		logger.Error("failed to write csv", slog.Any("error", err))
	}
}
