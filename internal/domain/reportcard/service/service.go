// Package service provides the report-card import orchestration logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/repository"
	"github.com/FACorreiaa/report-card-importer/pkg/metrics"
)

const (
	defaultSchoolYear = 2025
	defaultTimeout    = 30 * time.Second
)

// PDFParser parses report-card PDFs
type PDFParser interface {
	ParsePDF(ctx context.Context, data []byte) (*parser.PDFResult, error)
}

// StudentIndexer receives every successfully imported roster
type StudentIndexer interface {
	IndexClasses(classes []parser.ParsedClass) error
}

// ParseReport is the outcome of parsing one file without persisting it
type ParseReport struct {
	Format  Format               `json:"format"`
	Classes []parser.ParsedClass `json:"classes"`
	Stats   parser.ParseStats    `json:"stats"`
	Errors  []string             `json:"errors,omitempty"`
}

// Dropped counts the lines and fragments the parser discarded
func (r *ParseReport) Dropped() int {
	return r.Stats.RejectedLines + r.Stats.OrphanRecords + r.Stats.DroppedFrags + len(r.Errors)
}

// Students counts the student records across all classes
func (r *ParseReport) Students() int {
	n := 0
	for _, c := range r.Classes {
		n += len(c.Students)
	}
	return n
}

// ImportResult contains the result of an import operation
type ImportResult struct {
	JobID    uuid.UUID `json:"job_id"`
	File     string    `json:"file"`
	Format   Format    `json:"format"`
	Classes  int       `json:"classes"`
	Students int       `json:"students"`
	Results  int       `json:"results"`
	Dropped  int       `json:"dropped"`
	Errors   []string  `json:"errors,omitempty"`
}

// FileInput is one document submitted to a batch import
type FileInput struct {
	Name string
	Data []byte
}

// FileError reports a document that failed inside a batch
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// BatchResult holds per-file outcomes in input order
type BatchResult struct {
	Results []*ImportResult
	Errors  []*FileError
}

// ImportService orchestrates parsing and persistence of report cards
type ImportService struct {
	repo    repository.ReportCardRepository
	pdf     PDFParser
	excel   *parser.ExcelParser
	index   StudentIndexer // Optional: nil if search is not available
	metrics *metrics.Recorder
	tracer  trace.Tracer
	year    int
	timeout time.Duration
	workers int
	logger  *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(repo repository.ReportCardRepository, pdf PDFParser, excel *parser.ExcelParser, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:    repo,
		pdf:     pdf,
		excel:   excel,
		tracer:  otel.Tracer("reportcard/service"),
		year:    defaultSchoolYear,
		timeout: defaultTimeout,
		workers: runtime.GOMAXPROCS(0),
		logger:  logger,
	}
}

// WithStudentIndex adds search indexing of imported rosters
func (s *ImportService) WithStudentIndex(index StudentIndexer) *ImportService {
	s.index = index
	return s
}

// WithMetrics adds Prometheus instrumentation
func (s *ImportService) WithMetrics(m *metrics.Recorder) *ImportService {
	s.metrics = m
	return s
}

// WithSchoolYear sets the year classes are filed under
func (s *ImportService) WithSchoolYear(year int) *ImportService {
	if year > 0 {
		s.year = year
	}
	return s
}

// WithTimeout bounds the time spent on one document
func (s *ImportService) WithTimeout(d time.Duration) *ImportService {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithWorkers sets the batch worker count
func (s *ImportService) WithWorkers(n int) *ImportService {
	if n > 0 {
		s.workers = n
	}
	return s
}

// SchoolYear returns the configured school year
func (s *ImportService) SchoolYear() int {
	return s.year
}

// Parse decodes a document into class rosters without touching the database
func (s *ImportService) Parse(ctx context.Context, filename string, data []byte) (*ParseReport, error) {
	format, err := DetectFormat(filename, data)
	if err != nil {
		return nil, err
	}

	report := &ParseReport{Format: format}
	switch format {
	case FormatPDF:
		res, err := s.pdf.ParsePDF(ctx, data)
		if err != nil {
			return nil, err
		}
		report.Classes = res.Classes
		report.Stats = res.Stats

	case FormatExcel:
		res, err := s.excel.ParseExcel(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		report.Classes = res.Classes
		for _, e := range res.Errors {
			report.Errors = append(report.Errors, e.Error())
		}
		report.Stats.Students = report.Students()
	}
	return report, nil
}

// ImportFile parses one document and persists every class it contains.
// The whole operation is bounded by the configured per-document timeout.
func (s *ImportService) ImportFile(ctx context.Context, filename string, data []byte) (*ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "ImportFile", trace.WithAttributes(
		attribute.String("file.name", filename),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()

	format, err := DetectFormat(filename, data)
	if err != nil {
		s.metrics.ObserveFailure("unknown", "format")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("file.format", string(format)))

	jobID, err := s.repo.CreateImportJob(ctx, filename, string(format))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start := time.Now()
	result, err := s.importDocument(ctx, jobID, filename, format, data)
	if err != nil {
		reason := failureReason(err)
		s.metrics.ObserveFailure(string(format), reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)

		msg := err.Error()
		// the document context may already be cancelled
		finishCtx := context.WithoutCancel(ctx)
		if ferr := s.repo.FinishImportJob(finishCtx, repository.ImportJob{
			ID:           jobID,
			Status:       repository.JobFailed,
			ErrorMessage: &msg,
		}); ferr != nil {
			s.logger.Error("failed to record failed import job", slog.Any("error", ferr))
		}
		return nil, err
	}

	if err := s.repo.FinishImportJob(ctx, repository.ImportJob{
		ID:           jobID,
		Status:       repository.JobCompleted,
		Classes:      result.Classes,
		Students:     result.Students,
		Results:      result.Results,
		DroppedLines: result.Dropped,
	}); err != nil {
		s.logger.Warn("failed to finish import job", slog.String("job_id", jobID.String()), slog.Any("error", err))
	}

	s.metrics.ObserveDocument(string(format), result.Students, time.Since(start))
	span.SetAttributes(attribute.Int("import.students", result.Students))

	s.logger.Info("document imported",
		slog.String("file", filename),
		slog.String("format", string(format)),
		slog.Int("classes", result.Classes),
		slog.Int("students", result.Students),
		slog.Int("results", result.Results),
		slog.Int("dropped", result.Dropped),
		slog.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (s *ImportService) importDocument(ctx context.Context, jobID uuid.UUID, filename string, format Format, data []byte) (*ImportResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.Parse(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveDropped("chrome", report.Stats.ChromeLines)
	s.metrics.ObserveDropped("rejected", report.Stats.RejectedLines)
	s.metrics.ObserveDropped("orphan", report.Stats.OrphanRecords)
	s.metrics.ObserveDropped("fragment", report.Stats.DroppedFrags)
	s.metrics.ObserveDropped("cell", len(report.Errors))

	if report.Stats.HeaderNotFound {
		s.logger.Warn("class header missing", slog.String("file", filename))
	}

	result := &ImportResult{
		JobID:   jobID,
		File:    filename,
		Format:  format,
		Dropped: report.Dropped(),
		Errors:  report.Errors,
	}

	for _, class := range report.Classes {
		saved, err := s.repo.SaveClass(ctx, class, s.year)
		if err != nil {
			return nil, fmt.Errorf("failed to save class %s: %w", class.ClassName, err)
		}
		result.Classes++
		result.Students += saved.Students
		result.Results += saved.Results
	}

	if s.index != nil {
		if err := s.index.IndexClasses(report.Classes); err != nil {
			s.logger.Warn("failed to index students", slog.String("file", filename), slog.Any("error", err))
		}
	}

	return result, nil
}

// ImportBatch imports documents concurrently. A failing document never stops
// the others; its error is reported in BatchResult.Errors.
func (s *ImportService) ImportBatch(ctx context.Context, files []FileInput) *BatchResult {
	results := make([]*ImportResult, len(files))
	errs := make([]*FileError, len(files))

	jobs := make(chan int)
	workerCount := min(s.workers, len(files))

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					errs[i] = &FileError{File: files[i].Name, Err: err}
					continue
				}
				results[i], errs[i] = s.importOne(ctx, files[i])
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range files {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	wg.Wait()

	batch := &BatchResult{}
	for i := range files {
		switch {
		case results[i] != nil:
			batch.Results = append(batch.Results, results[i])
		case errs[i] != nil:
			batch.Errors = append(batch.Errors, errs[i])
		default:
			// never dispatched
			batch.Errors = append(batch.Errors, &FileError{File: files[i].Name, Err: ctx.Err()})
		}
	}
	return batch
}

func (s *ImportService) importOne(ctx context.Context, f FileInput) (result *ImportResult, ferr *FileError) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while importing", slog.String("file", f.Name), slog.Any("panic", r))
			result = nil
			ferr = &FileError{File: f.Name, Err: fmt.Errorf("%w: %v", parser.ErrDecodeFailure, r)}
		}
	}()

	res, err := s.ImportFile(ctx, f.Name, f.Data)
	if err != nil {
		s.logger.Warn("document skipped", slog.String("file", f.Name), slog.Any("error", err))
		return nil, &FileError{File: f.Name, Err: err}
	}
	return res, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, parser.ErrDecodeFailure):
		return "decode"
	case errors.Is(err, ErrUnsupportedFormat):
		return "format"
	default:
		return "storage"
	}
}
