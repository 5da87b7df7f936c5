// Package repository persists parsed report cards: classes, students,
// per-subject results and import jobs.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
)

// ResultDescription labels the single yearly average stored per subject
const ResultDescription = "Média Anual"

// JobStatus is the lifecycle state of an import job
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Class is a persisted class roster header
type Class struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Shift     string    `json:"shift"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"created_at"`
}

// Student is a persisted student
type Student struct {
	ID        uuid.UUID `json:"id"`
	ClassID   uuid.UUID `json:"class_id"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birth_date,omitempty"`
	Sex       string    `json:"sex,omitempty"`
	Status    string    `json:"status"`
}

// ImportJob tracks one imported file
type ImportJob struct {
	ID           uuid.UUID  `json:"id"`
	FileName     string     `json:"file_name"`
	Format       string     `json:"format"`
	Status       JobStatus  `json:"status"`
	Classes      int        `json:"classes"`
	Students     int        `json:"students"`
	Results      int        `json:"results"`
	DroppedLines int        `json:"dropped_lines"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// SaveResult counts what one SaveClass call wrote
type SaveResult struct {
	ClassID  uuid.UUID
	Students int
	Results  int
}

// DB is the subset of pgxpool.Pool the repository uses
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReportCardRepository defines the interface for report-card data access
type ReportCardRepository interface {
	// SaveClass persists a parsed class and all its students and grades atomically
	SaveClass(ctx context.Context, class parser.ParsedClass, year int) (*SaveResult, error)
	FindOrCreateClass(ctx context.Context, name, shift string, year int) (*Class, error)
	UpsertStudent(ctx context.Context, classID uuid.UUID, student parser.ParsedStudent) (*Student, error)
	UpsertResult(ctx context.Context, studentID uuid.UUID, subject string, score float64) error
	ListClasses(ctx context.Context, year int) ([]parser.ParsedClass, error)

	CreateImportJob(ctx context.Context, fileName, format string) (uuid.UUID, error)
	FinishImportJob(ctx context.Context, job ImportJob) error
	ListImportJobs(ctx context.Context, limit int) ([]ImportJob, error)
}
