package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
)

// PostgresRepository implements ReportCardRepository using PostgreSQL
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a new PostgreSQL-backed report-card repository
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SaveClass writes the class, its students and their grades in one transaction.
// Re-importing the same document updates rows in place.
func (r *PostgresRepository) SaveClass(ctx context.Context, class parser.ParsedClass, year int) (*SaveResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	result, err := saveClass(ctx, tx, class, year)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit class %s: %w", class.ClassName, err)
	}
	return result, nil
}

func saveClass(ctx context.Context, q querier, class parser.ParsedClass, year int) (*SaveResult, error) {
	c, err := findOrCreateClass(ctx, q, class.ClassName, class.Shift, year)
	if err != nil {
		return nil, err
	}

	result := &SaveResult{ClassID: c.ID}
	for _, ps := range class.Students {
		s, err := upsertStudent(ctx, q, c.ID, ps)
		if err != nil {
			return nil, err
		}
		result.Students++

		// stable statement order
		subjects := make([]string, 0, len(ps.Grades))
		for subject := range ps.Grades {
			subjects = append(subjects, subject)
		}
		sort.Strings(subjects)

		for _, subject := range subjects {
			if err := upsertResult(ctx, q, s.ID, subject, ps.Grades[subject]); err != nil {
				return nil, err
			}
			result.Results++
		}
	}
	return result, nil
}

// FindOrCreateClass finds a class by name and year, creating it when absent.
// A known shift replaces the stored one; the unknown-shift sentinel never does.
func (r *PostgresRepository) FindOrCreateClass(ctx context.Context, name, shift string, year int) (*Class, error) {
	return findOrCreateClass(ctx, r.db, name, shift, year)
}

func findOrCreateClass(ctx context.Context, q querier, name, shift string, year int) (*Class, error) {
	query := `
		INSERT INTO classes (name, shift, year)
		VALUES ($1, $2, $3)
		ON CONFLICT (name, year) DO UPDATE SET
			shift = CASE WHEN EXCLUDED.shift = $4 THEN classes.shift ELSE EXCLUDED.shift END,
			updated_at = now()
		RETURNING id, name, shift, year, created_at
	`

	var c Class
	err := q.QueryRow(ctx, query, name, shift, year, parser.UnknownShift).Scan(
		&c.ID, &c.Name, &c.Shift, &c.Year, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert class %s: %w", name, err)
	}
	return &c, nil
}

// UpsertStudent finds a student by name within a class, creating or updating
// birth date, sex and status.
func (r *PostgresRepository) UpsertStudent(ctx context.Context, classID uuid.UUID, student parser.ParsedStudent) (*Student, error) {
	return upsertStudent(ctx, r.db, classID, student)
}

func upsertStudent(ctx context.Context, q querier, classID uuid.UUID, student parser.ParsedStudent) (*Student, error) {
	query := `
		INSERT INTO students (class_id, name, birth_date, sex, status)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		ON CONFLICT (class_id, name) DO UPDATE SET
			birth_date = EXCLUDED.birth_date,
			sex = EXCLUDED.sex,
			status = EXCLUDED.status,
			updated_at = now()
		RETURNING id, class_id, name, COALESCE(birth_date, ''), COALESCE(sex, ''), status
	`

	var s Student
	err := q.QueryRow(ctx, query,
		classID,
		student.Name,
		student.BirthDate,
		student.Sex,
		string(student.Result),
	).Scan(&s.ID, &s.ClassID, &s.Name, &s.BirthDate, &s.Sex, &s.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert student %s: %w", student.Name, err)
	}
	return &s, nil
}

// UpsertResult stores the yearly average for one student and subject
func (r *PostgresRepository) UpsertResult(ctx context.Context, studentID uuid.UUID, subject string, score float64) error {
	return upsertResult(ctx, r.db, studentID, subject, score)
}

func upsertResult(ctx context.Context, q querier, studentID uuid.UUID, subject string, score float64) error {
	query := `
		INSERT INTO results (student_id, subject, score, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, subject) DO UPDATE SET
			score = EXCLUDED.score,
			updated_at = now()
	`
	if _, err := q.Exec(ctx, query, studentID, subject, score, ResultDescription); err != nil {
		return fmt.Errorf("failed to upsert result %s: %w", subject, err)
	}
	return nil
}

// ListClasses rebuilds the parsed rosters of a school year for aggregation
func (r *PostgresRepository) ListClasses(ctx context.Context, year int) ([]parser.ParsedClass, error) {
	query := `
		SELECT c.id, c.name, c.shift, s.id, s.name,
			COALESCE(s.birth_date, ''), COALESCE(s.sex, ''), s.status,
			COALESCE(r.subject, ''), COALESCE(r.score, 0)::float8
		FROM classes c
		JOIN students s ON s.class_id = c.id
		LEFT JOIN results r ON r.student_id = s.id
		WHERE c.year = $1
		ORDER BY c.name, s.name, r.subject
	`

	rows, err := r.db.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	var classes []parser.ParsedClass
	classIdx := make(map[uuid.UUID]int)
	var lastStudent uuid.UUID

	for rows.Next() {
		var (
			classID, studentID           uuid.UUID
			className, shift, name       string
			birthDate, sex, status, subj string
			score                        float64
		)
		if err := rows.Scan(&classID, &className, &shift, &studentID, &name,
			&birthDate, &sex, &status, &subj, &score); err != nil {
			return nil, fmt.Errorf("failed to scan class row: %w", err)
		}

		ci, ok := classIdx[classID]
		if !ok {
			ci = len(classes)
			classIdx[classID] = ci
			classes = append(classes, parser.ParsedClass{ClassName: className, Shift: shift})
		}

		class := &classes[ci]
		if studentID != lastStudent || len(class.Students) == 0 {
			class.Students = append(class.Students, parser.ParsedStudent{
				Name:      name,
				BirthDate: birthDate,
				Sex:       sex,
				Grades:    make(map[string]float64),
				Result:    parser.Status(status),
			})
			lastStudent = studentID
		}
		if subj != "" {
			class.Students[len(class.Students)-1].Grades[subj] = score
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classes: %w", err)
	}
	return classes, nil
}

// CreateImportJob records a pending import and returns its ID
func (r *PostgresRepository) CreateImportJob(ctx context.Context, fileName, format string) (uuid.UUID, error) {
	query := `
		INSERT INTO import_jobs (file_name, format, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, fileName, format, string(JobPending)).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create import job: %w", err)
	}
	return id, nil
}

// FinishImportJob stores the final counters and status of an import job
func (r *PostgresRepository) FinishImportJob(ctx context.Context, job ImportJob) error {
	query := `
		UPDATE import_jobs SET
			status = $2,
			classes = $3,
			students = $4,
			results = $5,
			dropped_lines = $6,
			error_message = $7,
			finished_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		job.ID,
		string(job.Status),
		job.Classes,
		job.Students,
		job.Results,
		job.DroppedLines,
		job.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to finish import job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import job %s not found", job.ID)
	}
	return nil
}

// ListImportJobs returns the most recent import jobs
func (r *PostgresRepository) ListImportJobs(ctx context.Context, limit int) ([]ImportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, file_name, format, status, classes, students, results,
			dropped_lines, error_message, created_at, finished_at
		FROM import_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	defer rows.Close()

	var jobs []ImportJob
	for rows.Next() {
		var j ImportJob
		var status string
		if err := rows.Scan(
			&j.ID, &j.FileName, &j.Format, &status, &j.Classes, &j.Students,
			&j.Results, &j.DroppedLines, &j.ErrorMessage, &j.CreatedAt, &j.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import job: %w", err)
		}
		j.Status = JobStatus(status)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
