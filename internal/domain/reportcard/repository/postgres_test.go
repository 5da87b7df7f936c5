package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/normalizer"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
)

var classColumns = []string{"id", "name", "shift", "year", "created_at"}
var studentColumns = []string{"id", "class_id", "name", "birth_date", "sex", "status"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresRepository_FindOrCreateClass(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	classID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO classes`).
		WithArgs("6º ANO A", "MATUTINO", 2025, parser.UnknownShift).
		WillReturnRows(pgxmock.NewRows(classColumns).
			AddRow(classID, "6º ANO A", "MATUTINO", 2025, now))

	class, err := repo.FindOrCreateClass(context.Background(), "6º ANO A", "MATUTINO", 2025)
	require.NoError(t, err)

	assert.Equal(t, classID, class.ID)
	assert.Equal(t, "MATUTINO", class.Shift)
	assert.Equal(t, 2025, class.Year)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpsertStudent(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	classID, studentID := uuid.New(), uuid.New()
	student := parser.ParsedStudent{
		Name:      "MARIA SILVA",
		BirthDate: "01/02/2010",
		Sex:       "F",
		Result:    parser.StatusAprovado,
	}

	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs(classID, "MARIA SILVA", "01/02/2010", "F", "APROVADO").
		WillReturnRows(pgxmock.NewRows(studentColumns).
			AddRow(studentID, classID, "MARIA SILVA", "01/02/2010", "F", "APROVADO"))

	s, err := repo.UpsertStudent(context.Background(), classID, student)
	require.NoError(t, err)

	assert.Equal(t, studentID, s.ID)
	assert.Equal(t, "APROVADO", s.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpsertResult(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	studentID := uuid.New()
	mock.ExpectExec(`INSERT INTO results`).
		WithArgs(studentID, normalizer.Matematica, 72.5, ResultDescription).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.UpsertResult(context.Background(), studentID, normalizer.Matematica, 72.5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveClass(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	classID, mariaID, joaoID := uuid.New(), uuid.New(), uuid.New()
	class := parser.ParsedClass{
		ClassName: "6º ANO A",
		Shift:     "MATUTINO",
		Students: []parser.ParsedStudent{
			{
				Name: "MARIA SILVA", BirthDate: "01/02/2010", Sex: "F",
				Grades: map[string]float64{normalizer.Portugues: 65.3, normalizer.Arte: 78.0},
				Result: parser.StatusAprovado,
			},
			{
				Name: "JOAO PEREIRA", BirthDate: "01/02/2010", Sex: "M",
				Grades: map[string]float64{},
				Result: parser.StatusCancelado,
			},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO classes`).
		WithArgs("6º ANO A", "MATUTINO", 2025, parser.UnknownShift).
		WillReturnRows(pgxmock.NewRows(classColumns).
			AddRow(classID, "6º ANO A", "MATUTINO", 2025, time.Now()))
	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs(classID, "MARIA SILVA", "01/02/2010", "F", "APROVADO").
		WillReturnRows(pgxmock.NewRows(studentColumns).
			AddRow(mariaID, classID, "MARIA SILVA", "01/02/2010", "F", "APROVADO"))
	// subjects are written in sorted order
	mock.ExpectExec(`INSERT INTO results`).
		WithArgs(mariaID, normalizer.Arte, 78.0, ResultDescription).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO results`).
		WithArgs(mariaID, normalizer.Portugues, 65.3, ResultDescription).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs(classID, "JOAO PEREIRA", "01/02/2010", "M", "CANCELADO").
		WillReturnRows(pgxmock.NewRows(studentColumns).
			AddRow(joaoID, classID, "JOAO PEREIRA", "01/02/2010", "M", "CANCELADO"))
	mock.ExpectCommit()

	result, err := repo.SaveClass(context.Background(), class, 2025)
	require.NoError(t, err)

	assert.Equal(t, classID, result.ClassID)
	assert.Equal(t, 2, result.Students)
	assert.Equal(t, 2, result.Results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveClassRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	classID := uuid.New()
	class := parser.ParsedClass{
		ClassName: "7º ANO B",
		Shift:     parser.UnknownShift,
		Students:  []parser.ParsedStudent{{Name: "LUCAS OLIVEIRA", Result: parser.StatusAprovado}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO classes`).
		WithArgs("7º ANO B", parser.UnknownShift, 2025, parser.UnknownShift).
		WillReturnRows(pgxmock.NewRows(classColumns).
			AddRow(classID, "7º ANO B", "VESPERTINO", 2025, time.Now()))
	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs(classID, "LUCAS OLIVEIRA", "", "", "APROVADO").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.SaveClass(context.Background(), class, 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LUCAS OLIVEIRA")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListClasses(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	classA, classB := uuid.New(), uuid.New()
	maria, joao, ana := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT c.id, c.name, c.shift`).
		WithArgs(2025).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "shift", "id", "name", "birth_date", "sex", "status", "subject", "score",
		}).
			AddRow(classA, "6º ANO A", "MATUTINO", joao, "JOAO PEREIRA", "", "M", "CANCELADO", "", 0.0).
			AddRow(classA, "6º ANO A", "MATUTINO", maria, "MARIA SILVA", "01/02/2010", "F", "APROVADO", normalizer.Arte, 78.0).
			AddRow(classA, "6º ANO A", "MATUTINO", maria, "MARIA SILVA", "01/02/2010", "F", "APROVADO", normalizer.Portugues, 65.3).
			AddRow(classB, "7º ANO B", "VESPERTINO", ana, "ANA SOUZA", "", "F", "REPROVADO", normalizer.Matematica, 40.0))

	classes, err := repo.ListClasses(context.Background(), 2025)
	require.NoError(t, err)

	require.Len(t, classes, 2)
	require.Len(t, classes[0].Students, 2)
	assert.Empty(t, classes[0].Students[0].Grades)
	assert.Equal(t, map[string]float64{
		normalizer.Arte:      78.0,
		normalizer.Portugues: 65.3,
	}, classes[0].Students[1].Grades)
	assert.Equal(t, "VESPERTINO", classes[1].Shift)
	assert.Equal(t, parser.StatusReprovado, classes[1].Students[0].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ImportJobs(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	ctx := context.Background()

	jobID := uuid.New()
	mock.ExpectQuery(`INSERT INTO import_jobs`).
		WithArgs("ata-6a.pdf", "pdf", string(JobPending)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(jobID))

	id, err := repo.CreateImportJob(ctx, "ata-6a.pdf", "pdf")
	require.NoError(t, err)
	assert.Equal(t, jobID, id)

	job := ImportJob{ID: jobID, Status: JobCompleted, Classes: 1, Students: 32, Results: 280, DroppedLines: 2}
	mock.ExpectExec(`UPDATE import_jobs`).
		WithArgs(jobID, "completed", 1, 32, 280, 2, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.FinishImportJob(ctx, job))

	mock.ExpectExec(`UPDATE import_jobs`).
		WithArgs(jobID, "completed", 1, 32, 280, 2, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.Error(t, repo.FinishImportJob(ctx, job))

	assert.NoError(t, mock.ExpectationsWereMet())
}
