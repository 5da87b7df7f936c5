// Package export writes parsed rosters as flat CSV files.
package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/normalizer"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/repository"
)

var rosterHeader = []string{"turma", "turno", "nome", "nascimento", "sexo"}

// ResultRow is one student grade in long format
type ResultRow struct {
	ClassName   string  `csv:"turma"`
	Shift       string  `csv:"turno"`
	Name        string  `csv:"nome"`
	Subject     string  `csv:"disciplina"`
	Score       float64 `csv:"nota"`
	Description string  `csv:"descricao"`
	Result      string  `csv:"resultado"`
}

// WriteCSV writes one row per student with a column per subject. Subjects
// default to the canonical order, followed by any other subject found.
// Missing grades are left blank.
func WriteCSV(w io.Writer, classes []parser.ParsedClass, subjects []string) error {
	if len(subjects) == 0 {
		subjects = Columns(classes)
	}

	writer := gocsv.DefaultCSVWriter(w)
	header := append(append([]string{}, rosterHeader...), subjects...)
	header = append(header, "resultado")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, c := range classes {
		for _, s := range c.Students {
			row := make([]string, 0, len(header))
			row = append(row, c.ClassName, c.Shift, s.Name, s.BirthDate, s.Sex)
			for _, subject := range subjects {
				if g, ok := s.Grades[subject]; ok {
					row = append(row, strconv.FormatFloat(g, 'f', 1, 64))
				} else {
					row = append(row, "")
				}
			}
			row = append(row, string(s.Result))
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write %s: %w", s.Name, err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteResults writes one row per student and subject, the shape of the
// results table. Students without grades produce no rows.
func WriteResults(w io.Writer, classes []parser.ParsedClass) error {
	rows := make([]*ResultRow, 0)
	for _, c := range classes {
		for _, s := range c.Students {
			subjects := make([]string, 0, len(s.Grades))
			for subject := range s.Grades {
				subjects = append(subjects, subject)
			}
			sort.Strings(subjects)
			for _, subject := range subjects {
				rows = append(rows, &ResultRow{
					ClassName:   c.ClassName,
					Shift:       c.Shift,
					Name:        s.Name,
					Subject:     subject,
					Score:       s.Grades[subject],
					Description: repository.ResultDescription,
					Result:      string(s.Result),
				})
			}
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

// Columns returns the canonical subjects followed by the remaining subjects
// present in classes, sorted.
func Columns(classes []parser.ParsedClass) []string {
	seen := make(map[string]struct{})
	for _, c := range classes {
		for _, s := range c.Students {
			for subject := range s.Grades {
				seen[subject] = struct{}{}
			}
		}
	}

	cols := append([]string{}, normalizer.DefaultSubjectOrder...)
	for _, subject := range cols {
		delete(seen, subject)
	}
	var extra []string
	for subject := range seen {
		extra = append(extra, subject)
	}
	sort.Strings(extra)
	return append(cols, extra...)
}
