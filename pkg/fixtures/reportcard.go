// Package fixtures generates synthetic report-card documents for tests and
// benchmarks. Every generated document is paired with the roster a correct
// parser must recover from it.
package fixtures

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/normalizer"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
)

// Generator generates report-card text using gofakeit.
type Generator struct {
	faker      *gofakeit.Faker
	classifier *parser.Classifier
	subjects   []string
}

// NewGenerator creates a generator with a random seed.
func NewGenerator() *Generator {
	return NewGeneratorWithSeed(0)
}

// NewGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{
		faker:      gofakeit.New(seed),
		classifier: parser.NewClassifier(parser.DefaultChromeKeywords),
		subjects:   normalizer.DefaultSubjectOrder,
	}
}

// WithSubjects sets the subject ordering used to render grade blobs
func (g *Generator) WithSubjects(subjects []string) *Generator {
	g.subjects = subjects
	return g
}

// ============================================================================
// Documents
// ============================================================================

// Document is a rendered report card and the roster it encodes
type Document struct {
	Lines    []string
	Expected parser.ParsedClass
}

// Text joins the document lines the way a text-layer decoder emits them
func (d Document) Text() string {
	return strings.Join(d.Lines, "\n")
}

// Document renders a single-class report card with the given number of students.
// Layouts are mixed: inline records, names wrapped over up to three lines,
// page furniture between records, and withdrawn students with dashed grades.
func (g *Generator) Document(students int) Document {
	className := fmt.Sprintf("%dº ANO %s", g.faker.IntRange(6, 9), g.faker.RandomString([]string{"A", "B", "C", "D"}))
	shift := g.faker.RandomString(parser.Shifts)

	doc := Document{
		Lines: []string{
			"Prefeitura Municipal de " + g.faker.City(),
			"Secretaria Municipal de Educação",
			"ATA DE RESULTADOS FINAIS",
			className + " " + shift,
			"Alunos Nascimento SEXO DISCIPLINAS RESULTADO",
		},
		Expected: parser.ParsedClass{
			ClassName: className,
			Shift:     shift,
			Students:  make([]parser.ParsedStudent, 0, students),
		},
	}

	for i := 0; i < students; i++ {
		if i > 0 && g.faker.Number(1, 10) == 1 {
			doc.Lines = append(doc.Lines, "Escola Municipal "+g.faker.LastName(), "Turma "+className)
		}

		student, blob := g.Student()
		doc.Lines = append(doc.Lines, g.render(student, blob)...)
		doc.Expected.Students = append(doc.Expected.Students, student)
	}

	doc.Lines = append(doc.Lines, "Assinatura do Secretário", "Assinatura do Diretor")
	return doc
}

// render lays one student out as either an inline or a continuation record
func (g *Generator) render(s parser.ParsedStudent, blob string) []string {
	sep := g.faker.RandomString([]string{"", " "})
	suffix := s.BirthDate + sep + s.Sex + sep + blob + string(s.Result)

	if g.faker.Bool() {
		return []string{s.Name + sep + suffix}
	}
	return append(g.fragments(s.Name), suffix)
}

// fragments splits a name into at most three lines of three or more runes
func (g *Generator) fragments(name string) []string {
	words := strings.Fields(name)
	if len(words) < 2 || g.faker.Bool() {
		return []string{name}
	}

	frags := make([]string, 0, parser.DefaultBufferCap)
	for _, w := range words {
		last := len(frags) - 1
		if last >= 0 && (utf8.RuneCountInString(frags[last]) < 3 || len(frags) == parser.DefaultBufferCap) {
			frags[last] += " " + w
			continue
		}
		frags = append(frags, w)
	}
	if last := len(frags) - 1; last > 0 && utf8.RuneCountInString(frags[last]) < 3 {
		frags[last-1] += " " + frags[last]
		frags = frags[:last]
	}
	return frags
}

// ============================================================================
// Students
// ============================================================================

// Student generates one student and the grade blob that encodes their grades
func (g *Generator) Student() (parser.ParsedStudent, string) {
	status := g.Status()
	s := parser.ParsedStudent{
		Name:      g.Name(),
		BirthDate: g.BirthDate(),
		Sex:       g.faker.RandomString([]string{"M", "F"}),
		Grades:    make(map[string]float64),
		Result:    status,
	}

	if status == parser.StatusTransferido || status == parser.StatusCancelado {
		return s, strings.Repeat("-", 2*len(g.subjects))
	}

	var sb strings.Builder
	for _, subject := range g.subjects {
		if g.faker.Number(1, 20) == 1 {
			sb.WriteString("--")
			continue
		}
		grade := g.Grade()
		s.Grades[subject] = grade
		sb.WriteString(FormatGrade(grade))
	}
	// a row of placeholders only is indistinguishable from a withdrawn student
	if len(s.Grades) == 0 {
		grade := g.Grade()
		s.Grades[g.subjects[0]] = grade
		return s, FormatGrade(grade) + strings.Repeat("--", len(g.subjects)-1)
	}
	return s, sb.String()
}

// Name generates an upper-case student name that no page-furniture keyword matches
func (g *Generator) Name() string {
	for {
		parts := []string{g.faker.FirstName(), g.faker.LastName()}
		if g.faker.Bool() {
			parts = append(parts, g.faker.LastName())
		}
		name := strings.ToUpper(strings.Join(parts, " "))
		if utf8.RuneCountInString(name) >= 3 && !g.classifier.IsChrome(name) {
			return name
		}
	}
}

// BirthDate generates a DD/MM/YYYY date for a middle-school student
func (g *Generator) BirthDate() string {
	start := time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2014, 12, 31, 0, 0, 0, 0, time.UTC)
	return g.faker.DateRange(start, end).Format("02/01/2006")
}

// Grade generates a grade in [0, 100] with one decimal place
func (g *Generator) Grade() float64 {
	return float64(g.faker.Number(0, 1000)) / 10
}

// Status generates a final outcome, weighted towards approval
func (g *Generator) Status() parser.Status {
	switch n := g.faker.Number(1, 20); {
	case n <= 14:
		return parser.StatusAprovado
	case n <= 16:
		return parser.StatusReprovado
	case n == 17:
		return parser.StatusAPCC
	case n == 18:
		return parser.StatusDesistente
	case n == 19:
		return parser.StatusTransferido
	default:
		return parser.StatusCancelado
	}
}

// FormatGrade renders a grade with a decimal comma and one fractional digit
func FormatGrade(v float64) string {
	return strings.Replace(fmt.Sprintf("%.1f", v), ".", ",", 1)
}
