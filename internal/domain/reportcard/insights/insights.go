// Package insights derives rule-based pedagogical findings from class rosters.
// A Report covers subject levels, students at risk and class-wide patterns,
// plus the recommendations, interventions and curricular adjustments that
// follow from them.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/normalizer"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/stats"
)

// Level grades a subject average
type Level string

const (
	LevelCritical  Level = "CRÍTICO"
	LevelAlert     Level = "ALERTA"
	LevelAdequate  Level = "ADEQUADO"
	LevelExcellent Level = "EXCELENTE"
)

// Risk grades how likely a student is to fail the year
type Risk string

const (
	RiskHigh   Risk = "ALTO"
	RiskMedium Risk = "MÉDIO"
	RiskLow    Risk = "BAIXO"
)

var riskOrder = map[Risk]int{RiskHigh: 0, RiskMedium: 1, RiskLow: 2}

// Thresholds
const (
	passingGrade       = 60.0
	genderGapThreshold = 10.0
	correlationCutoff  = 0.5
	targetPassRate     = 60.0
	highPassRate       = 85.0
)

var (
	exactSubjects    = []string{normalizer.Matematica, normalizer.Ciencias, "Física", "Química"}
	mathSubjects     = []string{normalizer.Matematica, "Física", "Química"}
	humanitySubjects = []string{normalizer.Portugues, normalizer.Historia, normalizer.Geografia, normalizer.Filosofia, normalizer.Sociologia}
)

// GenderGap compares male and female averages in one subject
type GenderGap struct {
	Male       float64 `json:"male"`
	Female     float64 `json:"female"`
	Difference float64 `json:"difference"`
}

// SubjectAnalysis is the finding for one subject
type SubjectAnalysis struct {
	Subject      string     `json:"subject"`
	Average      float64    `json:"average"`
	Level        Level      `json:"level"`
	BelowAverage int        `json:"below_average"`
	AtOrAbove    int        `json:"at_or_above_average"`
	GenderGap    *GenderGap `json:"gender_gap,omitempty"`
}

// RiskStudent is a student flagged for follow-up
type RiskStudent struct {
	Name            string   `json:"name"`
	ClassName       string   `json:"class_name"`
	Risk            Risk     `json:"risk"`
	SubjectsAtRisk  []string `json:"subjects_at_risk"`
	Average         float64  `json:"average"`
	Recommendations []string `json:"recommendations"`
}

// Correlation links two subjects whose grades move together
type Correlation struct {
	SubjectA    string  `json:"subject_a"`
	SubjectB    string  `json:"subject_b"`
	Coefficient float64 `json:"coefficient"`
}

// Patterns are class-wide observations
type Patterns struct {
	GenderGap    bool          `json:"gender_gap"`
	Correlations []Correlation `json:"correlations"`
	Findings     []string      `json:"findings"`
}

// Report is the full analysis of a set of classes
type Report struct {
	Summary                Summary                 `json:"summary"`
	Subjects               []SubjectAnalysis       `json:"subjects"`
	RiskStudents           []RiskStudent           `json:"risk_students"`
	Patterns               Patterns                `json:"patterns"`
	TeacherRecommendations []TeacherRecommendation `json:"teacher_recommendations"`
	Interventions          []Intervention          `json:"interventions"`
	CurricularAdjustments  []CurricularAdjustment  `json:"curricular_adjustments"`
}

type studentRef struct {
	parser.ParsedStudent
	className string
}

// Analyze runs every rule over the given classes
func Analyze(classes []parser.ParsedClass) Report {
	var students []studentRef
	for _, c := range classes {
		for _, s := range c.Students {
			students = append(students, studentRef{ParsedStudent: s, className: c.ClassName})
		}
	}

	summary := stats.Summarize(classes).Overall

	subjects := make([]string, 0, len(summary.SubjectAverages))
	for subject := range summary.SubjectAverages {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	report := Report{
		Subjects:     make([]SubjectAnalysis, 0, len(subjects)),
		RiskStudents: RiskStudents(classes),
	}
	for _, subject := range subjects {
		avg := summary.SubjectAverages[subject].InexactFloat64()
		report.Subjects = append(report.Subjects, analyzeSubject(subject, avg, students))
	}

	passRate := summary.PassRate.InexactFloat64()
	graded := len(students) > 0
	report.Patterns = analyzePatterns(subjects, report.Subjects, students, passRate)
	report.TeacherRecommendations = teacherRecommendations(report.Subjects)
	report.Interventions = interventions(report.RiskStudents, report.Subjects, passRate, graded)
	report.CurricularAdjustments = curricularAdjustments(report.Subjects)
	if graded {
		report.Summary = summarize(report.Subjects, report.RiskStudents, passRate)
	}
	return report
}

// SubjectLevel classifies a subject average
func SubjectLevel(avg float64) Level {
	switch {
	case avg < 45:
		return LevelCritical
	case avg < 55:
		return LevelAlert
	case avg < 70:
		return LevelAdequate
	default:
		return LevelExcellent
	}
}

func analyzeSubject(subject string, avg float64, students []studentRef) SubjectAnalysis {
	a := SubjectAnalysis{Subject: subject, Average: avg, Level: SubjectLevel(avg)}

	var maleSum, femaleSum float64
	var males, females int
	for _, s := range students {
		grade, ok := s.Grades[subject]
		if !ok {
			continue
		}
		if grade < avg {
			a.BelowAverage++
		} else {
			a.AtOrAbove++
		}
		switch s.Sex {
		case "M":
			maleSum += grade
			males++
		case "F":
			femaleSum += grade
			females++
		}
	}

	if males > 0 && females > 0 {
		m, f := maleSum/float64(males), femaleSum/float64(females)
		a.GenderGap = &GenderGap{Male: m, Female: f, Difference: math.Abs(m - f)}
	}
	return a
}

// RiskStudents flags students with failing grades or a low average, most
// urgent first. Transferred and cancelled students are not assessed.
func RiskStudents(classes []parser.ParsedClass) []RiskStudent {
	out := make([]RiskStudent, 0)
	for _, c := range classes {
		for _, s := range c.Students {
			if s.Result == parser.StatusTransferido || s.Result == parser.StatusCancelado {
				continue
			}
			avgDec, ok := stats.StudentAverage(s)
			if !ok {
				continue
			}
			avg := avgDec.InexactFloat64()

			var atRisk []string
			for subject, grade := range s.Grades {
				if grade < passingGrade {
					atRisk = append(atRisk, subject)
				}
			}
			sort.Strings(atRisk)

			var risk Risk
			switch {
			case len(atRisk) >= 4 || avg < 45:
				risk = RiskHigh
			case len(atRisk) >= 2 || avg < 55:
				risk = RiskMedium
			case len(atRisk) >= 1:
				risk = RiskLow
			default:
				continue
			}

			out = append(out, RiskStudent{
				Name:            s.Name,
				ClassName:       c.ClassName,
				Risk:            risk,
				SubjectsAtRisk:  atRisk,
				Average:         avg,
				Recommendations: recommendations(atRisk, avg),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if riskOrder[out[i].Risk] != riskOrder[out[j].Risk] {
			return riskOrder[out[i].Risk] < riskOrder[out[j].Risk]
		}
		return out[i].Average < out[j].Average
	})
	return out
}

func recommendations(atRisk []string, avg float64) []string {
	var recs []string
	if len(atRisk) > 0 {
		recs = append(recs, "Priorizar reforço em: "+strings.Join(atRisk, ", "))
	}
	if countIn(atRisk, exactSubjects) >= 2 {
		recs = append(recs, "Dificuldades em ciências exatas: sugerir monitoria e atividades práticas")
	}
	if countIn(atRisk, humanitySubjects) >= 2 {
		recs = append(recs, "Dificuldades em ciências humanas: incentivar leitura e debates em sala")
	}
	switch {
	case avg < 45:
		recs = append(recs,
			"Risco elevado de reprovação: considerar plano de recuperação intensivo",
			"Reunião com responsáveis para discutir estratégias de apoio",
		)
	case avg < 55:
		recs = append(recs, "Acompanhamento pedagógico semanal recomendado")
	}
	return recs
}

func countIn(subjects, group []string) int {
	n := 0
	for _, s := range subjects {
		for _, g := range group {
			if strings.Contains(s, g) {
				n++
				break
			}
		}
	}
	return n
}

func analyzePatterns(subjects []string, analyses []SubjectAnalysis, students []studentRef, passRate float64) Patterns {
	p := Patterns{Correlations: make([]Correlation, 0), Findings: make([]string, 0)}

	for _, a := range analyses {
		if a.GenderGap != nil && a.GenderGap.Difference > genderGapThreshold {
			p.GenderGap = true
			break
		}
	}

	for i := 0; i < len(subjects); i++ {
		for j := i + 1; j < len(subjects); j++ {
			r := correlation(students, subjects[i], subjects[j])
			if math.Abs(r) > correlationCutoff {
				p.Correlations = append(p.Correlations, Correlation{SubjectA: subjects[i], SubjectB: subjects[j], Coefficient: r})
			}
		}
	}

	var critical, excellent []string
	for _, a := range analyses {
		switch a.Level {
		case LevelCritical:
			critical = append(critical, a.Subject)
		case LevelExcellent:
			excellent = append(excellent, a.Subject)
		}
	}
	if len(critical) > 0 {
		p.Findings = append(p.Findings, fmt.Sprintf("%d disciplina(s) em nível crítico: %s", len(critical), strings.Join(critical, ", ")))
	}
	if len(excellent) > 0 {
		p.Findings = append(p.Findings, fmt.Sprintf("%d disciplina(s) com desempenho excelente: %s", len(excellent), strings.Join(excellent, ", ")))
	}

	if len(students) > 0 {
		switch {
		case passRate < targetPassRate:
			p.Findings = append(p.Findings, "Taxa de aprovação abaixo da meta institucional (60%)")
		case passRate > highPassRate:
			p.Findings = append(p.Findings, "Taxa de aprovação acima da meta institucional")
		}
	}
	return p
}

// correlation is the Pearson coefficient over students graded in both subjects
func correlation(students []studentRef, a, b string) float64 {
	var xs, ys []float64
	for _, s := range students {
		x, okA := s.Grades[a]
		y, okB := s.Grades[b]
		if okA && okB {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	n := float64(len(xs))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
		sumY2 += ys[i] * ys[i]
	}

	den := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if den == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}
