// Package stats aggregates parsed rosters into dashboard figures.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
)

// places is the rounding applied to every average and rate
const places = 2

var hundred = decimal.NewFromInt(100)

// Summary holds the figures for one class or for the whole school
type Summary struct {
	Students        int                        `json:"students"`
	StatusCounts    map[parser.Status]int      `json:"status_counts"`
	PassRate        decimal.Decimal            `json:"pass_rate"` // percent of APROVADO
	Male            int                        `json:"male"`
	Female          int                        `json:"female"`
	SubjectAverages map[string]decimal.Decimal `json:"subject_averages"`
}

// ClassSummary is the summary of one class
type ClassSummary struct {
	ClassName string `json:"class_name"`
	Shift     string `json:"shift"`
	Summary
}

// StudentRow is one student as listed on the dashboard
type StudentRow struct {
	Name      string             `json:"name"`
	BirthDate string             `json:"birth_date"`
	Sex       string             `json:"sex"`
	ClassName string             `json:"class_name"`
	Shift     string             `json:"shift"`
	Grades    map[string]float64 `json:"grades"`
	Average   *decimal.Decimal   `json:"average"` // nil when no grade is known
	Result    parser.Status      `json:"result"`
}

// Report is the full dashboard aggregate
type Report struct {
	Overall        Summary        `json:"overall"`
	ClassesByShift map[string]int `json:"classes_by_shift"`
	Classes        []ClassSummary `json:"classes"`
	Students       []StudentRow   `json:"students"`
}

// accumulator sums grades per subject with exact arithmetic
type accumulator struct {
	summary Summary
	sums    map[string]decimal.Decimal
	counts  map[string]int64
}

func newAccumulator() *accumulator {
	return &accumulator{
		summary: Summary{
			StatusCounts:    make(map[parser.Status]int),
			SubjectAverages: make(map[string]decimal.Decimal),
		},
		sums:   make(map[string]decimal.Decimal),
		counts: make(map[string]int64),
	}
}

func (a *accumulator) add(s parser.ParsedStudent) {
	a.summary.Students++
	a.summary.StatusCounts[s.Result]++
	switch s.Sex {
	case "M":
		a.summary.Male++
	case "F":
		a.summary.Female++
	}
	for subject, grade := range s.Grades {
		a.sums[subject] = a.sums[subject].Add(decimal.NewFromFloat(grade))
		a.counts[subject]++
	}
}

func (a *accumulator) finish() Summary {
	for subject, sum := range a.sums {
		a.summary.SubjectAverages[subject] = sum.Div(decimal.NewFromInt(a.counts[subject])).Round(places)
	}
	a.summary.PassRate = Rate(a.summary.StatusCounts[parser.StatusAprovado], a.summary.Students)
	return a.summary
}

// Summarize computes per-class and overall figures. Classes are listed by name.
func Summarize(classes []parser.ParsedClass) Report {
	overall := newAccumulator()
	report := Report{
		ClassesByShift: make(map[string]int),
		Classes:        make([]ClassSummary, 0, len(classes)),
	}

	for _, class := range classes {
		report.ClassesByShift[class.Shift]++

		acc := newAccumulator()
		for _, s := range class.Students {
			acc.add(s)
			overall.add(s)

			row := StudentRow{
				Name:      s.Name,
				BirthDate: s.BirthDate,
				Sex:       s.Sex,
				ClassName: class.ClassName,
				Shift:     class.Shift,
				Grades:    s.Grades,
				Result:    s.Result,
			}
			if avg, ok := StudentAverage(s); ok {
				row.Average = &avg
			}
			report.Students = append(report.Students, row)
		}

		report.Classes = append(report.Classes, ClassSummary{
			ClassName: class.ClassName,
			Shift:     class.Shift,
			Summary:   acc.finish(),
		})
	}

	sort.SliceStable(report.Classes, func(i, j int) bool {
		return report.Classes[i].ClassName < report.Classes[j].ClassName
	})
	report.Overall = overall.finish()
	return report
}

// StudentAverage is the mean of the student's known grades
func StudentAverage(s parser.ParsedStudent) (decimal.Decimal, bool) {
	if len(s.Grades) == 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, g := range s.Grades {
		sum = sum.Add(decimal.NewFromFloat(g))
	}
	return sum.Div(decimal.NewFromInt(int64(len(s.Grades)))).Round(places), true
}

// Rate returns part/total as a percentage, zero when total is zero
func Rate(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(places)
}
