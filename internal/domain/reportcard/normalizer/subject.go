// Package normalizer provides subject name normalization for report-card imports.
// subject.go maps the many header spellings found in school documents to one canonical label.
package normalizer

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// UnknownSubject is returned for empty subject headers
const UnknownSubject = "Desconhecido"

// Canonical subject labels
const (
	Portugues      = "Português"
	Arte           = "Arte"
	EducacaoFisica = "Educação Física"
	Ingles         = "Inglês"
	Matematica     = "Matemática"
	Ciencias       = "Ciências"
	Geografia      = "Geografia"
	Historia       = "História"
	Religiao       = "Religião"
	Filosofia      = "Filosofia"
	Sociologia     = "Sociologia"
)

// DefaultSubjectOrder is the column order of the grade blob in the supported
// report-card layout. Position i of a tokenized blob maps to DefaultSubjectOrder[i].
var DefaultSubjectOrder = []string{
	Portugues,
	Arte,
	EducacaoFisica,
	Ingles,
	Matematica,
	Ciencias,
	Geografia,
	Historia,
	Religiao,
}

// subjectTable maps upper-cased header spellings to canonical labels
var subjectTable = map[string]string{
	// Português
	"LÍNGUA PORTUGUÊSA": Portugues,
	"LÍNGUA PORTUGUESA": Portugues,
	"LINGUA PORTUGUESA": Portugues,
	"PORTUGUES":         Portugues,
	"PORTUGUÊS":         Portugues,
	"L. PORTUGUESA":     Portugues,

	// Matemática
	"MATEMÁTICA": Matematica,
	"MATEMATICA": Matematica,
	"MAT":        Matematica,

	// Arte
	"ARTE":               Arte,
	"ARTES":              Arte,
	"ED. ARTÍSTICA":      Arte,
	"EDUCAÇÃO ARTÍSTICA": Arte,

	// Educação Física
	"EDUCAÇÃO FÍSICA": EducacaoFisica,
	"EDUCACAO FISICA": EducacaoFisica,
	"ED. FÍSICA":      EducacaoFisica,
	"ED FISICA":       EducacaoFisica,

	// Inglês
	"LÍNGUA INGLESA": Ingles,
	"LINGUA INGLESA": Ingles,
	"INGLÊS":         Ingles,
	"INGLES":         Ingles,
	"L. INGLESA":     Ingles,

	// Ciências
	"CIÊNCIAS": Ciencias,
	"CIENCIAS": Ciencias,
	"CIÊNCIA":  Ciencias,
	"CIENCIA":  Ciencias,

	// Geografia
	"GEOGRAFIA": Geografia,
	"GEO":       Geografia,

	// História
	"HISTÓRIA": Historia,
	"HISTORIA": Historia,
	"HIST":     Historia,

	// Ensino Religioso
	"ENSINO RELIGIOSO": Religiao,
	"ENS. RELIGIOSO":   Religiao,
	"RELIGIÃO":         Religiao,
	"RELIGIAO":         Religiao,
	"E. RELIGIOSO":     Religiao,

	// Filosofia
	"FILOSOFIA": Filosofia,
	"FILOS":     Filosofia,

	// Sociologia
	"SOCIOLOGIA": Sociologia,
	"SOCIO":      Sociologia,
}

// NormalizeSubject maps a raw subject header to its canonical label.
// Unknown headers are returned trimmed so they are preserved rather than dropped.
func NormalizeSubject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UnknownSubject
	}

	if canonical, ok := subjectTable[strings.ToUpper(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// IsCanonical reports whether s is one of the canonical labels
func IsCanonical(s string) bool {
	for _, canonical := range subjectTable {
		if canonical == s {
			return true
		}
	}
	return false
}

// UniqueSubjects returns the sorted set of normalized names
func UniqueSubjects(subjects []string) []string {
	seen := make(map[string]struct{}, len(subjects))
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		n := NormalizeSubject(s)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MatchSubject normalizes a spreadsheet header and, when the table has no
// entry, falls back to the closest canonical label by fuzzy rank. Headers with
// no close candidate are returned as NormalizeSubject would.
func MatchSubject(raw string, candidates []string) string {
	normalized := NormalizeSubject(raw)
	if normalized == UnknownSubject || IsCanonical(normalized) {
		return normalized
	}

	ranks := fuzzy.RankFindNormalizedFold(normalized, candidates)
	if len(ranks) == 0 {
		return normalized
	}

	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	return best.Target
}

// SubjectOrder normalizes a configured grade column order, keeping position
// and dropping repeats. An empty list yields DefaultSubjectOrder.
func SubjectOrder(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		n := NormalizeSubject(s)
		if n == UnknownSubject {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) == 0 {
		return DefaultSubjectOrder
	}
	return out
}
