package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"LÍNGUA PORTUGUESA", Portugues},
		{"  língua portuguêsa ", Portugues},
		{"L. Portuguesa", Portugues},
		{"mat", Matematica},
		{"Ed. Física", EducacaoFisica},
		{"EDUCACAO FISICA", EducacaoFisica},
		{"Língua Inglesa", Ingles},
		{"ciencia", Ciencias},
		{"GEO", Geografia},
		{"Hist", Historia},
		{"Ensino Religioso", Religiao},
		{"Filos", Filosofia},
		{"Socio", Sociologia},
		{"  Robótica  ", "Robótica"},
		{"", UnknownSubject},
		{"   ", UnknownSubject},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSubject(tt.input))
		})
	}
}

func TestNormalizeSubject_Idempotent(t *testing.T) {
	for raw := range subjectTable {
		once := NormalizeSubject(raw)
		assert.Equal(t, once, NormalizeSubject(once), "normalizing %q twice changed the result", raw)
	}

	for _, raw := range []string{"", "Robótica", "  Projeto de Vida "} {
		once := NormalizeSubject(raw)
		assert.Equal(t, once, NormalizeSubject(once))
	}
}

func TestDefaultSubjectOrder_IsCanonical(t *testing.T) {
	assert.Len(t, DefaultSubjectOrder, 9)
	for _, s := range DefaultSubjectOrder {
		assert.True(t, IsCanonical(s), "%q should be canonical", s)
		assert.Equal(t, s, NormalizeSubject(s))
	}
}

func TestUniqueSubjects(t *testing.T) {
	got := UniqueSubjects([]string{"MATEMATICA", "Mat", "HISTÓRIA", "hist", "Arte"})
	assert.Equal(t, []string{Arte, Historia, Matematica}, got)
}

func TestMatchSubject(t *testing.T) {
	t.Run("table hit wins", func(t *testing.T) {
		assert.Equal(t, Ingles, MatchSubject("INGLES", DefaultSubjectOrder))
	})

	t.Run("fuzzy fallback to canonical", func(t *testing.T) {
		assert.Equal(t, Geografia, MatchSubject("Geog", DefaultSubjectOrder))
	})

	t.Run("no candidate keeps header", func(t *testing.T) {
		assert.Equal(t, "Robótica", MatchSubject("Robótica", DefaultSubjectOrder))
	})

	t.Run("empty header", func(t *testing.T) {
		assert.Equal(t, UnknownSubject, MatchSubject(" ", DefaultSubjectOrder))
	})
}

func TestSubjectOrder(t *testing.T) {
	assert.Equal(t, []string{Matematica, Portugues}, SubjectOrder([]string{"MAT", "portugues", "Matemática", " "}))
	assert.Equal(t, DefaultSubjectOrder, SubjectOrder(nil))
	assert.Equal(t, DefaultSubjectOrder, SubjectOrder([]string{"", "  "}))
}
