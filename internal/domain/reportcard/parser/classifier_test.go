package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(DefaultChromeKeywords)

	tests := []struct {
		name     string
		line     string
		expected LineKind
	}{
		{"blank", "   ", Blank},
		{"empty", "", Blank},
		{"letterhead", "Prefeitura Municipal de Itabuna", Chrome},
		{"registry", "CNPJ: 14.147.490/0001-65", Chrome},
		{"column title", "DISCIPLINAS / RESULTADO", Chrome},
		{"reversed subject header", "ASÊUGUTROP AUGNÍL", Chrome},
		{"reversed religion header", "OSOIGILER ONISNE", Chrome},
		{"signature block", "Assinatura do Secretário", Chrome},
		{"class header line", "6º ANO A MATUTINO", Chrome},
		{"name fragment", "MARIA SILVA", DataCandidate},
		{"data line", "01/02/2010F65,378,0APROVADO", DataCandidate},
		{"case-sensitive miss", "turma da tarde", DataCandidate},
		// substring matching also hits names containing a keyword
		{"name containing ATA", "RENATA SOUZA", Chrome},
		{"name containing ETRA", "PETRA LIMA", Chrome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.line))
		})
	}
}

func TestClassifier_CustomKeywords(t *testing.T) {
	c := NewClassifier([]string{"RODAPÉ"})

	assert.Equal(t, Chrome, c.Classify("RODAPÉ DA PÁGINA"))
	assert.Equal(t, DataCandidate, c.Classify("Prefeitura Municipal"))
}

func TestClassifier_NoKeywords(t *testing.T) {
	c := NewClassifier(nil)

	assert.Equal(t, DataCandidate, c.Classify("Prefeitura Municipal"))
	assert.Equal(t, Chrome, c.Classify("7º ANO B VESPERTINO"))
}

func TestClassifier_KeywordsIsCopy(t *testing.T) {
	c := NewClassifier(DefaultChromeKeywords)
	kw := c.Keywords()
	kw[0] = "changed"

	assert.Equal(t, DefaultChromeKeywords[0], c.Keywords()[0])
}

func TestLineKind_String(t *testing.T) {
	assert.Equal(t, "blank", Blank.String())
	assert.Equal(t, "chrome", Chrome.String())
	assert.Equal(t, "data", DataCandidate.String())
}

func TestExtractHeader(t *testing.T) {
	t.Run("finds class and shift", func(t *testing.T) {
		text := "Prefeitura Municipal\nATA DE RESULTADOS FINAIS\n6º ANO A MATUTINO\nMARIA SILVA"
		h, ok := ExtractHeader(text)

		assert.True(t, ok)
		assert.Equal(t, "6º ANO A", h.ClassName)
		assert.Equal(t, "MATUTINO", h.Shift)
	})

	t.Run("first match wins", func(t *testing.T) {
		h, ok := ExtractHeader("9º ANO C NOTURNO\n8º ANO B VESPERTINO")

		assert.True(t, ok)
		assert.Equal(t, "9º ANO C", h.ClassName)
		assert.Equal(t, "NOTURNO", h.Shift)
	})

	t.Run("degree sign variant", func(t *testing.T) {
		h, ok := ExtractHeader("7° ANO D VESPERTINO")

		assert.True(t, ok)
		assert.Equal(t, "7° ANO D", h.ClassName)
	})

	t.Run("missing header", func(t *testing.T) {
		_, ok := ExtractHeader("6º ANO A INTEGRAL")
		assert.False(t, ok)

		h, found := headerOrUnknown("no header here")
		assert.False(t, found)
		assert.Equal(t, UnknownClass, h.ClassName)
		assert.Equal(t, UnknownShift, h.Shift)
	})
}
