package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/normalizer"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
)

var classes = []parser.ParsedClass{{
	ClassName: "6º ANO A",
	Shift:     "MATUTINO",
	Students: []parser.ParsedStudent{
		{
			Name: "MARIA SILVA", BirthDate: "01/02/2010", Sex: "F",
			Grades: map[string]float64{normalizer.Portugues: 65.3, normalizer.Matematica: 78},
			Result: parser.StatusAprovado,
		},
		{
			Name: "JOAO PEREIRA", BirthDate: "01/02/2010", Sex: "M",
			Grades: map[string]float64{},
			Result: parser.StatusCancelado,
		},
	},
}}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, classes, []string{normalizer.Portugues, normalizer.Matematica})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "turma,turno,nome,nascimento,sexo,Português,Matemática,resultado", lines[0])
	assert.Equal(t, "6º ANO A,MATUTINO,MARIA SILVA,01/02/2010,F,65.3,78.0,APROVADO", lines[1])
	assert.Equal(t, "6º ANO A,MATUTINO,JOAO PEREIRA,01/02/2010,M,,,CANCELADO", lines[2])
}

func TestWriteCSV_DefaultColumns(t *testing.T) {
	extra := []parser.ParsedClass{{
		ClassName: "1º ANO",
		Students: []parser.ParsedStudent{{
			Name:   "ANA LIMA",
			Grades: map[string]float64{normalizer.Sociologia: 70, normalizer.Filosofia: 80},
			Result: parser.StatusAprovado,
		}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, extra, nil))

	header := strings.Split(strings.SplitN(buf.String(), "\n", 2)[0], ",")
	n := len(normalizer.DefaultSubjectOrder)
	assert.Equal(t, normalizer.DefaultSubjectOrder, header[5:5+n])
	assert.Equal(t, []string{normalizer.Filosofia, normalizer.Sociologia, "resultado"}, header[5+n:])
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, classes))

	var rows []*ResultRow
	require.NoError(t, gocsv.UnmarshalString(buf.String(), &rows))

	require.Len(t, rows, 2, "students without grades produce no rows")
	assert.Equal(t, normalizer.Matematica, rows[0].Subject)
	assert.Equal(t, 78.0, rows[0].Score)
	assert.Equal(t, normalizer.Portugues, rows[1].Subject)
	assert.Equal(t, 65.3, rows[1].Score)
	assert.Equal(t, "Média Anual", rows[1].Description)
	assert.Equal(t, "APROVADO", rows[1].Result)
}

func TestColumns_Empty(t *testing.T) {
	assert.Equal(t, normalizer.DefaultSubjectOrder, Columns(nil))
}
