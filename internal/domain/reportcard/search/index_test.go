package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
)

func newTestIndex(t *testing.T) *StudentIndex {
	t.Helper()
	si, err := NewStudentIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = si.Close() })

	require.NoError(t, si.IndexClasses([]parser.ParsedClass{
		{
			ClassName: "6º ANO A",
			Shift:     "MATUTINO",
			Students: []parser.ParsedStudent{
				{Name: "MARIA SILVA", Sex: "F", Result: parser.StatusAprovado},
				{Name: "JOAO PEREIRA", Sex: "M", Result: parser.StatusCancelado},
			},
		},
		{
			ClassName: "7º ANO B",
			Shift:     "VESPERTINO",
			Students: []parser.ParsedStudent{
				{Name: "MARIANA COSTA", Sex: "F", Result: parser.StatusReprovado},
			},
		},
	}))
	return si
}

func TestStudentIndex_Search(t *testing.T) {
	si := newTestIndex(t)

	t.Run("exact name", func(t *testing.T) {
		hits, err := si.Search("pereira", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "JOAO PEREIRA", hits[0].Name)
		assert.Equal(t, "6º ANO A", hits[0].ClassName)
		assert.Equal(t, "CANCELADO", hits[0].Status)
	})

	t.Run("typo tolerance", func(t *testing.T) {
		hits, err := si.Search("SILVAA", 10)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, "MARIA SILVA", hits[0].Name)
	})

	t.Run("prefix", func(t *testing.T) {
		hits, err := si.Search("mari", 10)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("blank query", func(t *testing.T) {
		hits, err := si.Search("  ", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestStudentIndex_ByStatus(t *testing.T) {
	si := newTestIndex(t)

	hits, err := si.ByStatus(parser.StatusReprovado, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "MARIANA COSTA", hits[0].Name)
}

func TestStudentIndex_ReimportReplaces(t *testing.T) {
	si := newTestIndex(t)

	require.NoError(t, si.IndexClasses([]parser.ParsedClass{{
		ClassName: "6º ANO A",
		Shift:     "MATUTINO",
		Students:  []parser.ParsedStudent{{Name: "MARIA SILVA", Result: parser.StatusReprovado}},
	}}))

	count, err := si.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	hits, err := si.ByStatus(parser.StatusReprovado, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}
