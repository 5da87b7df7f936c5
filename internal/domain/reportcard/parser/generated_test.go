package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
	"github.com/FACorreiaa/report-card-importer/pkg/fixtures"
)

func TestParseText_GeneratedDocuments(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		gen := fixtures.NewGeneratorWithSeed(seed)
		doc := gen.Document(int(seed%35) + 1)

		classes, stats := parser.ParseText(doc.Text(), parser.DefaultConfig())

		require.Len(t, classes, 1, "seed %d", seed)
		got := classes[0]
		assert.Equal(t, doc.Expected.ClassName, got.ClassName, "seed %d", seed)
		assert.Equal(t, doc.Expected.Shift, got.Shift, "seed %d", seed)
		require.Len(t, got.Students, len(doc.Expected.Students), "seed %d\n%s", seed, doc.Text())

		for i, want := range doc.Expected.Students {
			have := got.Students[i]
			assert.Equal(t, want.Name, have.Name, "seed %d student %d", seed, i)
			assert.Equal(t, want.BirthDate, have.BirthDate)
			assert.Equal(t, want.Sex, have.Sex)
			assert.Equal(t, want.Result, have.Result)
			require.Len(t, have.Grades, len(want.Grades), "seed %d student %d", seed, i)
			for subject, grade := range want.Grades {
				assert.InDelta(t, grade, have.Grades[subject], 1e-9, "seed %d %s", seed, subject)
			}
		}

		assert.Equal(t, 0, stats.OrphanRecords, "seed %d", seed)
		assert.Equal(t, 0, stats.DroppedFrags, "seed %d", seed)
		assert.False(t, stats.HeaderNotFound)
	}
}

func TestParseText_NoGradeMapExceedsOrdering(t *testing.T) {
	gen := fixtures.NewGeneratorWithSeed(7)
	classes, _ := parser.ParseText(gen.Document(30).Text(), parser.DefaultConfig())

	for _, s := range classes[0].Students {
		assert.LessOrEqual(t, len(s.Grades), 9)
		if s.Result == parser.StatusTransferido || s.Result == parser.StatusCancelado {
			assert.Empty(t, s.Grades)
		}
	}
}

func BenchmarkParseText_Generated(b *testing.B) {
	text := fixtures.NewGeneratorWithSeed(42).Document(40).Text()
	cfg := parser.DefaultConfig()

	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		parser.ParseText(text, cfg)
	}
}
