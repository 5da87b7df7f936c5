package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Inline(t *testing.T) {
	buf := NewNameBuffer(3)
	buf.Push("STALE FRAGMENT")

	rec, outcome := Resolve("JOAO PEREIRA01/02/2010M------------CANCELADO", buf)

	require.Equal(t, Resolved, outcome)
	assert.Equal(t, "JOAO PEREIRA", rec.Name)
	assert.Equal(t, "01/02/2010", rec.BirthDate)
	assert.Equal(t, "M", rec.Sex)
	assert.Equal(t, "------------", rec.Blob)
	assert.Equal(t, StatusCancelado, rec.Result)
	assert.False(t, rec.Continuation)
	// inline records leave the buffer to the caller
	assert.Equal(t, 1, buf.Len())
}

func TestResolve_InlineWithSpaces(t *testing.T) {
	rec, outcome := Resolve("ANA CLARA SOUZA 15/03/2011 F 65,3 78,0 90,5 REPROVADO", NewNameBuffer(3))

	require.Equal(t, Resolved, outcome)
	assert.Equal(t, "ANA CLARA SOUZA", rec.Name)
	assert.Equal(t, "F", rec.Sex)
	assert.Equal(t, StatusReprovado, rec.Result)
	assert.Len(t, TokenizeGrades(rec.Blob, 9), 3)
}

func TestResolve_Continuation(t *testing.T) {
	buf := NewNameBuffer(3)
	buf.Push("MARIA")
	buf.Push("SILVA")

	rec, outcome := Resolve("01/02/2010F65,378,0APROVADO", buf)

	require.Equal(t, Resolved, outcome)
	assert.Equal(t, "MARIA SILVA", rec.Name)
	assert.Equal(t, "01/02/2010", rec.BirthDate)
	assert.Equal(t, "F", rec.Sex)
	assert.Equal(t, StatusAprovado, rec.Result)
	assert.True(t, rec.Continuation)
	assert.Equal(t, 0, buf.Len(), "continuation consumes the buffer")
}

func TestResolve_ContinuationWithEmptyBufferIsOrphaned(t *testing.T) {
	buf := NewNameBuffer(3)

	_, outcome := Resolve("01/02/2010F65,378,0APROVADO", buf)

	assert.Equal(t, Orphaned, outcome)
	assert.Equal(t, 0, buf.Len())
}

func TestResolve_ShortInlineNameRejected(t *testing.T) {
	_, outcome := Resolve("AB01/02/2010F65,3APROVADO", NewNameBuffer(3))
	assert.Equal(t, Unresolved, outcome)
}

func TestResolve_NoSuffixGrammar(t *testing.T) {
	tests := []string{
		"MARIA SILVA",
		"01/02/2010F65,3",                  // no status keyword
		"MARIA 01/02/2010X65,3APROVADO",    // bad sex code
		"MARIA 01/02/2010F65,3APROVADO EM", // status not at end of line
		"MARIA 1/2/2010F65,3APROVADO",      // short date
	}

	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			_, outcome := Resolve(line, NewNameBuffer(3))
			assert.Equal(t, Unresolved, outcome)
		})
	}
}

func TestResolve_AllStatuses(t *testing.T) {
	for _, status := range Statuses {
		t.Run(string(status), func(t *testing.T) {
			rec, outcome := Resolve("LUCAS OLIVEIRA10/10/2010M70,0"+string(status), NewNameBuffer(3))
			require.Equal(t, Resolved, outcome)
			assert.Equal(t, status, rec.Result)
		})
	}
}

func TestNameBuffer_SlidingWindow(t *testing.T) {
	buf := NewNameBuffer(3)
	buf.Push("ONE")
	buf.Push("TWO")
	buf.Push("THREE")
	buf.Push("FOUR")

	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, "TWO THREE FOUR", buf.Join())
	assert.Equal(t, 1, buf.Evicted())

	buf.Reset()
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, "", buf.Join())
}

func TestNameBuffer_DefaultCap(t *testing.T) {
	buf := NewNameBuffer(0)
	for _, s := range []string{"A1", "B2", "C3", "D4", "E5"} {
		buf.Push(s)
	}
	assert.Equal(t, DefaultBufferCap, buf.Len())
}
