// Package parser recovers class rosters and per-subject grades from school
// report-card documents. PDF documents arrive as a flat stream of text lines
// with no table structure; spreadsheets arrive as a 2D grid of cells.
package parser

import (
	"errors"
	"fmt"
)

// Sentinels used when a document carries no recognisable class header
const (
	UnknownClass  = "Desconhecida"
	UnknownShift  = "Desconhecido"
	UnknownResult = "Desconhecido"
)

// ErrDecodeFailure indicates the document bytes could not be turned into text.
// It is the only parse condition that surfaces to callers.
var ErrDecodeFailure = errors.New("failed to decode document")

// Status is the final outcome keyword that terminates a student data line
type Status string

const (
	StatusAprovado    Status = "APROVADO"
	StatusReprovado   Status = "REPROVADO"
	StatusAPCC        Status = "APCC"
	StatusTransferido Status = "TRANSFERIDO"
	StatusDesistente  Status = "DESISTENTE"
	StatusCancelado   Status = "CANCELADO"
)

// Statuses lists the closed status vocabulary
var Statuses = []Status{
	StatusAprovado,
	StatusReprovado,
	StatusAPCC,
	StatusTransferido,
	StatusDesistente,
	StatusCancelado,
}

// Shifts lists the closed session vocabulary
var Shifts = []string{"MATUTINO", "VESPERTINO", "NOTURNO"}

// ParsedStudent is one student row recovered from a document
type ParsedStudent struct {
	Name      string             `json:"name"`
	BirthDate string             `json:"birthDate,omitempty"` // DD/MM/YYYY, unvalidated
	Sex       string             `json:"sex,omitempty"`       // "M" or "F"
	Grades    map[string]float64 `json:"grades"`
	Result    Status             `json:"result"`
}

// ParsedClass is one class roster recovered from a document
type ParsedClass struct {
	ClassName string          `json:"className"`
	Shift     string          `json:"shift"`
	Students  []ParsedStudent `json:"students"`
}

// ParseStats counts the conditions the parser absorbs instead of failing
type ParseStats struct {
	Lines          int  // Non-blank lines seen
	ChromeLines    int  // Lines discarded as page furniture
	Students       int  // Records emitted
	RejectedLines  int  // Data lines rejected by the name-length guard
	OrphanRecords  int  // Continuation lines with an empty name buffer
	DroppedFrags   int  // Buffered fragments evicted or left at end of stream
	HeaderNotFound bool // Class header pattern absent
}

// ParseError represents a parsing error for a specific spreadsheet row
type ParseError struct {
	Sheet   string
	Row     int
	Column  string
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("sheet %s, row %d, column %s: %s", e.Sheet, e.Row, e.Column, e.Message)
}
