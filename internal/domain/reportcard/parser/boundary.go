package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// recordPattern locates the fixed-grammar suffix of a student data line:
// DATE sex grade-blob STATUS, anchored to end of line. Everything before the
// date is the inline name prefix (possibly empty).
var recordPattern = regexp.MustCompile(
	`^(.*?)(\d{2}/\d{2}/\d{4})\s?([MF])\s?([\d,.\-\s]*?)\s*(APROVADO|REPROVADO|APCC|TRANSFERIDO|DESISTENTE|CANCELADO)$`,
)

// minNameLen guards against stray one- or two-character fragments becoming names
const minNameLen = 3

// Record is a data line split into its name and suffix fields
type Record struct {
	Name         string
	BirthDate    string
	Sex          string
	Blob         string
	Result       Status
	Continuation bool // name came from the buffer, not the line
}

// Resolution is the outcome of trying to resolve one data candidate line
type Resolution int

const (
	Unresolved Resolution = iota // no suffix grammar, or rejected; buffer the line
	Resolved                     // record produced
	Orphaned                     // suffix-only line with nothing buffered; drop the line
)

// splitRecord matches the suffix grammar and returns the trimmed prefix and fields
func splitRecord(line string) (string, Record, bool) {
	m := recordPattern.FindStringSubmatch(line)
	if m == nil {
		return "", Record{}, false
	}
	return strings.TrimSpace(m[1]), Record{
		BirthDate: m[2],
		Sex:       m[3],
		Blob:      m[4],
		Result:    Status(m[5]),
	}, true
}

// Resolve finds the boundary between name and data fields. An inline line
// carries its own name; a suffix-only line takes its name from the buffer,
// which is cleared when consumed.
func Resolve(line string, buf *NameBuffer) (Record, Resolution) {
	prefix, rec, ok := splitRecord(line)
	if !ok {
		return Record{}, Unresolved
	}

	if prefix != "" {
		if utf8.RuneCountInString(prefix) < minNameLen {
			return Record{}, Unresolved
		}
		rec.Name = prefix
		return rec, Resolved
	}

	name := buf.Join()
	buf.Reset()
	if utf8.RuneCountInString(name) < minNameLen {
		return Record{}, Orphaned
	}
	rec.Name = name
	rec.Continuation = true
	return rec, Resolved
}

// DefaultBufferCap bounds the number of pending name fragments
const DefaultBufferCap = 3

// NameBuffer holds the pending name fragments of one parse invocation.
// When full, the oldest fragment is evicted so the most recent lines survive.
type NameBuffer struct {
	frags   []string
	cap     int
	evicted int
}

// NewNameBuffer creates a buffer holding at most capacity fragments
func NewNameBuffer(capacity int) *NameBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCap
	}
	return &NameBuffer{frags: make([]string, 0, capacity), cap: capacity}
}

// Push appends a fragment, evicting the oldest one on overflow
func (b *NameBuffer) Push(fragment string) {
	if len(b.frags) == b.cap {
		copy(b.frags, b.frags[1:])
		b.frags = b.frags[:len(b.frags)-1]
		b.evicted++
	}
	b.frags = append(b.frags, fragment)
}

// Join returns the buffered fragments joined by single spaces
func (b *NameBuffer) Join() string {
	return strings.TrimSpace(strings.Join(b.frags, " "))
}

// Reset empties the buffer
func (b *NameBuffer) Reset() {
	b.frags = b.frags[:0]
}

// Len returns the number of buffered fragments
func (b *NameBuffer) Len() int {
	return len(b.frags)
}

// Evicted returns how many fragments were pushed out by overflow
func (b *NameBuffer) Evicted() int {
	return b.evicted
}
