package parser

import (
	"io"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/normalizer"
)

// State is the name-buffer state of the line-stream machine
type State int

const (
	Empty State = iota
	Accumulating
)

// Config configures text parsing
type Config struct {
	Subjects   []string    // Positional subject ordering of the grade blob
	Classifier *Classifier // Chrome detection
	BufferCap  int         // Maximum pending name fragments
	Logger     *slog.Logger
}

// DefaultConfig returns a config for the standard report-card layout
func DefaultConfig() Config {
	return Config{
		Subjects:   normalizer.DefaultSubjectOrder,
		Classifier: NewClassifier(DefaultChromeKeywords),
		BufferCap:  DefaultBufferCap,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.Subjects) == 0 {
		c.Subjects = def.Subjects
	}
	if c.Classifier == nil {
		c.Classifier = def.Classifier
	}
	if c.BufferCap <= 0 {
		c.BufferCap = def.BufferCap
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	return c
}

// LineParser runs the line-stream state machine over one document. It owns the
// name buffer for that document and must not be shared between documents.
type LineParser struct {
	cfg      Config
	buf      *NameBuffer
	students []ParsedStudent
	stats    ParseStats
}

// NewLineParser creates a state machine in the Empty state
func NewLineParser(cfg Config) *LineParser {
	cfg = cfg.withDefaults()
	return &LineParser{
		cfg:      cfg,
		buf:      NewNameBuffer(cfg.BufferCap),
		students: make([]ParsedStudent, 0, 40),
	}
}

// State returns the current buffer state
func (p *LineParser) State() State {
	if p.buf.Len() == 0 {
		return Empty
	}
	return Accumulating
}

// Feed consumes one line of extracted text
func (p *LineParser) Feed(line string) {
	trimmed := strings.TrimSpace(line)

	switch p.cfg.Classifier.Classify(trimmed) {
	case Blank:
		return

	case Chrome:
		p.stats.Lines++
		p.stats.ChromeLines++
		p.stats.DroppedFrags += p.buf.Len()
		p.buf.Reset()
		return
	}

	p.stats.Lines++

	rec, outcome := Resolve(trimmed, p.buf)
	switch outcome {
	case Resolved:
		if !rec.Continuation {
			// an inline record ends whatever was buffered before it
			p.stats.DroppedFrags += p.buf.Len()
		}
		p.emit(rec)
		p.buf.Reset()

	case Orphaned:
		p.stats.OrphanRecords++
		p.cfg.Logger.Debug("data line without buffered name dropped", slog.String("line", trimmed))

	default:
		if _, _, ok := splitRecord(trimmed); ok {
			p.stats.RejectedLines++
			p.cfg.Logger.Debug("record rejected by name-length guard", slog.String("line", trimmed))
		}
		if isTrivial(trimmed) {
			return
		}
		p.buf.Push(trimmed)
	}
}

// Finish ends the stream. Fragments still buffered are discarded.
func (p *LineParser) Finish() ([]ParsedStudent, ParseStats) {
	p.stats.DroppedFrags += p.buf.Len() + p.buf.Evicted()
	p.buf.Reset()
	p.stats.Students = len(p.students)
	return p.students, p.stats
}

func (p *LineParser) emit(rec Record) {
	values := TokenizeGrades(rec.Blob, len(p.cfg.Subjects))
	p.students = append(p.students, ParsedStudent{
		Name:      rec.Name,
		BirthDate: rec.BirthDate,
		Sex:       rec.Sex,
		Grades:    MapGrades(values, p.cfg.Subjects),
		Result:    rec.Result,
	})
}

// ParseText parses the extracted text of one document into exactly one class
func ParseText(text string, cfg Config) ([]ParsedClass, ParseStats) {
	header, found := headerOrUnknown(text)

	lp := NewLineParser(cfg)
	for _, line := range strings.Split(text, "\n") {
		lp.Feed(line)
	}
	students, stats := lp.Finish()
	stats.HeaderNotFound = !found

	return []ParsedClass{{
		ClassName: header.ClassName,
		Shift:     header.Shift,
		Students:  students,
	}}, stats
}
