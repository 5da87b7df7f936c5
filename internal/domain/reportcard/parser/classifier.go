package parser

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
)

// LineKind is the classification of one trimmed line of extracted text
type LineKind int

const (
	Blank LineKind = iota
	Chrome
	DataCandidate
)

func (k LineKind) String() string {
	switch k {
	case Chrome:
		return "chrome"
	case DataCandidate:
		return "data"
	default:
		return "blank"
	}
}

// DefaultChromeKeywords are substrings that mark a line as page furniture:
// letterhead, column titles, signature blocks and registry labels. Matching is
// case-sensitive and by substring, so upper-case names containing a keyword
// (RENATA, PETRA) are chrome too. The reversed entries are subject column
// titles as some PDF renderers emit them (vertical text read bottom-up).
var DefaultChromeKeywords = []string{
	// Letterhead and registry
	"Prefeitura", "CNPJ", "Secretaria", "ATA", "Escola", "INEP", "AV.", "Municipal",
	// Column titles
	"Turma", "DISCIPLINAS", "Nascimento", "Alunos", "SEXO", "RESULTADO", "MÉDIA",
	"Turno", "Data de", "Graus",
	// Signature block
	"Assinatura",
	// Reversed subject headers
	"ASÊUGUTROP", "AUGNÍL", "ETRA", "ACISÍF", "OÃÇACUDE", "ASELGNI",
	"ACITÁMETAM", "SAICNÊIC", "AIFARGOEG", "AIRÓTSIH", "OSOIGILER", "ONISNE",
}

// minFragmentLen is the noise threshold below which a line is never buffered
const minFragmentLen = 3

// Classifier decides whether a line is chrome, a data candidate or blank.
// It matches every keyword in a single pass using an Aho-Corasick automaton.
type Classifier struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	mu       sync.Mutex // the automaton keeps per-match scratch state
}

// NewClassifier builds a classifier from a keyword set
func NewClassifier(keywords []string) *Classifier {
	c := &Classifier{keywords: append([]string(nil), keywords...)}
	if len(keywords) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	}
	return c
}

// Keywords returns a copy of the configured keyword set
func (c *Classifier) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

// IsChrome reports whether the line contains any chrome keyword or carries the
// class header itself.
func (c *Classifier) IsChrome(line string) bool {
	if c.matcher != nil {
		c.mu.Lock()
		hits := c.matcher.Match([]byte(line))
		c.mu.Unlock()
		if len(hits) > 0 {
			return true
		}
	}
	return headerPattern.MatchString(line)
}

// Classify trims the line and classifies it
func (c *Classifier) Classify(line string) LineKind {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Blank
	}
	if c.IsChrome(trimmed) {
		return Chrome
	}
	return DataCandidate
}

// isTrivial reports whether a fragment is too short to be part of a name
func isTrivial(s string) bool {
	return utf8.RuneCountInString(s) < minFragmentLen
}
