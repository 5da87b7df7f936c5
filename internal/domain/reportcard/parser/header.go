package parser

import "regexp"

// headerPattern matches "<grade>º ANO <section> <shift>", e.g. "6º ANO A MATUTINO"
var headerPattern = regexp.MustCompile(`(\d+[º°] ANO [A-Z])\s+(MATUTINO|VESPERTINO|NOTURNO)`)

// Header is the class metadata found in a document header
type Header struct {
	ClassName string
	Shift     string
}

// ExtractHeader scans the full document text once and returns the first class
// header found. Documents are assumed to hold exactly one class.
func ExtractHeader(text string) (Header, bool) {
	m := headerPattern.FindStringSubmatch(text)
	if m == nil {
		return Header{}, false
	}
	return Header{ClassName: m[1], Shift: m[2]}, true
}

// headerOrUnknown substitutes the sentinels when no header is present
func headerOrUnknown(text string) (Header, bool) {
	h, ok := ExtractHeader(text)
	if !ok {
		return Header{ClassName: UnknownClass, Shift: UnknownShift}, false
	}
	return h, true
}
