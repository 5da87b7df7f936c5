package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// gradeToken is one fixed-decimal grade: 1-3 integer digits, a separator and
// exactly one fractional digit. Consecutive tokens are glued with no delimiter.
var gradeToken = regexp.MustCompile(`^\d{1,3}[,.]\d`)

// TokenizeGrades decomposes a concatenated grade blob into ordered values.
//
// The scan runs left to right: a fixed-decimal token is parsed and skipped; a
// "--" pair or lone "-" is a placeholder for one missing grade (nil); any other
// character is skipped, so an over-long integer run keeps only its last three
// digits ("1234,5" reads as 234.5). A blob with no numeric token at all (the
// all-dash run of a transferred or cancelled student) yields an empty slice.
// The result never exceeds subjectCount entries when subjectCount is positive.
func TokenizeGrades(blob string, subjectCount int) []*float64 {
	values := make([]*float64, 0, subjectCount)
	numeric := 0

	for i := 0; i < len(blob); {
		if tok := gradeToken.FindString(blob[i:]); tok != "" {
			v, err := strconv.ParseFloat(strings.Replace(tok, ",", ".", 1), 64)
			if err == nil {
				values = append(values, &v)
				numeric++
			}
			i += len(tok)
			continue
		}

		if blob[i] == '-' {
			values = append(values, nil)
			if strings.HasPrefix(blob[i:], "--") {
				i += 2
			} else {
				i++
			}
			continue
		}

		i++
	}

	if numeric == 0 {
		return []*float64{}
	}
	if subjectCount > 0 && len(values) > subjectCount {
		values = values[:subjectCount]
	}
	return values
}

// MapGrades zips tokenized values with the subject ordering. Positions beyond
// the ordering and placeholder positions are left out of the map.
func MapGrades(values []*float64, subjects []string) map[string]float64 {
	grades := make(map[string]float64, len(values))
	for i, v := range values {
		if i >= len(subjects) {
			break
		}
		if v == nil {
			continue
		}
		grades[subjects[i]] = *v
	}
	return grades
}
