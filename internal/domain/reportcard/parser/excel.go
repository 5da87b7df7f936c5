package parser

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/normalizer"
)

// headerScanRows bounds the search for the roster header row
const headerScanRows = 20

// ExcelResult contains the classes recovered from a workbook and row errors
type ExcelResult struct {
	Classes []ParsedClass
	Errors  []ParseError
}

// ExcelParser parses XLSX report-card workbooks, one class per sheet
type ExcelParser struct {
	subjects []string
	logger   *slog.Logger
}

// NewExcelParser creates a new Excel parser. Subject headers are mapped onto
// the given canonical ordering where they are close enough.
func NewExcelParser(subjects []string, logger *slog.Logger) *ExcelParser {
	if len(subjects) == 0 {
		subjects = normalizer.DefaultSubjectOrder
	}
	if logger == nil {
		logger = DefaultConfig().Logger
	}
	return &ExcelParser{subjects: subjects, logger: logger}
}

type rosterColumns struct {
	nameCol   int
	resultCol int
	sexCol    int
	birthCol  int
}

// ParseExcel reads every sheet of the workbook. Sheets without a recognisable
// header row are skipped.
func (p *ExcelParser) ParseExcel(reader io.Reader) (*ExcelResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %w", ErrDecodeFailure, err)
	}
	defer f.Close()

	result := &ExcelResult{
		Classes: make([]ParsedClass, 0, len(f.GetSheetList())),
		Errors:  make([]ParseError, 0),
	}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read sheet %s: %w", ErrDecodeFailure, sheet, err)
		}

		class, rowErrs, ok := p.parseSheet(sheet, rows)
		if !ok {
			p.logger.Debug("sheet has no roster header", slog.String("sheet", sheet))
			continue
		}
		result.Classes = append(result.Classes, class)
		result.Errors = append(result.Errors, rowErrs...)
	}

	return result, nil
}

func (p *ExcelParser) parseSheet(sheet string, rows [][]string) (ParsedClass, []ParseError, bool) {
	headerIdx := findHeaderRow(rows)
	if headerIdx < 0 {
		return ParsedClass{}, nil, false
	}

	headers := rows[headerIdx]
	cols := mapRosterColumns(headers)
	if cols.nameCol < 0 {
		return ParsedClass{}, nil, false
	}

	subjects := make([]string, len(headers))
	for i, h := range headers {
		if strings.TrimSpace(h) == "" || cols.isRosterColumn(i) {
			continue
		}
		subjects[i] = normalizer.MatchSubject(h, p.subjects)
	}

	class := ParsedClass{
		ClassName: sheet,
		Shift:     UnknownShift,
		Students:  make([]ParsedStudent, 0, len(rows)-headerIdx),
	}
	var errs []ParseError

	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1

		name := cellAt(row, cols.nameCol)
		if name == "" {
			continue
		}

		student := ParsedStudent{
			Name:      name,
			BirthDate: cellAt(row, cols.birthCol),
			Sex:       strings.ToUpper(cellAt(row, cols.sexCol)),
			Grades:    make(map[string]float64),
			Result:    Status(UnknownResult),
		}
		if r := cellAt(row, cols.resultCol); r != "" {
			student.Result = Status(strings.ToUpper(r))
		}

		for col, subject := range subjects {
			if subject == "" {
				continue
			}
			raw := cellAt(row, col)
			if raw == "" || strings.Trim(raw, "-") == "" {
				continue
			}
			v, err := parseGradeCell(raw)
			if err != nil {
				errs = append(errs, ParseError{
					Sheet:   sheet,
					Row:     rowNum,
					Column:  headers[col],
					Message: fmt.Sprintf("invalid grade: %s", raw),
				})
				continue
			}
			student.Grades[subject] = v
		}

		class.Students = append(class.Students, student)
	}

	return class, errs, true
}

// findHeaderRow returns the first row, within the scan window, with a "nome" cell
func findHeaderRow(rows [][]string) int {
	limit := min(headerScanRows, len(rows))
	for i := 0; i < limit; i++ {
		for _, cell := range rows[i] {
			if strings.Contains(strings.ToLower(cell), "nome") {
				return i
			}
		}
	}
	return -1
}

func mapRosterColumns(headers []string) rosterColumns {
	cols := rosterColumns{nameCol: -1, resultCol: -1, sexCol: -1, birthCol: -1}
	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		switch {
		case cols.nameCol < 0 && strings.Contains(h, "nome"):
			cols.nameCol = i
		case cols.resultCol < 0 && (strings.Contains(h, "resultado") || strings.Contains(h, "situação")):
			cols.resultCol = i
		case cols.sexCol < 0 && strings.Contains(h, "sexo"):
			cols.sexCol = i
		case cols.birthCol < 0 && strings.Contains(h, "nascimento"):
			cols.birthCol = i
		}
	}
	return cols
}

func (c rosterColumns) isRosterColumn(i int) bool {
	return i == c.nameCol || i == c.resultCol || i == c.sexCol || i == c.birthCol
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseGradeCell accepts both decimal comma and decimal point
func parseGradeCell(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}
