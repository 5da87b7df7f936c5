package service

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for files that are neither PDF nor spreadsheet
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format identifies the document kind of an uploaded file
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "xlsx"
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// DetectFormat picks the parser for a file from its extension, falling back to
// the leading magic bytes when the extension is missing or unknown.
func DetectFormat(filename string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".xlsx", ".xls":
		return FormatExcel, nil
	}

	head := bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n ")
	switch {
	case bytes.HasPrefix(head, pdfMagic):
		return FormatPDF, nil
	case bytes.HasPrefix(head, zipMagic):
		return FormatExcel, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}
