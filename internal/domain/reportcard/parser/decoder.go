package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoTextLayer indicates an image-only PDF that would need OCR
var ErrNoTextLayer = errors.New("pdf has no text layer")

// PDFTextDecoder extracts the embedded text layer of a PDF, one output line per
// visual row. Text runs in a row are concatenated as drawn, which is how names
// and numbers end up glued together in the supported layouts.
type PDFTextDecoder struct{}

// NewPDFTextDecoder creates a text-layer decoder
func NewPDFTextDecoder() *PDFTextDecoder {
	return &PDFTextDecoder{}
}

// DecodeText implements TextDecoder. Every failure wraps ErrDecodeFailure.
func (d *PDFTextDecoder) DecodeText(ctx context.Context, data []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrDecodeFailure, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %w", ErrDecodeFailure, i, err)
		}

		for _, row := range rows {
			for _, run := range row.Content {
				sb.WriteString(run.S)
			}
			sb.WriteByte('\n')
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: %w", ErrDecodeFailure, ErrNoTextLayer)
	}
	return sb.String(), nil
}
