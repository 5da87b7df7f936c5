package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// TextDecoder turns document bytes into plain text with line breaks preserved
type TextDecoder interface {
	DecodeText(ctx context.Context, data []byte) (string, error)
}

// PDFResult contains the classes recovered from one PDF and the parse counters
type PDFResult struct {
	Classes []ParsedClass
	Stats   ParseStats
}

// PDFParser parses report-card PDFs. It is safe for concurrent use: every call
// gets its own line-stream state.
type PDFParser struct {
	decoder TextDecoder
	config  Config
	logger  *slog.Logger
}

// NewPDFParser creates a PDF parser backed by the given text decoder
func NewPDFParser(decoder TextDecoder, config Config, logger *slog.Logger) *PDFParser {
	config = config.withDefaults()
	if logger == nil {
		logger = config.Logger
	}
	return &PDFParser{
		decoder: decoder,
		config:  config,
		logger:  logger,
	}
}

// ParsePDF decodes the document and recovers its class roster. Only decode
// failures are returned as errors; unparseable lines are absorbed.
func (p *PDFParser) ParsePDF(ctx context.Context, data []byte) (*PDFResult, error) {
	text, err := p.decoder.DecodeText(ctx, data)
	if err != nil {
		if errors.Is(err, ErrDecodeFailure) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("failed to extract PDF text: %w", err)
		}
		return nil, fmt.Errorf("failed to extract PDF text: %w: %w", ErrDecodeFailure, err)
	}

	classes, stats := ParseText(text, p.config)

	if stats.HeaderNotFound {
		p.logger.Warn("class header not found, using sentinel values",
			slog.String("class", UnknownClass),
			slog.String("shift", UnknownShift),
		)
	}
	p.logger.Debug("pdf parsed",
		slog.String("class", classes[0].ClassName),
		slog.Int("students", stats.Students),
		slog.Int("chrome_lines", stats.ChromeLines),
		slog.Int("rejected_lines", stats.RejectedLines),
		slog.Int("orphan_records", stats.OrphanRecords),
		slog.Int("dropped_fragments", stats.DroppedFrags),
	)

	return &PDFResult{Classes: classes, Stats: stats}, nil
}
