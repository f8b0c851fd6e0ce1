package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jecoplus/lending/internal/domain/apperr"
)

// PDFDocumentParser implements port.DocumentParser with ledongthuc/pdf.
type PDFDocumentParser struct {
	logger *slog.Logger
}

func NewPDFDocumentParser(logger *slog.Logger) *PDFDocumentParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFDocumentParser{logger: logger}
}

// Parse returns the document text, one line per layout row and a blank line
// between pages. Every failure is an apperr.UpstreamParse.
func (p *PDFDocumentParser) Parse(ctx context.Context, document []byte) (string, error) {
	if len(document) == 0 {
		return "", apperr.UpstreamParse(errors.New("empty document"))
	}
	if err := ctx.Err(); err != nil {
		return "", apperr.UpstreamParse(err)
	}

	text, err := extractText(document)
	if err != nil {
		p.logger.WarnContext(ctx, "pdf extraction failed", "size", len(document), "error", err)
		return "", apperr.UpstreamParse(err)
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.UpstreamParse(errors.New("document contains no extractable text"))
	}

	p.logger.DebugContext(ctx, "pdf extracted", "size", len(document), "chars", len(text))
	return text, nil
}

// extractText tries row layout first and falls back to the reader's plain
// text stream. The library panics on some malformed inputs.
func extractText(document []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return "", err
	}
	numPages := r.NumPage()
	if numPages == 0 {
		return "", errors.New("pdf has no pages")
	}

	if text := extractByRow(r, numPages); strings.TrimSpace(text) != "" {
		return text, nil
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractByRow(r *pdf.Reader, numPages int) string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return strings.Join(pages, "\n\n")
}
