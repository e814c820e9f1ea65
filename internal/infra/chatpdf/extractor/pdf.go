// Package extractor pulls plain text out of uploaded PDF files.
package extractor

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
)

// NoExtractableTextHint is surfaced on the AppError wrapping an
// all-blank extraction result.
const NoExtractableTextHint = "no extractable text found; the PDF is likely scanned and needs OCR"

// PDFExtractor reads page text from a PDF byte stream.
type PDFExtractor struct{}

// NewPDFExtractor constructs the extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract concatenates the plain text of every page, separated by a
// blank line, and fails if the whole document carries no text.
func (PDFExtractor) Extract(_ context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperrors.Wrap(domain.CodeExtractionFailure, "open pdf", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}

	full := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if full == "" {
		return "", apperrors.Wrap(domain.CodeExtractionFailure, NoExtractableTextHint, nil)
	}
	return full, nil
}

var _ domain.Extractor = PDFExtractor{}
