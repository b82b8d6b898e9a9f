package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"media-rag/internal/models"
)

// PDFSource is an uploaded PDF file.
type PDFSource struct {
	Name string
	Open Opener
}

func (s *PDFSource) Kind() models.MediaKind { return models.KindPDF }

func (s *PDFSource) Label() string { return models.KindPDF.Label(s.Name) }

// Extract concatenates the plain text of every page in order.
// A PDF without a text layer yields the empty string.
func (s *PDFSource) Extract(ctx context.Context, env *Env) (string, error) {
	data, err := readAll(ctx, env, s.Open)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf %s: %w", s.Name, err)
	}
	return ExtractPDFText(data)
}

// ExtractPDFText returns the text layer of an in-memory PDF.
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var text strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		text.WriteString(pageText)
	}
	return text.String(), nil
}
