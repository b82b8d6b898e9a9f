package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"code.sajari.com/docconv"
	"github.com/PuerkitoBio/goquery"

	"media-rag/internal/models"
)

// WebSource is a web page URL.
type WebSource struct {
	URL string
}

func (s *WebSource) Kind() models.MediaKind { return models.KindWeb }

func (s *WebSource) Label() string { return models.KindWeb.Label(s.URL) }

// Extract fetches the page and returns all of its text nodes. With readability
// enabled only the main content block is kept.
func (s *WebSource) Extract(ctx context.Context, env *Env) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", s.URL, err)
	}

	resp, err := env.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("failed to fetch %s: %s", s.URL, resp.Status)
	}

	if env != nil && env.Readability {
		return readableText(resp.Body)
	}
	return HTMLText(resp.Body)
}

// HTMLText returns the concatenated text nodes of an HTML document.
func HTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	return doc.Text(), nil
}

func readableText(r io.Reader) (string, error) {
	text, _, err := docconv.ConvertHTML(r, true)
	if err != nil {
		return "", fmt.Errorf("failed to extract readable text: %w", err)
	}
	return text, nil
}
