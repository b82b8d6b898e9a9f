package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"media-rag/internal/models"
)

// DocumentSource is an office or plain text file.
type DocumentSource struct {
	Name string
	Open Opener
}

func (s *DocumentSource) Kind() models.MediaKind { return models.KindDocument }

func (s *DocumentSource) Label() string { return models.KindDocument.Label(s.Name) }

func (s *DocumentSource) Extract(ctx context.Context, env *Env) (string, error) {
	data, err := readAll(ctx, env, s.Open)
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", s.Name, err)
	}
	return ParseDocument(s.Name, data)
}

// ParseDocument extracts text from a document, choosing the parser by extension.
func ParseDocument(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".docx":
		return parseDOCX(data)
	case ".pptx":
		return parsePPTX(data)
	case ".xlsx", ".xlsm":
		return parseXLSX(data)
	case ".md":
		return parseMarkdown(data)
	case ".txt":
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: file format %s", ErrUnsupportedSource, ext)
	}
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	return extractTextFromXML(r.Editable().GetContent(), "w:t", "</w:p>"), nil
}

var slideNumber = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func parsePPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range zr.File {
		m := slideNumber.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, file: file})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var text strings.Builder
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		slideText := strings.TrimSpace(extractTextFromXML(string(content), "a:t", "</a:p>"))
		if slideText == "" {
			continue
		}
		text.WriteString(fmt.Sprintf("## Slide %d\n", s.num))
		text.WriteString(slideText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func parseXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

// parseMarkdown renders markdown to HTML and keeps only the visible text
func parseMarkdown(data []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(data, &buf); err != nil {
		return "", err
	}
	return HTMLText(&buf)
}

// extractTextFromXML collects the character data of every tag element,
// starting a new line at each paragraph end marker.
func extractTextFromXML(xmlContent, tag, paragraphEnd string) string {
	var text strings.Builder
	open := regexp.MustCompile(`<` + regexp.QuoteMeta(tag) + `(?:\s[^>]*)?>`)
	closeTag := "</" + tag + ">"

	for _, para := range strings.Split(xmlContent, paragraphEnd) {
		var line strings.Builder
		for _, loc := range open.FindAllStringIndex(para, -1) {
			rest := para[loc[1]:]
			endIdx := strings.Index(rest, closeTag)
			if endIdx >= 0 {
				line.WriteString(rest[:endIdx])
			}
		}
		if line.Len() > 0 {
			text.WriteString(unescapeXML(line.String()))
			text.WriteString("\n")
		}
	}
	return text.String()
}

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}
