package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"media-rag/internal/models"
)

// buildZip packs the named parts into an office package.
func buildZip(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func slideXML(paragraphs ...string) string {
	xml := `<p:sld xmlns:a="a" xmlns:p="p"><p:cSld><p:spTree>`
	for _, p := range paragraphs {
		xml += `<a:p><a:r><a:rPr lang="en-US"/><a:t>` + p + `</a:t></a:r></a:p>`
	}
	return xml + `</p:spTree></p:cSld></p:sld>`
}

func TestParseDocument_PPTX(t *testing.T) {
	data := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml":           slideXML("Closing"),
		"ppt/slides/slide2.xml":            slideXML("Agenda", "Q&amp;A"),
		"ppt/slides/slide1.xml":            slideXML("Welcome"),
		"ppt/slides/_rels/slide1.xml.rels": "<Relationships/>",
	})

	text, err := ParseDocument("deck.pptx", data)
	require.NoError(t, err)
	assert.Equal(t, "## Slide 1\nWelcome\n## Slide 2\nAgenda\nQ&A\n## Slide 10\nClosing\n", text)
}

func TestParseDocument_DOCX(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="w"><w:body>` +
		`<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Quarterly report</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Revenue</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve"> grew by </w:t></w:r><w:r><w:t>5%</w:t></w:r></w:p>` +
		`<w:p/>` +
		`<w:p><w:r><w:t>R&amp;D &lt;ongoing&gt;</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	data := buildZip(t, map[string]string{
		"[Content_Types].xml":          `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":            body,
		"word/_rels/document.xml.rels": `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`,
	})

	text, err := ParseDocument("report.docx", data)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report\nRevenue grew by 5%\nR&D <ongoing>\n", text)

	_, err = ParseDocument("broken.docx", []byte("not a zip archive"))
	assert.Error(t, err)
}

func TestParseDocument_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "score"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "alice"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 42))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	text, err := ParseDocument("scores.XLSX", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "## Sheet: Sheet1\nname\tscore\nalice\t42\n", text)
}

func TestParseDocument_Markdown(t *testing.T) {
	text, err := ParseDocument("notes.md", []byte("# Heading\n\nSome *emphasis* here.\n"))
	require.NoError(t, err)
	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "Some emphasis here.")
	assert.NotContains(t, text, "<h1>")
	assert.NotContains(t, text, "*")
}

func TestParseDocument_PlainText(t *testing.T) {
	text, err := ParseDocument("notes.txt", []byte("line one\nline two\n"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", text)
}

func TestParseDocument_Unsupported(t *testing.T) {
	_, err := ParseDocument("image.png", []byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestExtractTextFromXML(t *testing.T) {
	xml := `<w:body><w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>` +
		`<w:p><w:r><w:tab/></w:r></w:p><w:p><w:r><w:t>a &lt; b</w:t></w:r></w:p></w:body>`
	assert.Equal(t, "Hello world\na < b\n", extractTextFromXML(xml, "w:t", "</w:p>"))
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path  string
		kind  models.MediaKind
		label string
	}{
		{"/data/report.pdf", models.KindPDF, "PDF: report.pdf"},
		{"/data/talk.MP3", models.KindAudio, "Audio: talk.MP3"},
		{"/data/clip.mov", models.KindAudio, "Audio: clip.mov"},
		{"s3://bucket/notes.docx", models.KindDocument, "Document: notes.docx"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			src, err := FromPath(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, src.Kind())
			assert.Equal(t, tc.label, src.Label())
		})
	}

	_, err := FromPath("/data/archive.zip")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestDocumentSource_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readme.txt")
	require.NoError(t, os.WriteFile(path, []byte("on disk"), 0o644))

	src, err := FromPath(path)
	require.NoError(t, err)
	text, err := src.Extract(context.Background(), &Env{})
	require.NoError(t, err)
	assert.Equal(t, "on disk", text)
}

type mockObjects struct {
	data map[string][]byte
}

func (m *mockObjects) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	data, ok := m.data[uri]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestFileOpener_ObjectStore(t *testing.T) {
	src, err := FromPath("s3://docs/notes.txt")
	require.NoError(t, err)

	_, err = src.Extract(context.Background(), &Env{})
	assert.ErrorIs(t, err, ErrMissingDependency)

	env := &Env{Objects: &mockObjects{data: map[string][]byte{"s3://docs/notes.txt": []byte("from bucket")}}}
	text, err := src.Extract(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "from bucket", text)
}

func TestURLSources(t *testing.T) {
	videos := VideoSources(" https://youtu.be/a ,, https://youtu.be/b,")
	require.Len(t, videos, 2)
	assert.Equal(t, "Video (YouTube): https://youtu.be/a", videos[0].Label())
	assert.Equal(t, "Video (YouTube): https://youtu.be/b", videos[1].Label())

	pages := WebSources("https://en.wikipedia.org/wiki/Chess")
	require.Len(t, pages, 1)
	assert.Equal(t, models.KindWeb, pages[0].Kind())
	assert.Equal(t, "web url: https://en.wikipedia.org/wiki/Chess", pages[0].Label())

	assert.Empty(t, WebSources(" , "))
}
