package chromemdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-rag/internal/models"
)

const testKey = "0123456789abcdef0123456789abcdef"

func seed(t *testing.T, m *VectorDBManager) {
	t.Helper()
	_, err := m.GetOrCreateCollection()
	require.NoError(t, err)
	require.NoError(t, m.CreateDocs(context.Background(), []models.ChunkEmbedding{
		{Content: "kings and queens", Embedding: []float32{1, 0, 0}, Source: "web url: x", ChunkID: 1},
		{Content: "pawn structure", Embedding: []float32{0, 1, 0}, Source: "web url: x", ChunkID: 2},
		{Content: "opening theory", Embedding: []float32{0.6, 0.8, 0}, Source: "web url: x", ChunkID: 3},
	}))
}

func TestRetrieve_OrderAndClamp(t *testing.T) {
	m, err := NewVectorDBManager("", "web url: x", true, "")
	require.NoError(t, err)
	seed(t, m)
	assert.Equal(t, 3, m.Count())

	texts, err := m.Retrieve(context.Background(), []float32{0, 1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"pawn structure", "opening theory"}, texts)

	texts, err = m.Retrieve(context.Background(), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"kings and queens", "opening theory", "pawn structure"}, texts)
}

func TestRetrieve_EmptyCollection(t *testing.T) {
	m, err := NewVectorDBManager("", "empty", true, "")
	require.NoError(t, err)

	texts, err := m.Retrieve(context.Background(), []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestCreateDocs_RequiresCollection(t *testing.T) {
	m, err := NewVectorDBManager("", "none", true, "")
	require.NoError(t, err)
	assert.Error(t, m.CreateDocs(context.Background(), nil))
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	src, err := NewVectorDBManager(dir, "PDF: report.pdf", true, testKey)
	require.NoError(t, err)
	seed(t, src)
	require.NoError(t, src.Export(context.Background()))
	assert.FileExists(t, filepath.Join(dir, "pdf-report-pdf.chromem"))

	dst, err := NewVectorDBManager(dir, "PDF: report.pdf", true, testKey)
	require.NoError(t, err)
	require.NoError(t, dst.Import(context.Background()))
	assert.Equal(t, 3, dst.Count())

	texts, err := dst.Retrieve(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"kings and queens"}, texts)
}

func TestImport_WrongKey(t *testing.T) {
	dir := t.TempDir()
	src, err := NewVectorDBManager(dir, "Audio: talk.mp3", true, testKey)
	require.NoError(t, err)
	seed(t, src)
	require.NoError(t, src.Export(context.Background()))

	dst, err := NewVectorDBManager(dir, "Audio: talk.mp3", true, "fedcba9876543210fedcba9876543210")
	require.NoError(t, err)
	assert.Error(t, dst.Import(context.Background()))
}

func TestDeleteCollection(t *testing.T) {
	m, err := NewVectorDBManager("", "web url: x", true, "")
	require.NoError(t, err)
	seed(t, m)

	require.NoError(t, m.DeleteCollection())
	assert.Zero(t, m.Count())
}
