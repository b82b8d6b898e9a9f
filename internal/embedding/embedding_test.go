package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"

	"media-rag/internal/config"
	"media-rag/internal/models"
)

// mockEmbedder returns one fixed size vector per text, derived from its length.
type mockEmbedder struct {
	err   error
	short bool
}

func (m *mockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, m.err
}

func TestGenerateEmbedding(t *testing.T) {
	chunks := []models.Chunk{
		{Content: "first", ChunkID: 1},
		{Content: "second chunk", Offset: 4, ChunkID: 2},
	}

	out, err := GenerateEmbedding(context.Background(), &mockEmbedder{}, "PDF: a.pdf", chunks)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "second chunk", out[1].Content)
	assert.Equal(t, []float32{12, 1}, out[1].Embedding)
	assert.Equal(t, "PDF: a.pdf", out[1].Source)
	assert.Equal(t, 2, out[1].ChunkID)
}

func TestGenerateEmbedding_NoChunks(t *testing.T) {
	out, err := GenerateEmbedding(context.Background(), &mockEmbedder{}, "PDF: empty.pdf", nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestGenerateEmbedding_Errors(t *testing.T) {
	chunks := []models.Chunk{{Content: "a", ChunkID: 1}, {Content: "b", ChunkID: 2}}

	_, err := GenerateEmbedding(context.Background(), &mockEmbedder{err: errors.New("rate limited")}, "x", chunks)
	assert.ErrorContains(t, err, "rate limited")

	_, err = GenerateEmbedding(context.Background(), &mockEmbedder{short: true}, "x", chunks)
	assert.ErrorContains(t, err, "returned 1 vectors for 2 chunks")
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), &config.LLMConfig{Provider: "bedrock"})
	assert.Error(t, err)
}

func TestNewEmbedder_OpenAICompatibleServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			data[i] = item{Object: "embedding", Embedding: []float32{float32(i + 1), 0.5}, Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 2, "total_tokens": 2},
		})
	}))
	defer srv.Close()

	embedder, err := New(context.Background(), &config.LLMConfig{
		Provider: "openai",
		BaseURL:  srv.URL,
		Key:      "sk-test",
		Model:    "text-embedding-3-small",
	})
	require.NoError(t, err)

	vectors, err := embedder.EmbedDocuments(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0.5}, vectors[0])
	assert.Equal(t, []float32{2, 0.5}, vectors[1])
}

func TestGeminiBatchEmbedder_BatchSizeLimit(t *testing.T) {
	var batches []int
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		batches = append(batches, len(texts))
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1, 0}
		}
		return out, nil
	})

	embedder, err := newGeminiBatchEmbedder(client)
	require.NoError(t, err)

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}
	vectors, err := embedder.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 250)
	assert.Equal(t, []int{100, 100, 50}, batches)
}
