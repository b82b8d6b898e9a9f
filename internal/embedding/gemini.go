package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/embeddings"
	"google.golang.org/api/option"
)

const (
	defaultGeminiEmbeddingModel = "text-embedding-004"
	// BatchEmbedContents accepts at most 100 requests per call.
	geminiMaxBatchSize = 100
)

// geminiClient adapts the Gemini batch embedding API to embeddings.EmbedderClient.
type geminiClient struct {
	client    *genai.Client
	modelName string
}

// GeminiEmbedder embeds through Gemini and owns the underlying client.
type GeminiEmbedder struct {
	*embeddings.EmbedderImpl
	client *genai.Client
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string) (*GeminiEmbedder, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiEmbeddingModel
	}
	impl, err := newGeminiBatchEmbedder(&geminiClient{client: cl, modelName: modelName})
	if err != nil {
		cl.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &GeminiEmbedder{EmbedderImpl: impl, client: cl}, nil
}

func newGeminiBatchEmbedder(client embeddings.EmbedderClient) (*embeddings.EmbedderImpl, error) {
	return embeddings.NewEmbedder(client, embeddings.WithBatchSize(geminiMaxBatchSize))
}

func (e *GeminiEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// CreateEmbedding sends one batch request for texts.
func (g *geminiClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := g.client.EmbeddingModel(g.modelName)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		out = append(out, e.Values)
	}
	return out, nil
}
