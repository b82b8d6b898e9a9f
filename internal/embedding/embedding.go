package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"media-rag/internal/config"
	"media-rag/internal/models"
)

// New builds the embedder selected by the provider of LLMconfig.
func New(ctx context.Context, LLMconfig *config.LLMConfig) (embeddings.Embedder, error) {
	var embedder embeddings.Embedder
	var err error
	switch strings.ToLower(LLMconfig.Provider) {
	case "openai", "":
		embedder, err = NewEmbedder(LLMconfig.Key, LLMconfig.BaseURL, LLMconfig.Model)
	case "ollama":
		embedder, err = NewOllamaEmbedder(LLMconfig)
	case "gemini":
		embedder, err = NewGeminiEmbedder(ctx, LLMconfig.Key, LLMconfig.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", LLMconfig.Provider)
	}
	if err != nil {
		return nil, err
	}
	return embedder, nil
}

// NewEmbedder creates a new embedder
func NewEmbedder(apiKey, baseURL, embeddingModel string) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        baseURL,
		"embedding_model": embeddingModel,
	}).Msg("Loaded config")

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithEmbeddingModel(embeddingModel),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// new ollama embedder
func NewOllamaEmbedder(LLMconfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        LLMconfig.BaseURL,
		"embedding_model": LLMconfig.Model,
	}).Msg("Loaded config")

	llm, err := ollama.New(
		ollama.WithServerURL(LLMconfig.BaseURL),
		ollama.WithModel(LLMconfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// GenerateEmbedding embeds every chunk of a source in one batch
func GenerateEmbedding(ctx context.Context, embedder embeddings.Embedder, source string, chunks []models.Chunk) ([]models.ChunkEmbedding, error) {
	if len(chunks) == 0 {
		log.Info().Str("source", source).Msg("No chunks generated from content")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %s: %w", source, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	chunkEmbeddings := make([]models.ChunkEmbedding, len(chunks))
	for i, chunk := range chunks {
		chunkEmbeddings[i] = models.ChunkEmbedding{
			Content:   chunk.Content,
			Embedding: vectors[i],
			Source:    source,
			ChunkID:   chunk.ChunkID,
		}
	}
	return chunkEmbeddings, nil
}
