package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"media-rag/internal/config"
	"media-rag/internal/knowledgebase"
	"media-rag/internal/llmservice"
	"media-rag/internal/models"
)

var (
	ErrNoKnowledgeBase = errors.New("no knowledge base selected")
	ErrAnswer          = errors.New("failed to answer question")
)

type RAG struct {
	embedder embeddings.Embedder
	llm      llms.Model
	cfg      *config.RAGConfig
	prompt   prompts.PromptTemplate
}

func NewRAG(embedder embeddings.Embedder, llm llms.Model, cfg *config.RAGConfig) *RAG {
	return &RAG{
		embedder: embedder,
		llm:      llm,
		cfg:      cfg,
		prompt:   prompts.NewPromptTemplate(models.StuffQAPromptTemplate, []string{"context", "question"}),
	}
}

func (r *RAG) topK() int {
	if r.cfg == nil || r.cfg.TopK <= 0 {
		return models.DefaultTopK
	}
	return r.cfg.TopK
}

// MaxTokens is the answer length used when a caller does not pick one.
func (r *RAG) MaxTokens() int {
	if r.cfg == nil || r.cfg.MaxTokens <= 0 {
		return models.DefaultMaxTokens
	}
	return r.cfg.MaxTokens
}

// Query retrieves the chunks closest to query, stuffs them into the prompt
// and issues one generation request.
func (r *RAG) Query(ctx context.Context, query string, kb knowledgebase.KnowledgeBase, maxTokens int) (*models.PromptResponse, error) {
	if kb == nil {
		return nil, ErrNoKnowledgeBase
	}
	if maxTokens <= 0 {
		maxTokens = r.MaxTokens()
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	docs, err := kb.Retrieve(ctx, queryEmbedding, r.topK())
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	log.Debug().Int("documents", len(docs)).Msg("Retrieved context")

	prompt, err := r.prompt.Format(map[string]any{
		"context":  strings.Join(docs, models.ContextSeparator),
		"question": query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	res, err := llmservice.GenerateContent(ctx, r.llm,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	promptTokens, completionTokens := llmservice.TokenUsage(res)
	return &models.PromptResponse{
		Query:            query,
		Context:          docs,
		Content:          res.Choices[0].Content,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	}, nil
}

// Answer returns only the generated text of Query.
func (r *RAG) Answer(ctx context.Context, query string, kb knowledgebase.KnowledgeBase, maxTokens int) (string, error) {
	response, err := r.Query(ctx, query, kb, maxTokens)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// Ask records the question in history and answers it. On failure the returned
// history holds the question without an answer and the error wraps ErrAnswer.
func (r *RAG) Ask(ctx context.Context, history models.History, query string, kb knowledgebase.KnowledgeBase) (models.History, error) {
	history = history.Append(models.UserMessage(query))

	answer, err := r.Answer(ctx, query, kb, r.MaxTokens())
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Error answering question")
		return history, fmt.Errorf("%w: %w", ErrAnswer, err)
	}
	return history.Append(models.AssistantMessage(answer)), nil
}
