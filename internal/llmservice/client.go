package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"media-rag/internal/config"
)

var ErrEmptyResponse = errors.New("model returned no choices")

// New builds the inference model selected by the provider of llmConfig.
func New(ctx context.Context, llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Msg("Creating inference model")

	var (
		llm llms.Model
		err error
	)
	switch strings.ToLower(llmConfig.Provider) {
	case "openai", "":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err = openai.New(opts...)
	case "ollama":
		llm, err = ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	case "gemini":
		llm, err = NewGemini(ctx, llmConfig.Key, llmConfig.Model)
	default:
		return nil, fmt.Errorf("unknown inference provider %q", llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s model: %w", llmConfig.Provider, err)
	}
	return llm, nil
}

// GenerateContent calls the model once and logs the token usage it reports.
func GenerateContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	res, err := llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if len(res.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	prompt, completion := TokenUsage(res)
	log.Info().
		Int("prompt_tokens", prompt).
		Int("completion_tokens", completion).
		Int("total_tokens", prompt+completion).
		Msg("Generation finished")
	return res, nil
}

// TokenUsage reads the token counts providers report in the first choice.
func TokenUsage(res *llms.ContentResponse) (prompt, completion int) {
	if res == nil || len(res.Choices) == 0 {
		return 0, 0
	}
	info := res.Choices[0].GenerationInfo
	return intValue(info["PromptTokens"]), intValue(info["CompletionTokens"])
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
