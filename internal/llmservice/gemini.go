package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/llms"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini adapts a Gemini generative model to llms.Model.
type Gemini struct {
	client    *genai.Client
	modelName string
}

var _ llms.Model = (*Gemini)(nil)

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	return &Gemini{client: cl, modelName: modelName}, nil
}

func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *Gemini) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g, prompt, options...)
}

// GenerateContent sends the last message as a chat turn after the earlier ones.
// System messages become the system instruction.
func (g *Gemini) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	system, history := toGenaiContents(messages)
	if len(history) == 0 {
		return nil, fmt.Errorf("gemini generate: no user message")
	}

	m := g.client.GenerativeModel(g.modelName)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if opts.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		m.SetTemperature(float32(opts.Temperature))
	}

	cs := m.StartChat()
	last := history[len(history)-1]
	cs.History = history[:len(history)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return fromGenaiResponse(resp), nil
}

func toGenaiContents(messages []llms.MessageContent) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, msg := range messages {
		var parts []genai.Part
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				parts = append(parts, genai.Text(text.Text))
			}
		}
		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			for _, p := range parts {
				system = append(system, string(p.(genai.Text)))
			}
		case llms.ChatMessageTypeAI:
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: parts})
		}
	}
	return strings.Join(system, "\n"), contents
}

func fromGenaiResponse(resp *genai.GenerateContentResponse) *llms.ContentResponse {
	info := map[string]any{}
	if resp.UsageMetadata != nil {
		info["PromptTokens"] = int(resp.UsageMetadata.PromptTokenCount)
		info["CompletionTokens"] = int(resp.UsageMetadata.CandidatesTokenCount)
		info["TotalTokens"] = int(resp.UsageMetadata.TotalTokenCount)
	}

	choice := &llms.ContentChoice{GenerationInfo: info}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var b strings.Builder
		for _, p := range resp.Candidates[0].Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		choice.Content = b.String()
		choice.StopReason = resp.Candidates[0].FinishReason.String()
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}
}
