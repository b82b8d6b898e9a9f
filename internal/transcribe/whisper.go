package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"media-rag/internal/config"
)

// Whisper transcribes whole audio files with the OpenAI transcription endpoint.
type Whisper struct {
	client *openai.Client
	model  string
}

func NewWhisper(cfg *config.TranscriptionConfig) (*Whisper, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("transcription key is required")
	}
	clientCfg := openai.DefaultConfig(strings.TrimPrefix(cfg.Key, "Bearer "))
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &Whisper{client: openai.NewClientWithConfig(clientCfg), model: model}, nil
}

// Transcribe uploads the file at audioPath and returns the recognized text as is.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	log.Debug().Str("model", w.model).Str("path", audioPath).Msg("Requesting transcription")

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe %s: %w", audioPath, err)
	}
	return resp.Text, nil
}
