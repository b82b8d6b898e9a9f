package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"media-rag/internal/models"
)

// scratchAudioName is the file a video's audio track is downloaded to.
const scratchAudioName = "audio.mp3"

// AudioSource is an uploaded audio (or audio bearing video) file.
type AudioSource struct {
	Name string
	Open Opener
}

func (s *AudioSource) Kind() models.MediaKind { return models.KindAudio }

func (s *AudioSource) Label() string { return models.KindAudio.Label(s.Name) }

// Extract writes the upload to a scratch file, transcribes it and returns the
// transcription verbatim. The scratch file is removed before returning.
func (s *AudioSource) Extract(ctx context.Context, env *Env) (string, error) {
	if env == nil || env.Transcriber == nil {
		return "", fmt.Errorf("%w: transcriber", ErrMissingDependency)
	}
	if s.Open == nil {
		return "", fmt.Errorf("%w: no stream for %s", ErrUnsupportedSource, s.Name)
	}

	rc, err := s.Open(ctx, env)
	if err != nil {
		return "", fmt.Errorf("failed to open audio %s: %w", s.Name, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(env.scratchDir(), "audio-*"+filepath.Ext(s.Name))
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	audioPath := tmp.Name()
	defer os.Remove(audioPath)

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}

	log.Debug().Str("source", s.Name).Str("path", audioPath).Msg("Transcribing audio")
	return env.Transcriber.Transcribe(ctx, audioPath)
}

// VideoSource is a YouTube video URL.
type VideoSource struct {
	URL string
}

func (s *VideoSource) Kind() models.MediaKind { return models.KindVideo }

func (s *VideoSource) Label() string { return models.KindVideo.Label(s.URL) }

// Extract downloads the audio track into a scratch directory and transcribes it.
// The directory is removed before returning.
func (s *VideoSource) Extract(ctx context.Context, env *Env) (string, error) {
	if env == nil || env.VideoFetcher == nil {
		return "", fmt.Errorf("%w: video fetcher", ErrMissingDependency)
	}
	if env.Transcriber == nil {
		return "", fmt.Errorf("%w: transcriber", ErrMissingDependency)
	}

	dir, err := os.MkdirTemp(env.scratchDir(), "video-*")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	audioPath := filepath.Join(dir, scratchAudioName)
	if err := env.VideoFetcher.FetchAudio(ctx, s.URL, audioPath); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", s.URL, err)
	}

	log.Debug().Str("url", s.URL).Str("path", audioPath).Msg("Transcribing video audio")
	return env.Transcriber.Transcribe(ctx, audioPath)
}
