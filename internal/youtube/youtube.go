package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"
)

var ErrNoAudioStream = errors.New("no audio-only stream")

// Fetcher downloads the audio track of YouTube videos.
type Fetcher struct {
	client youtube.Client
}

func NewFetcher(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{client: youtube.Client{HTTPClient: httpClient}}
}

// FetchAudio writes the first audio-only stream of the video at url to destPath.
func (f *Fetcher) FetchAudio(ctx context.Context, url, destPath string) error {
	video, err := f.client.GetVideoContext(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to resolve video %s: %w", url, err)
	}

	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		return fmt.Errorf("%w: %s", ErrNoAudioStream, url)
	}
	format := formats[0]

	stream, size, err := f.client.GetStreamContext(ctx, video, &format)
	if err != nil {
		return fmt.Errorf("failed to open stream for %s: %w", url, err)
	}
	defer stream.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer out.Close()

	log.Info().Str("title", video.Title).Str("mime", format.MimeType).Int64("size", size).Msg("Downloading audio stream")
	if _, err := io.Copy(out, stream); err != nil {
		return fmt.Errorf("failed to download audio for %s: %w", url, err)
	}
	return out.Close()
}
