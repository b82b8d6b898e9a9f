package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"media-rag/internal/helper"
	"media-rag/internal/models"
)

var (
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrMissingDependency = errors.New("extraction dependency not configured")
)

// Transcriber turns an audio file on disk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// VideoFetcher downloads the audio track of a video URL to destPath.
type VideoFetcher interface {
	FetchAudio(ctx context.Context, url, destPath string) error
}

// ObjectOpener streams objects addressed by a s3:// URI.
type ObjectOpener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Env carries the collaborators extraction needs.
type Env struct {
	Transcriber  Transcriber
	VideoFetcher VideoFetcher
	HTTPClient   *http.Client
	Objects      ObjectOpener
	Readability  bool
	ScratchDir   string
}

func (e *Env) httpClient() *http.Client {
	if e == nil || e.HTTPClient == nil {
		return http.DefaultClient
	}
	return e.HTTPClient
}

func (e *Env) scratchDir() string {
	if e == nil {
		return ""
	}
	return e.ScratchDir
}

// Source is a media item that can produce its text.
type Source interface {
	Kind() models.MediaKind
	Label() string
	Extract(ctx context.Context, env *Env) (string, error)
}

// Opener yields a fresh stream over a file backed source.
type Opener func(ctx context.Context, env *Env) (io.ReadCloser, error)

// FileOpener opens a local path, or an object store URI when path starts with s3://.
func FileOpener(path string) Opener {
	if strings.HasPrefix(path, "s3://") {
		return func(ctx context.Context, env *Env) (io.ReadCloser, error) {
			if env == nil || env.Objects == nil {
				return nil, fmt.Errorf("%w: object store for %s", ErrMissingDependency, path)
			}
			return env.Objects.Open(ctx, path)
		}
	}
	return func(_ context.Context, _ *Env) (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// BytesOpener serves an in-memory upload.
func BytesOpener(data []byte) Opener {
	return func(_ context.Context, _ *Env) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// FromPath builds a file source, choosing the variant by extension.
func FromPath(path string) (Source, error) {
	return FromUpload(filepath.Base(path), FileOpener(path))
}

// FromUpload builds a file source for a named stream.
func FromUpload(name string, open Opener) (Source, error) {
	kind, ok := models.KindFromPath(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, name)
	}
	switch kind {
	case models.KindPDF:
		return &PDFSource{Name: name, Open: open}, nil
	case models.KindAudio:
		return &AudioSource{Name: name, Open: open}, nil
	default:
		return &DocumentSource{Name: name, Open: open}, nil
	}
}

// VideoSources builds one source per entry of a comma separated URL list.
func VideoSources(list string) []Source {
	var out []Source
	for _, url := range helper.SplitList(list) {
		out = append(out, &VideoSource{URL: url})
	}
	return out
}

// WebSources builds one source per entry of a comma separated URL list.
func WebSources(list string) []Source {
	var out []Source
	for _, url := range helper.SplitList(list) {
		out = append(out, &WebSource{URL: url})
	}
	return out
}

func readAll(ctx context.Context, env *Env, open Opener) ([]byte, error) {
	if open == nil {
		return nil, fmt.Errorf("%w: no stream", ErrUnsupportedSource)
	}
	rc, err := open(ctx, env)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
