package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"media-rag/internal/config"
	"media-rag/internal/db"
	"media-rag/internal/embedding"
	"media-rag/internal/knowledgebase"
	"media-rag/internal/llmservice"
	"media-rag/internal/objectstore"
	"media-rag/internal/parser"
	"media-rag/internal/rag"
	"media-rag/internal/session"
	"media-rag/internal/transcribe"
	"media-rag/internal/youtube"
)

// sourceFlags are the media inputs shared by chat, ask and extract.
type sourceFlags struct {
	pdfs      []string
	audio     []string
	documents []string
	youtube   string
	urls      string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.pdfs, "pdf", nil, "PDF file to load (repeatable, s3:// allowed)")
	cmd.Flags().StringArrayVar(&f.audio, "audio", nil, "audio file to transcribe (repeatable, s3:// allowed)")
	cmd.Flags().StringArrayVar(&f.documents, "document", nil, "docx, pptx, xlsx, md or txt file (repeatable, s3:// allowed)")
	cmd.Flags().StringVar(&f.youtube, "youtube", "", "comma separated YouTube URLs")
	cmd.Flags().StringVar(&f.urls, "url", "", "comma separated web page URLs")
}

// sources builds the source list in flag order: files, then videos, then pages.
func (f *sourceFlags) sources() ([]parser.Source, error) {
	var out []parser.Source
	for _, group := range [][]string{f.pdfs, f.audio, f.documents} {
		for _, path := range group {
			src, err := parser.FromPath(path)
			if err != nil {
				return nil, err
			}
			out = append(out, src)
		}
	}
	out = append(out, parser.VideoSources(f.youtube)...)
	out = append(out, parser.WebSources(f.urls)...)
	return out, nil
}

// app holds the wired components and the resources to release.
type app struct {
	pipeline *session.Pipeline
	db       *bun.DB
	closers  []io.Closer
}

// own registers v for release by Close when it holds a connection.
func (a *app) own(v any) {
	if c, ok := v.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
}

// Close releases the resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("Error releasing resource")
		}
	}
	a.closers = nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	embedder, err := embedding.New(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	a.own(embedder)
	llm, err := llmservice.New(ctx, &cfg.InferenceLLM)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize inference model: %w", err)
	}
	a.own(llm)

	httpClient := &http.Client{Timeout: time.Duration(cfg.Web.TimeoutSeconds) * time.Second}
	env := &parser.Env{
		VideoFetcher: youtube.NewFetcher(http.DefaultClient),
		HTTPClient:   httpClient,
		Readability:  cfg.Web.Readability,
	}

	whisper, err := transcribe.NewWhisper(&cfg.Transcription)
	if err != nil {
		log.Warn().Err(err).Msg("Transcription disabled, audio and video sources will fail")
	} else {
		env.Transcriber = whisper
	}

	if cfg.Storage.Enabled {
		objects, err := objectstore.NewS3Client(ctx, &cfg.Storage)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		env.Objects = objects
	}

	builder := &knowledgebase.Builder{
		Embedder:      embedder,
		Backend:       cfg.RAG.Backend,
		SnapshotDir:   cfg.RAG.SnapshotDir,
		EncryptionKey: cfg.RAG.EncryptionKey,
	}
	if cfg.RAG.Backend == knowledgebase.BackendPostgres {
		dbClient, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db.NewDB(dbClient, cfg.Database.Debug)
		a.own(a.db)
		if err := db.InitDB(ctx, a.db); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		builder.DB = a.db
	}

	splitter, err := parser.NewSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pipeline = &session.Pipeline{
		Env:      env,
		Splitter: splitter,
		Builder:  builder,
		RAG:      rag.NewRAG(embedder, llm, &cfg.RAG),
	}
	return a, nil
}

// printReport lists the sources that did not become selectable.
func printReport(cmd *cobra.Command, report session.IngestReport) {
	for _, label := range report.Empty {
		cmd.PrintErrf("Skipped %s: no text found\n", label)
	}
	for _, failed := range report.Failed {
		cmd.PrintErrf("Error: %s: %s\n", failed.Label, failed.Err)
	}
}

// summarize names the sources that did not load, for screens where stderr is hidden.
func summarize(report session.IngestReport) string {
	summary := fmt.Sprintf("%d source(s) loaded", len(report.Added))
	if len(report.Empty) > 0 {
		summary += "; no text: " + strings.Join(report.Empty, ", ")
	}
	if len(report.Failed) > 0 {
		failed := make([]string, len(report.Failed))
		for i, f := range report.Failed {
			failed[i] = fmt.Sprintf("%s (%s)", f.Label, f.Err)
		}
		summary += "; failed: " + strings.Join(failed, ", ")
	}
	return summary
}
