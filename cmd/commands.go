package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"media-rag/internal/helper"
	"media-rag/internal/knowledgebase"
	"media-rag/internal/models"
	"media-rag/internal/parser"
	"media-rag/internal/server"
	"media-rag/internal/session"
	"media-rag/internal/tui"
)

var (
	chatSources    sourceFlags
	askSources     sourceFlags
	extractSources sourceFlags

	askSource    string
	askSnapshots []string
	dryRun       bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Load sources and chat about them in the terminal",
	Long: `Load sources and chat about them in the terminal.

Controls:
  Tab/Shift+Tab - Select source
  Enter         - Ask
  Esc, Ctrl+C   - Quit`,
	RunE: runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from a loaded source",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract and index sources, saving knowledge base snapshots",
	RunE:  runExtract,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question answering HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	chatSources.register(chatCmd)
	askSources.register(askCmd)
	extractSources.register(extractCmd)

	askCmd.Flags().StringVar(&askSource, "source", "", "label of the source to answer from (default: first loaded)")
	askCmd.Flags().StringArrayVar(&askSnapshots, "snapshot", nil, "label of a saved knowledge base to load (repeatable)")
	extractCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the chunks without embedding or saving them")

	rootCmd.AddCommand(chatCmd, askCmd, extractCmd, serveCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sources, err := chatSources.sources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no sources given, use --pdf, --audio, --document, --youtube or --url")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newSession(a)
	if err != nil {
		return err
	}
	defer closeSession(s)
	report := s.Ingest(ctx, sources)
	printReport(cmd, report)

	if _, err := tea.NewProgram(tui.New(s, summarize(report)), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := args[0]

	sources, err := askSources.sources()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newSession(a)
	if err != nil {
		return err
	}
	defer closeSession(s)
	for _, label := range askSnapshots {
		kb, err := a.pipeline.Builder.Open(ctx, label)
		if err != nil {
			return err
		}
		s.AddKnowledgeBase(label, kb)
	}
	printReport(cmd, s.Ingest(ctx, sources))

	label := askSource
	if label == "" {
		labels := s.Labels()
		if len(labels) == 0 {
			return errors.New("no source with text to answer from")
		}
		label = labels[0]
	}

	history, err := s.Ask(ctx, label, query)
	if err != nil {
		return err
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	cmd.Printf("%s\n\n", query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	cmd.Printf("%s\n\n", label)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	cmd.Printf("%s\n\n", history[len(history)-1].Text)
	return nil
}

// chunkedSource is what extract --dry-run prints for a source.
type chunkedSource struct {
	Label  string         `json:"label"`
	Chunks []models.Chunk `json:"chunks"`
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sources, err := extractSources.sources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no sources given, use --pdf, --audio, --document, --youtube or --url")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if dryRun {
		for _, src := range sources {
			text, err := src.Extract(ctx, a.pipeline.Env)
			if err != nil {
				cmd.PrintErrf("Error: %s: %s\n", src.Label(), err)
				continue
			}
			helper.PrettyPrint(chunkedSource{Label: src.Label(), Chunks: a.pipeline.Splitter.Split(text)})
		}
		return nil
	}

	if err := helper.CreateFolder(cfg.RAG.SnapshotDir); err != nil {
		return err
	}
	for _, src := range sources {
		if err := extractOne(ctx, cmd, a, src); err != nil {
			cmd.PrintErrf("Error: %s: %s\n", src.Label(), err)
		}
	}
	return nil
}

func extractOne(ctx context.Context, cmd *cobra.Command, a *app, src parser.Source) error {
	kb, err := a.pipeline.Process(ctx, src.Label(), src)
	if err != nil {
		return err
	}
	if kb == nil {
		cmd.PrintErrf("Skipped %s: no text found\n", src.Label())
		return nil
	}
	if cfg.RAG.Backend == knowledgebase.BackendPostgres {
		cmd.Printf("Stored %s\n", src.Label())
		return nil
	}
	if err := knowledgebase.Save(ctx, kb); err != nil {
		return err
	}
	cmd.Printf("Saved %s\n", src.Label())
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	store := session.NewStore(a.pipeline)
	srv := server.NewServer(&cfg.Server, store)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return store.Close(shutdownCtx)
	})
	return g.Wait()
}

func newSession(a *app) (*session.Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	return session.New(id, a.pipeline), nil
}

// closeSession drops what the session stored, even after the command context ended.
func closeSession(s *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		log.Warn().Err(err).Str("session", s.ID).Msg("Error closing session")
	}
}
