package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"media-rag/internal/knowledgebase"
	"media-rag/internal/models"
	"media-rag/internal/parser"
	"media-rag/internal/rag"
)

type textSource struct {
	kind models.MediaKind
	name string
	text string
	err  error
}

func (s *textSource) Kind() models.MediaKind { return s.kind }
func (s *textSource) Label() string          { return s.kind.Label(s.name) }
func (s *textSource) Extract(context.Context, *parser.Env) (string, error) {
	return s.text, s.err
}

type mockEmbedder struct{}

func (mockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (mockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

type mockLLM struct {
	mu     sync.Mutex
	answer string
	err    error
}

func (m *mockLLM) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.answer}}}, nil
}

func (m *mockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func newPipeline(llm llms.Model) *Pipeline {
	splitter, _ := parser.NewSplitter(40, 8)
	return &Pipeline{
		Env:      &parser.Env{},
		Splitter: splitter,
		Builder:  &knowledgebase.Builder{Embedder: mockEmbedder{}},
		RAG:      rag.NewRAG(mockEmbedder{}, llm, nil),
	}
}

func TestIngest_ReportsEverySource(t *testing.T) {
	s := New("s1", newPipeline(&mockLLM{answer: "ok"}))

	report := s.Ingest(context.Background(), []parser.Source{
		&textSource{kind: models.KindPDF, name: "a.pdf", text: "This is a sample PDF for testing."},
		&textSource{kind: models.KindPDF, name: "scan.pdf", text: ""},
		&textSource{kind: models.KindWeb, name: "https://bad.example", err: errors.New("no such host")},
		&textSource{kind: models.KindAudio, name: "talk.mp3", text: "hello from the talk\nsecond line of the talk"},
	})

	assert.Equal(t, []string{"PDF: a.pdf", "Audio: talk.mp3"}, report.Added)
	assert.Equal(t, []string{"PDF: scan.pdf"}, report.Empty)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "web url: https://bad.example", report.Failed[0].Label)
	assert.Contains(t, report.Failed[0].Err, "no such host")

	assert.Equal(t, []string{"PDF: a.pdf", "Audio: talk.mp3"}, s.Labels())
	_, ok := s.KnowledgeBase("PDF: scan.pdf")
	assert.False(t, ok, "empty sources are not selectable")
}

func TestAsk_KeepsHistory(t *testing.T) {
	llm := &mockLLM{answer: "It is a test file."}
	s := New("s1", newPipeline(llm))
	s.Ingest(context.Background(), []parser.Source{
		&textSource{kind: models.KindPDF, name: "a.pdf", text: "This is a sample PDF for testing."},
	})

	history, err := s.Ask(context.Background(), "PDF: a.pdf", "What is this?")
	require.NoError(t, err)
	assert.Equal(t, models.History{
		models.UserMessage("What is this?"),
		models.AssistantMessage("It is a test file."),
	}, history)

	llm.err = errors.New("service unavailable")
	history, err = s.Ask(context.Background(), "PDF: a.pdf", "And now?")
	require.ErrorIs(t, err, rag.ErrAnswer)
	assert.Len(t, history, 3)
	assert.Equal(t, models.UserMessage("And now?"), history[2])
	assert.Equal(t, history, s.History())
}

func TestAsk_UnknownSource(t *testing.T) {
	s := New("s1", newPipeline(&mockLLM{}))
	history, err := s.Ask(context.Background(), "PDF: missing.pdf", "q")
	assert.ErrorIs(t, err, ErrUnknownSource)
	assert.Empty(t, history)
}

func TestStore_SessionsAreIndependent(t *testing.T) {
	store := NewStore(newPipeline(&mockLLM{answer: "a"}))

	first, err := store.Create()
	require.NoError(t, err)
	second, err := store.Create()
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	first.Ingest(context.Background(), []parser.Source{
		&textSource{kind: models.KindWeb, name: "https://example.com", text: "Sample Text"},
	})
	assert.Len(t, first.Labels(), 1)
	assert.Empty(t, second.Labels())

	got, err := store.Get(first.ID)
	require.NoError(t, err)
	assert.Same(t, first, got)

	_, err = store.Get("nope")
	assert.ErrorIs(t, err, ErrSessionMissing)
}

// storedKB stands in for a knowledge base kept in a shared database.
type storedKB struct {
	dropped int
	err     error
}

func (k *storedKB) Retrieve(context.Context, []float32, int) ([]string, error) { return nil, nil }

func (k *storedKB) DropLabel(context.Context) error {
	k.dropped++
	return k.err
}

func TestClose_DropsBuiltKnowledgeBases(t *testing.T) {
	s := New("s1", newPipeline(&mockLLM{}))
	built := &storedKB{}
	loaded := &storedKB{}
	s.add("s1/PDF: a.pdf", built, true)
	s.AddKnowledgeBase("PDF: saved.pdf", loaded)

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, built.dropped)
	assert.Zero(t, loaded.dropped, "knowledge bases added from outside stay stored")
	assert.Empty(t, s.Labels())
}

func TestStore_Close(t *testing.T) {
	store := NewStore(newPipeline(&mockLLM{}))
	s, err := store.Create()
	require.NoError(t, err)
	kb := &storedKB{err: errors.New("connection refused")}
	s.add("PDF: a.pdf", kb, true)

	err = store.Close(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 1, kb.dropped)

	_, err = store.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionMissing)
}
