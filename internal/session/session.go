package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"media-rag/internal/helper"
	"media-rag/internal/knowledgebase"
	"media-rag/internal/models"
	"media-rag/internal/parser"
	"media-rag/internal/rag"
)

var (
	ErrUnknownSource  = errors.New("unknown source")
	ErrSessionMissing = errors.New("session not found")
)

// Pipeline turns a source into a knowledge base: extract, chunk, embed, index.
type Pipeline struct {
	Env      *parser.Env
	Splitter *parser.Splitter
	Builder  *knowledgebase.Builder
	RAG      *rag.RAG
}

// Process runs one source through the pipeline under label. A source without
// text yields a nil knowledge base.
func (p *Pipeline) Process(ctx context.Context, label string, src parser.Source) (knowledgebase.KnowledgeBase, error) {
	text, err := src.Extract(ctx, p.Env)
	if err != nil {
		return nil, err
	}
	chunks := p.splitter().Split(text)
	log.Info().Str("source", src.Label()).Int("chunks", len(chunks)).Msg("Extracted source")
	return p.Builder.Build(ctx, label, chunks)
}

func (p *Pipeline) splitter() *parser.Splitter {
	if p.Splitter == nil {
		return parser.DefaultSplitter()
	}
	return p.Splitter
}

// SourceError names a source whose ingestion failed.
type SourceError struct {
	Label string `json:"label"`
	Err   string `json:"error"`
}

// IngestReport tells which sources became selectable and which did not.
type IngestReport struct {
	Added  []string      `json:"added"`
	Empty  []string      `json:"empty"`
	Failed []SourceError `json:"failed"`
}

// Session holds the knowledge bases and chat transcript of one user.
type Session struct {
	ID string

	pipeline *Pipeline
	askMu    sync.Mutex // one question at a time per transcript
	mu       sync.Mutex
	history  models.History
	labels   []string
	bases    map[string]knowledgebase.KnowledgeBase
	owned    map[string]bool // built by Ingest, released by Close
}

// labelDropper is a knowledge base whose rows outlive the process.
type labelDropper interface {
	DropLabel(ctx context.Context) error
}

func New(id string, pipeline *Pipeline) *Session {
	return &Session{
		ID:       id,
		pipeline: pipeline,
		bases:    make(map[string]knowledgebase.KnowledgeBase),
		owned:    make(map[string]bool),
	}
}

// Ingest processes every source independently. A failing or empty source does
// not stop the others and is listed in the report.
func (s *Session) Ingest(ctx context.Context, sources []parser.Source) IngestReport {
	var report IngestReport
	for _, src := range sources {
		label := src.Label()
		kb, err := s.pipeline.Process(ctx, s.storageLabel(label), src)
		switch {
		case err != nil:
			log.Error().Err(err).Str("source", label).Msg("Error processing source")
			report.Failed = append(report.Failed, SourceError{Label: label, Err: err.Error()})
		case kb == nil:
			log.Warn().Str("source", label).Msg("Source has no text")
			report.Empty = append(report.Empty, label)
		default:
			s.add(label, kb, true)
			report.Added = append(report.Added, label)
		}
	}
	return report
}

// storageLabel keys shared backends by session so sessions stay independent.
func (s *Session) storageLabel(label string) string {
	if s.pipeline.Builder != nil && s.pipeline.Builder.Backend == knowledgebase.BackendPostgres {
		return s.ID + "/" + label
	}
	return label
}

func (s *Session) add(label string, kb knowledgebase.KnowledgeBase, owned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bases[label]; !ok {
		s.labels = append(s.labels, label)
	}
	s.bases[label] = kb
	s.owned[label] = owned
}

// AddKnowledgeBase makes a prebuilt knowledge base selectable under label.
// Close leaves it in place.
func (s *Session) AddKnowledgeBase(label string, kb knowledgebase.KnowledgeBase) {
	if kb != nil {
		s.add(label, kb, false)
	}
}

// Close drops the stored chunks of the knowledge bases this session built
// and forgets every source.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, label := range s.labels {
		dropper, ok := s.bases[label].(labelDropper)
		if !ok || !s.owned[label] {
			continue
		}
		if err := dropper.DropLabel(ctx); err != nil {
			log.Warn().Err(err).Str("session", s.ID).Str("source", label).Msg("Error dropping knowledge base")
			errs = append(errs, err)
		}
	}
	s.labels = nil
	s.bases = make(map[string]knowledgebase.KnowledgeBase)
	s.owned = make(map[string]bool)
	return errors.Join(errs...)
}

// Labels lists the selectable sources in ingestion order.
func (s *Session) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.labels...)
}

func (s *Session) KnowledgeBase(label string) (knowledgebase.KnowledgeBase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kb, ok := s.bases[label]
	return kb, ok
}

func (s *Session) History() models.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// Ask answers query from the knowledge base of label and returns the updated
// transcript. On failure the transcript keeps the question only.
func (s *Session) Ask(ctx context.Context, label, query string) (models.History, error) {
	kb, ok := s.KnowledgeBase(label)
	if !ok {
		return s.History(), fmt.Errorf("%w: %q", ErrUnknownSource, label)
	}

	s.askMu.Lock()
	defer s.askMu.Unlock()

	next, err := s.pipeline.RAG.Ask(ctx, s.History(), query, kb)

	s.mu.Lock()
	s.history = next
	s.mu.Unlock()
	return next, err
}

// Store keeps the sessions of concurrent users apart.
type Store struct {
	pipeline *Pipeline
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(pipeline *Pipeline) *Store {
	return &Store{pipeline: pipeline, sessions: make(map[string]*Session)}
}

func (st *Store) Create() (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	s := New(id, st.pipeline)

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	return s, nil
}

// Close closes every session and empties the store.
func (st *Store) Close(ctx context.Context) error {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionMissing, id)
	}
	return s, nil
}
