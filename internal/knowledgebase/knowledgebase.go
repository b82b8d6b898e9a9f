package knowledgebase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/uptrace/bun"

	"media-rag/internal/chromemdb"
	"media-rag/internal/db"
	"media-rag/internal/embedding"
	"media-rag/internal/models"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// KnowledgeBase retrieves the texts most similar to a query embedding.
type KnowledgeBase interface {
	Retrieve(ctx context.Context, queryEmbedding []float32, k int) ([]string, error)
}

var (
	_ KnowledgeBase = (*chromemdb.VectorDBManager)(nil)
	_ KnowledgeBase = (*db.Store)(nil)
)

// Builder turns the chunks of one source into a knowledge base.
type Builder struct {
	Embedder embeddings.Embedder
	Backend  string
	DB       *bun.DB
	// SnapshotDir and EncryptionKey locate exported in-memory collections.
	SnapshotDir   string
	EncryptionKey string
}

// Build embeds every chunk and indexes it under label. An empty chunk
// sequence yields no knowledge base and no error.
func (b *Builder) Build(ctx context.Context, label string, chunks []models.Chunk) (KnowledgeBase, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	embedded, err := embedding.GenerateEmbedding(ctx, b.Embedder, label, chunks)
	if err != nil {
		return nil, err
	}

	log.Info().Str("label", label).Int("chunks", len(embedded)).Str("backend", b.backend()).Msg("Building knowledge base")

	switch b.backend() {
	case BackendPostgres:
		if b.DB == nil {
			return nil, fmt.Errorf("postgres backend requires a database")
		}
		store := db.NewStore(b.DB, label)
		if err := store.StoreChunks(ctx, embedded); err != nil {
			return nil, fmt.Errorf("failed to store chunks of %s: %w", label, err)
		}
		return store, nil
	case BackendMemory:
		manager, err := chromemdb.NewVectorDBManager(b.SnapshotDir, label, true, b.EncryptionKey)
		if err != nil {
			return nil, err
		}
		if _, err := manager.GetOrCreateCollection(); err != nil {
			return nil, err
		}
		if err := manager.CreateDocs(ctx, embedded); err != nil {
			return nil, err
		}
		return manager, nil
	default:
		return nil, fmt.Errorf("unknown knowledge base backend %q", b.Backend)
	}
}

func (b *Builder) backend() string {
	if b.Backend == "" {
		return BackendMemory
	}
	return b.Backend
}

// Open returns the knowledge base saved earlier under label: the snapshot
// file for the memory backend, the stored rows for postgres.
func (b *Builder) Open(ctx context.Context, label string) (KnowledgeBase, error) {
	switch b.backend() {
	case BackendPostgres:
		if b.DB == nil {
			return nil, fmt.Errorf("postgres backend requires a database")
		}
		return db.NewStore(b.DB, label), nil
	case BackendMemory:
		return Load(ctx, b.SnapshotDir, label, b.EncryptionKey)
	default:
		return nil, fmt.Errorf("unknown knowledge base backend %q", b.Backend)
	}
}

// Save exports an in-memory knowledge base to the snapshot directory.
func Save(ctx context.Context, kb KnowledgeBase) error {
	manager, ok := kb.(*chromemdb.VectorDBManager)
	if !ok {
		return fmt.Errorf("knowledge base %T cannot be exported", kb)
	}
	return manager.Export(ctx)
}

// Load imports the knowledge base exported for label from dir.
func Load(ctx context.Context, dir, label, encryptionKey string) (KnowledgeBase, error) {
	manager, err := chromemdb.NewVectorDBManager(dir, label, true, encryptionKey)
	if err != nil {
		return nil, err
	}
	if err := manager.Import(ctx); err != nil {
		return nil, err
	}
	return manager, nil
}
