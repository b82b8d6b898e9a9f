package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"media-rag/internal/helper"
	"media-rag/internal/models"
)

// VectorDBManager encapsulates the chromem-go database operations for one collection
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	dbPath         string
	compress       bool
	encryptionKey  string
	filePath       string
}

const (
	compress = false
)

// NewVectorDBManager initializes a new vector database manager.
// dbPath holds the persistent database, and the snapshot files of in-memory ones.
func NewVectorDBManager(dbPath, collectionName string, inMemory bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:             db,
		collectionName: collectionName,
		dbPath:         dbPath,
		compress:       compress,
		encryptionKey:  encryptionKey,
		filePath:       SnapshotPath(dbPath, collectionName),
	}, nil
}

// SnapshotPath is where the collection of a knowledge base is exported to.
func SnapshotPath(dir, collectionName string) string {
	return filepath.Join(dir, helper.FileSafeName(collectionName)+".chromem")
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection() (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// CreateDocs adds the embedded chunks of a source to the collection
func (m *VectorDBManager) CreateDocs(ctx context.Context, chunks []models.ChunkEmbedding) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(chunk.ChunkID),
			Content:   chunk.Content,
			Metadata:  CreateMetadata(chunk),
			Embedding: chunk.Embedding,
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// CreateMetadata records where a chunk came from
func CreateMetadata(chunk models.ChunkEmbedding) map[string]string {
	return map[string]string{
		"source":   chunk.Source,
		"chunk_id": strconv.Itoa(chunk.ChunkID),
	}
}

// SearchWithQueryOptions performs a similarity search
func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	if m.collection == nil {
		return nil, fmt.Errorf("collection is required")
	}
	// exit if query or embedding is not provided
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}

	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

// Retrieve returns the texts of the k chunks most similar to queryEmbedding,
// most similar first. k is clamped to the number of stored chunks.
func (m *VectorDBManager) Retrieve(ctx context.Context, queryEmbedding []float32, k int) ([]string, error) {
	n := min(k, m.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := m.SearchWithQueryOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       n,
	})
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	return texts, nil
}

func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	if m.collection == nil {
		return nil
	}
	if err := m.db.DeleteCollection(m.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection = nil
	return nil
}

// export to file
func (m *VectorDBManager) Export(ctx context.Context) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if m.dbPath == "" {
		return fmt.Errorf("db path is required")
	}
	if err := helper.CreateFolder(m.dbPath); err != nil {
		return err
	}

	log.Debug().
		Str("collection", m.collection.Name).
		Str("file", m.filePath).
		Bool("encrypted", m.encryptionKey != "").
		Msg("Exporting collection")

	if err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// import from file
func (m *VectorDBManager) Import(ctx context.Context) error {
	log.Debug().Str("collection", m.collectionName).Str("file", m.filePath).Msg("Importing collection")

	if err := m.db.ImportFromFile(m.filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	c := m.db.GetCollection(m.collectionName, nil)
	if c == nil {
		return fmt.Errorf("collection %q not found in %s", m.collectionName, m.filePath)
	}
	m.collection = c
	return nil
}
