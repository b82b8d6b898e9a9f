package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"media-rag/internal/config"
	"media-rag/internal/models"
)

// Document is one embedded chunk of a knowledge base
type Document struct {
	bun.BaseModel `bun:"table:media_chunks,alias:d"`
	ID            int64           `bun:"id,pk,autoincrement"`
	Label         string          `bun:"label,notnull"`
	ChunkID       int             `bun:"chunk_id,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	dsn := cfg.URL
	if !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "sslmode=disable"
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

// InitDB enables pgvector and creates the chunk table
func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	_, err := db.NewCreateIndex().
		Model((*Document)(nil)).
		Index("media_chunks_label_idx").
		Column("label").
		IfNotExists().
		Exec(ctx)
	return err
}

// Store is the knowledge base of one label inside the shared chunk table
type Store struct {
	db    *bun.DB
	label string
}

func NewStore(db *bun.DB, label string) *Store {
	return &Store{db: db, label: label}
}

// StoreChunks replaces the chunks stored under the label
func (s *Store) StoreChunks(ctx context.Context, chunks []models.ChunkEmbedding) error {
	docs := make([]Document, len(chunks))
	for i, ce := range chunks {
		docs[i] = Document{
			Label:     s.label,
			ChunkID:   ce.ChunkID,
			Content:   ce.Content,
			Embedding: pgvector.NewVector(ce.Embedding),
		}
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.deleteQuery(tx).Exec(ctx); err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		log.Debug().Str("label", s.label).Int("chunks", len(docs)).Msg("Storing chunks")
		_, err := tx.NewInsert().Model(&docs).Exec(ctx)
		return err
	})
}

// Retrieve returns the k chunk texts nearest to queryEmbedding
func (s *Store) Retrieve(ctx context.Context, queryEmbedding []float32, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	var docs []Document
	if err := s.searchQuery(&docs, queryEmbedding, k).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", s.label, err)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	return texts, nil
}

func (s *Store) searchQuery(docs *[]Document, queryEmbedding []float32, k int) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(docs).
		Column("id", "label", "chunk_id", "content").
		Where("label = ?", s.label).
		OrderExpr("embedding <-> ?", pgvector.NewVector(queryEmbedding)).
		Limit(k)
}

// DropLabel removes every chunk stored under the label
func (s *Store) DropLabel(ctx context.Context) error {
	if _, err := s.deleteQuery(s.db).Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop %s: %w", s.label, err)
	}
	return nil
}

func (s *Store) deleteQuery(db bun.IDB) *bun.DeleteQuery {
	return db.NewDelete().Model((*Document)(nil)).Where("label = ?", s.label)
}
