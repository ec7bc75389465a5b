package postgres

import (
	"context"
	"fmt"
)

// Migrate creates the pgvector extension, the docqa tables, and the indexes
// needed by the query path. Safe to run repeatedly.
func (b *Backend) Migrate(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dimension)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			embeddings_completed BOOLEAN NOT NULL DEFAULT FALSE,
			embedding_status TEXT NOT NULL DEFAULT 'pending',
			total_chunks INTEGER NOT NULL DEFAULT 0,
			embedding_model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			chunk_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			word_count INTEGER NOT NULL DEFAULT 0,
			filename TEXT NOT NULL DEFAULT '',
			char_length INTEGER NOT NULL DEFAULT 0,
			chunk_method TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimension),

		`CREATE INDEX IF NOT EXISTS idx_document_chunks_document_id
			ON document_chunks (document_id)`,

		`CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding
			ON document_chunks USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range statements {
		if _, err := b.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	b.logger.Info("migrations applied", "dimension", dimension)
	return nil
}
