// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// ChunkRepository implements storage.ChunkRepository for PostgreSQL with
// the pgvector extension.
type ChunkRepository struct {
	backend   *Backend
	dimension int
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository with a fixed embedding
// dimension. All stored vectors must match it.
func NewChunkRepository(backend *Backend, dimension int) *ChunkRepository {
	return &ChunkRepository{
		backend:   backend,
		dimension: dimension,
	}
}

// Close is a no-op; the backend owns the connection pool.
func (r *ChunkRepository) Close() error {
	return nil
}

// Dimension returns the configured embedding dimension.
func (r *ChunkRepository) Dimension() int {
	return r.dimension
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertChunks stores chunk+vector pairs atomically as one batch. The whole
// batch runs inside a transaction, so a failed insert rolls back everything.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, batch []core.ChunkWithVector) error {
	for i := range batch {
		if len(batch[i].Vector) != r.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, want %d",
				storage.ErrDimensionMismatch, batch[i].Chunk.ID, len(batch[i].Vector), r.dimension)
		}
	}

	return r.backend.WithTransaction(ctx, func(ctx context.Context) error {
		for i := range batch {
			record := &batch[i]
			_, err := r.backend.db(ctx).Exec(ctx, `
				INSERT INTO document_chunks
					(chunk_id, document_id, content, chunk_index, word_count,
					 filename, char_length, chunk_method, embedding, model, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (chunk_id) DO UPDATE SET
					content = EXCLUDED.content,
					word_count = EXCLUDED.word_count,
					embedding = EXCLUDED.embedding,
					model = EXCLUDED.model`,
				string(record.Chunk.ID), record.Chunk.DocumentID, record.Chunk.Content,
				record.Chunk.Index, record.Chunk.WordCount,
				record.Chunk.Metadata.Filename, record.Chunk.Metadata.CharLength,
				record.Chunk.Metadata.ChunkMethod,
				pgvector.NewVector(record.Vector), record.Model,
				record.Chunk.Metadata.CreatedAt)
			if err != nil {
				return fmt.Errorf("upsert chunk %s: %w", record.Chunk.ID, err)
			}
		}
		return nil
	})
}

// SimilaritySearch ranks chunks by cosine similarity using the pgvector
// cosine distance operator. Similarity is 1 - distance.
func (r *ChunkRepository) SimilaritySearch(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]core.SearchResult, error) {
	if len(vector) != r.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d",
			storage.ErrDimensionMismatch, len(vector), r.dimension)
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	query := `
		SELECT chunk_id, document_id, content, chunk_index,
		       filename, char_length, chunk_method, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE 1 - (embedding <=> $1) >= $2`
	args := []any{pgvector.NewVector(vector), opts.MinSimilarity}

	if len(opts.DocumentIDs) > 0 {
		query += ` AND document_id = ANY($3)`
		args = append(args, opts.DocumentIDs)
	}

	query += fmt.Sprintf(` ORDER BY embedding <=> $1, chunk_id LIMIT %d`, opts.Limit)

	rows, err := r.backend.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []core.SearchResult
	for rows.Next() {
		var (
			res     core.SearchResult
			chunkID string
		)
		if err := rows.Scan(&chunkID, &res.DocumentID, &res.Content,
			&res.ChunkIndex, &res.Metadata.Filename, &res.Metadata.CharLength,
			&res.Metadata.ChunkMethod, &res.Metadata.CreatedAt,
			&res.Similarity); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		res.ChunkID = core.ChunkID(chunkID)
		res.DocumentName = res.Metadata.Filename
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

// GetChunksByDocument returns a document's chunks ordered by chunk index.
func (r *ChunkRepository) GetChunksByDocument(ctx context.Context, documentID string) ([]core.ChunkWithVector, error) {
	return r.queryChunks(ctx, `
		SELECT chunk_id, document_id, content, chunk_index, word_count,
		       filename, char_length, chunk_method, created_at, embedding, model
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index`, documentID)
}

// AllChunks returns every stored chunk ordered by document then index.
func (r *ChunkRepository) AllChunks(ctx context.Context) ([]core.ChunkWithVector, error) {
	return r.queryChunks(ctx, `
		SELECT chunk_id, document_id, content, chunk_index, word_count,
		       filename, char_length, chunk_method, created_at, embedding, model
		FROM document_chunks
		ORDER BY document_id, chunk_index`)
}

// DeleteByDocument removes all chunks belonging to a document.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.backend.db(ctx).Exec(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (r *ChunkRepository) queryChunks(ctx context.Context, query string, args ...any) ([]core.ChunkWithVector, error) {
	rows, err := r.backend.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	defer rows.Close()

	var records []core.ChunkWithVector
	for rows.Next() {
		var (
			record    core.ChunkWithVector
			chunkID   string
			embedding pgvector.Vector
		)
		if err := rows.Scan(&chunkID, &record.Chunk.DocumentID, &record.Chunk.Content,
			&record.Chunk.Index, &record.Chunk.WordCount,
			&record.Chunk.Metadata.Filename, &record.Chunk.Metadata.CharLength,
			&record.Chunk.Metadata.ChunkMethod, &record.Chunk.Metadata.CreatedAt,
			&embedding, &record.Model); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		record.Chunk.ID = core.ChunkID(chunkID)
		record.Vector = embedding.Slice()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}
	return records, nil
}
