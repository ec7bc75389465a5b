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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// DocumentRepository implements storage.DocumentRepository for PostgreSQL.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close is a no-op; the backend owns the connection pool.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocument stores a document record.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *storage.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.UpdatedAt = doc.CreatedAt
	if doc.EmbeddingStatus == "" {
		doc.EmbeddingStatus = core.EmbeddingPending
	}

	_, err := r.backend.db(ctx).Exec(ctx, `
		INSERT INTO documents
			(id, filename, content, embeddings_completed, embedding_status,
			 total_chunks, embedding_model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.Filename, doc.Content, doc.EmbeddingsCompleted,
		string(doc.EmbeddingStatus), doc.TotalChunks, doc.EmbeddingModel,
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*storage.Document, error) {
	var (
		doc    storage.Document
		status string
	)
	err := r.backend.db(ctx).QueryRow(ctx, `
		SELECT id, filename, content, embeddings_completed, embedding_status,
		       total_chunks, embedding_model, created_at, updated_at
		FROM documents WHERE id = $1`, id).Scan(
		&doc.ID, &doc.Filename, &doc.Content, &doc.EmbeddingsCompleted,
		&status, &doc.TotalChunks, &doc.EmbeddingModel,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	doc.EmbeddingStatus = core.EmbeddingStatus(status)
	return &doc, nil
}

// GetContent returns the raw text content of a document.
func (r *DocumentRepository) GetContent(ctx context.Context, id string) (string, error) {
	var content string
	err := r.backend.db(ctx).QueryRow(ctx,
		`SELECT content FROM documents WHERE id = $1`, id).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("select content: %w", err)
	}
	if content == "" {
		return "", storage.ErrNoContent
	}
	return content, nil
}

// SetEmbeddingStatus updates the document-level processing status.
func (r *DocumentRepository) SetEmbeddingStatus(ctx context.Context, id string, status core.EmbeddingStatus) error {
	tag, err := r.backend.db(ctx).Exec(ctx, `
		UPDATE documents
		SET embedding_status = $2, updated_at = now()
		WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkEmbeddingsCompleted flags a document as fully embedded.
func (r *DocumentRepository) MarkEmbeddingsCompleted(ctx context.Context, id string, totalChunks int, model string) error {
	tag, err := r.backend.db(ctx).Exec(ctx, `
		UPDATE documents
		SET embeddings_completed = TRUE,
		    embedding_status = $2,
		    total_chunks = $3,
		    embedding_model = $4,
		    updated_at = now()
		WHERE id = $1`,
		id, string(core.EmbeddingCompleted), totalChunks, model)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document; chunks cascade via the foreign key.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id string) error {
	tag, err := r.backend.db(ctx).Exec(ctx,
		`DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
