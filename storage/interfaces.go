package storage

import (
	"context"
	"time"

	"github.com/poiesic/docqa/core"
)

// Document is the stored document record as the vector pipeline sees it.
// Content holds the raw extracted text that chunking consumes; the status
// fields track embedding progress for the API layer.
type Document struct {
	ID                  string
	Filename            string
	Content             string
	EmbeddingsCompleted bool
	EmbeddingStatus     core.EmbeddingStatus
	TotalChunks         int
	EmbeddingModel      string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SearchOptions controls a similarity query.
type SearchOptions struct {
	// Limit is the maximum number of rows returned. Must be positive.
	Limit int

	// MinSimilarity is the inclusive lower bound on cosine similarity.
	MinSimilarity float32

	// DocumentIDs optionally restricts the search to the given documents.
	// Empty means all documents.
	DocumentIDs []string
}

// Repository provides common storage operations shared across repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing document records.
type DocumentRepository interface {
	Repository

	// AddDocument stores a document record.
	// Sets CreatedAt if not already set. Returns ErrDuplicateKey if a
	// document with the same ID already exists.
	AddDocument(ctx context.Context, doc *Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// GetContent returns the raw text content of a document.
	// Returns ErrNotFound if the document doesn't exist and ErrNoContent
	// if the record exists but carries no text.
	GetContent(ctx context.Context, id string) (string, error)

	// SetEmbeddingStatus updates the document-level processing status.
	SetEmbeddingStatus(ctx context.Context, id string, status core.EmbeddingStatus) error

	// MarkEmbeddingsCompleted flags a document as fully embedded, recording
	// the chunk count and the model that produced the vectors.
	MarkEmbeddingsCompleted(ctx context.Context, id string, totalChunks int, model string) error

	// DeleteDocument removes a document and, by cascade, all of its chunks.
	DeleteDocument(ctx context.Context, id string) error
}

// ChunkRepository provides operations for persisted chunks and their vectors.
type ChunkRepository interface {
	Repository

	// UpsertChunks stores chunk+vector pairs atomically as one batch.
	// Safe to call twice with identical chunk IDs: re-upserting replaces
	// rather than duplicates. A vector whose length does not match the
	// repository's configured dimension is rejected with
	// ErrDimensionMismatch and the whole batch is rolled back.
	UpsertChunks(ctx context.Context, batch []core.ChunkWithVector) error

	// SimilaritySearch returns chunks ranked by descending cosine
	// similarity to the query vector, subject to the options. Ties are
	// broken by chunk ID so results are reproducible. A query vector of
	// the wrong dimension is rejected with ErrDimensionMismatch.
	SimilaritySearch(ctx context.Context, vector []float32, opts SearchOptions) ([]core.SearchResult, error)

	// GetChunksByDocument returns a document's chunks ordered by chunk index.
	GetChunksByDocument(ctx context.Context, documentID string) ([]core.ChunkWithVector, error)

	// AllChunks returns every stored chunk. Used by maintenance operations
	// such as reembedding; not intended for the query path.
	AllChunks(ctx context.Context) ([]core.ChunkWithVector, error)

	// DeleteByDocument removes all chunks belonging to a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Dimension returns the configured embedding dimension.
	Dimension() int
}
