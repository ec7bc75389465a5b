package ai

import (
	"context"
	"time"
)

// Result is the outcome of embedding a single text.
// A failed item carries Err and a nil Vector; the two are mutually exclusive.
type Result struct {
	Vector         []float32
	Err            error
	TextLength     int // length of the text actually embedded, after truncation
	ProcessingTime time.Duration
}

// Ok reports whether the embedding succeeded.
func (r Result) Ok() bool {
	return r.Err == nil
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates an embedding for a single passage of document text.
	// The passage prefix convention is applied by the implementation.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for multiple passages, batched and
	// throttled to bound peak resource usage. The returned slice contains
	// one Result per input in the same order; a failure on one item does
	// not abort the rest of the batch.
	EmbedTexts(ctx context.Context, texts []string) []Result

	// EmbedQuery generates an embedding for a search query.
	// Queries are embedded with a different prefix than passages; the two
	// must never be mixed or retrieval quality silently degrades.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Model returns the identifier of the embedding model in use.
	// Stored alongside each embedding so vectors from different models are
	// never silently mixed in one search space.
	Model() string

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
