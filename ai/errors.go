package ai

import "errors"

var (
	// ErrEmptyText is returned when text to embed is empty after stripping.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrModelUnavailable is returned when the embedding model cannot be
	// initialized or reached. Initialization is retried on the next call.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
