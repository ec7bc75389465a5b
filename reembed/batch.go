package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// BatchProcessor handles embedding generation for batches of chunks.
type BatchProcessor struct {
	repo           storage.ChunkRepository
	embedder       ai.Embedder
	model          string
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// model: identifier recorded on each re-embedded chunk
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.ChunkRepository, embedder ai.Embedder, model string, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		model:          model,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process re-embeds a batch of chunks and upserts them. Vectors are
// normalized after embedding so cosine similarity stays a dot product.
func (bp *BatchProcessor) Process(ctx context.Context, records []core.ChunkWithVector) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i := range records {
		texts[i] = records[i].Chunk.Content
	}

	// Generate embeddings with retry. A single failed item fails the
	// batch so a retry re-embeds it as a unit.
	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		results := bp.embedder.EmbedTexts(ctx, texts)
		vectors = make([][]float32, len(results))
		for i, res := range results {
			if !res.Ok() {
				return fmt.Errorf("embedding item %d: %w", i, res.Err)
			}
			vectors[i] = res.Vector
		}
		return nil
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(vectors) != len(records) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(records), len(vectors))
	}

	for i := range records {
		records[i].Vector = NormalizeVector(vectors[i])
		records[i].Model = bp.model
	}

	if err := bp.repo.UpsertChunks(ctx, records); err != nil {
		return fmt.Errorf("failed to update chunks: %w", err)
	}

	return nil
}
