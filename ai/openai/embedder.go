package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/docqa/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
//
// The underlying client is initialized lazily on first use so that a service
// that comes up after this process still works; a failed initialization is
// reported to the caller and retried on the next call rather than poisoning
// the embedder permanently.
type Embedder struct {
	config *ai.Config
	logger *slog.Logger

	mu     sync.Mutex
	client embeddings.Embedder // nil until first successful init
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Embedder{
		config: config,
		logger: slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// init returns the underlying client, creating it on first use.
func (e *Embedder) init() (embeddings.Embedder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return e.client, nil
	}

	start := time.Now()
	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication.
	client, err := openai.New(
		openai.WithBaseURL(e.config.EmbeddingHost),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(e.config.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrModelUnavailable, err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrModelUnavailable, err)
	}

	e.logger.Info("embedding client initialized",
		"model", e.config.EmbeddingModel, "elapsed", time.Since(start))
	e.client = embedder
	return embedder, nil
}

// prepare strips and truncates text, returning the text ready for embedding.
func (e *Embedder) prepare(text string) (string, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return "", ai.ErrEmptyText
	}
	if len(cleaned) > e.config.MaxTextLength {
		e.logger.Warn("text truncated before embedding",
			"limit", e.config.MaxTextLength, "length", len(cleaned))
		cleaned = cleaned[:e.config.MaxTextLength]
	}
	return cleaned, nil
}

// embed runs a single prefixed text through the model and normalizes the result.
func (e *Embedder) embed(ctx context.Context, prefix, text string) ([]float32, error) {
	cleaned, err := e.prepare(text)
	if err != nil {
		return nil, err
	}

	client, err := e.init()
	if err != nil {
		return nil, err
	}

	vectors, err := client.EmbedDocuments(ctx, []string{prefix + cleaned})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrModelUnavailable, err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: empty response", ai.ErrModelUnavailable)
	}

	return normalize(vectors[0]), nil
}

// EmbedText generates an embedding for a document passage.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating passage embedding", "length", len(text))
	return e.embed(ctx, ai.PassagePrefix, text)
}

// EmbedQuery generates an embedding for a search query.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	e.logger.Debug("generating query embedding", "length", len(query))
	return e.embed(ctx, ai.QueryPrefix, query)
}

// EmbedTexts generates embeddings for multiple passages.
//
// Items are processed sequentially with a small delay between items and a
// larger delay between batches. The throttle is deliberate: it caps peak
// memory and CPU on resource-constrained hosts. Results preserve input
// order and individual failures do not abort the batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) []ai.Result {
	if len(texts) == 0 {
		return nil
	}

	batchSize := e.config.BatchSize
	totalBatches := (len(texts) + batchSize - 1) / batchSize
	e.logger.Debug("batch embedding started", "texts", len(texts), "batches", totalBatches)

	results := make([]ai.Result, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			// Mark the remaining items as cancelled instead of dropping them.
			for j := i; j < len(texts); j++ {
				results[j] = ai.Result{Err: err, TextLength: len(texts[j])}
			}
			return results
		}

		start := time.Now()
		vector, err := e.embed(ctx, ai.PassagePrefix, text)
		results[i] = ai.Result{
			Vector:         vector,
			Err:            err,
			TextLength:     len(text),
			ProcessingTime: time.Since(start),
		}
		if err != nil {
			e.logger.Error("batch item failed", "index", i, "err", err)
		}

		if i == len(texts)-1 {
			break
		}
		if (i+1)%batchSize == 0 {
			sleep(ctx, e.config.BatchDelay)
		} else {
			sleep(ctx, e.config.ItemDelay)
		}
	}

	succeeded := 0
	for _, r := range results {
		if r.Ok() {
			succeeded++
		}
	}
	e.logger.Debug("batch embedding finished", "succeeded", succeeded, "total", len(texts))
	return results
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
