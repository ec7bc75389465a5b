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


package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/chunker"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// DocumentProcessor runs a document through the chunk-embed-persist
// pipeline. It implements Handler.
type DocumentProcessor struct {
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	chunker   *chunker.Chunker
	provider  ai.Provider
	logger    *slog.Logger
}

var (
	_ Handler        = (*DocumentProcessor)(nil)
	_ FailureHandler = (*DocumentProcessor)(nil)
)

// NewDocumentProcessor creates a DocumentProcessor.
func NewDocumentProcessor(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	ck *chunker.Chunker,
	provider ai.Provider,
	logger *slog.Logger,
) (*DocumentProcessor, error) {
	if documents == nil {
		return nil, fmt.Errorf("document repository required")
	}
	if chunks == nil {
		return nil, fmt.Errorf("chunk repository required")
	}
	if ck == nil {
		ck = chunker.New()
	}
	if provider == nil {
		return nil, ai.ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentProcessor{
		documents: documents,
		chunks:    chunks,
		chunker:   ck,
		provider:  provider,
		logger:    logger.With("processor", "embeddings"),
	}, nil
}

// Process chunks the document's content, embeds each chunk, and persists
// chunk+vector pairs. Document status is updated along the way so the API
// layer can report progress.
func (p *DocumentProcessor) Process(ctx context.Context, task *core.ProcessingTask) error {
	content, err := p.documents.GetContent(ctx, task.DocumentID)
	if err != nil {
		// A missing or empty document cannot be fixed by retrying.
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrNoContent) {
			p.fail(ctx, task.DocumentID)
			return Permanent(err)
		}
		return err
	}

	if err := p.documents.SetEmbeddingStatus(ctx, task.DocumentID, core.EmbeddingProcessing); err != nil {
		return err
	}

	chunks := p.chunker.Chunk(content, task.DocumentID, task.Filename)
	if len(chunks) == 0 {
		p.fail(ctx, task.DocumentID)
		return Permanent(fmt.Errorf("document %s produced no chunks", task.DocumentID))
	}

	p.logger.Info("embedding document",
		"document_id", task.DocumentID,
		"chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	embedder := p.provider.Embedder()
	results := embedder.EmbedTexts(ctx, texts)

	// The embedder contract is one result per input; a mismatch means
	// vectors can no longer be paired with their chunks.
	if len(results) != len(chunks) {
		p.fail(ctx, task.DocumentID)
		return Permanent(fmt.Errorf("embedder returned %d results for %d chunks", len(results), len(chunks)))
	}

	batch := make([]core.ChunkWithVector, 0, len(chunks))
	for i, res := range results {
		if !res.Ok() {
			p.logger.Error("error embedding chunk",
				"document_id", task.DocumentID,
				"chunk_index", chunks[i].Index,
				"err", res.Err)
			// One failed chunk fails the whole document; partial
			// embeddings would corrupt search results.
			if errors.Is(res.Err, ai.ErrEmptyText) {
				p.fail(ctx, task.DocumentID)
				return Permanent(res.Err)
			}
			return res.Err
		}
		batch = append(batch, core.ChunkWithVector{
			Chunk:  chunks[i],
			Vector: res.Vector,
			Model:  p.provider.Model(),
		})
	}

	if err := p.chunks.UpsertChunks(ctx, batch); err != nil {
		if errors.Is(err, storage.ErrDimensionMismatch) {
			p.fail(ctx, task.DocumentID)
			return Permanent(err)
		}
		return err
	}

	if err := p.documents.MarkEmbeddingsCompleted(ctx, task.DocumentID, len(batch), p.provider.Model()); err != nil {
		return err
	}

	p.logger.Info("document embedded",
		"document_id", task.DocumentID,
		"chunks", len(batch),
		"model", p.provider.Model())
	return nil
}

// OnFailure records the failed status on the document once the task is
// terminally failed, including transient errors that exhausted their
// retries.
func (p *DocumentProcessor) OnFailure(ctx context.Context, task *core.ProcessingTask, err error) {
	p.fail(ctx, task.DocumentID)
}

// fail records the failed status on the document; errors here are logged
// and dropped because the task error is the one that matters.
func (p *DocumentProcessor) fail(ctx context.Context, documentID string) {
	if err := p.documents.SetEmbeddingStatus(ctx, documentID, core.EmbeddingFailed); err != nil {
		p.logger.Error("error recording failed status", "document_id", documentID, "err", err)
	}
}
