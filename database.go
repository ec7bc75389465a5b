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


package docqa

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/ai/openai"
	"github.com/poiesic/docqa/chunker"
	"github.com/poiesic/docqa/queue"
	"github.com/poiesic/docqa/reembed"
	"github.com/poiesic/docqa/search"
	"github.com/poiesic/docqa/storage"
	"github.com/poiesic/docqa/storage/badger"
	"github.com/poiesic/docqa/storage/postgres"
)

// Database wires a storage backend, an AI provider, and the document
// pipeline together. It is the main entry point for embedding docqa in an
// application.
type Database struct {
	closer   io.Closer
	docs     storage.DocumentRepository
	chunks   storage.ChunkRepository
	provider ai.Provider
	chunker  *chunker.Chunker
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	chunker  *chunker.Chunker
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithProvider replaces the default OpenAI-compatible provider, typically
// with the mock provider in tests.
func WithProvider(provider ai.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithChunker replaces the default chunker.
func WithChunker(ck *chunker.Chunker) DatabaseOption {
	return func(o *databaseOptions) {
		o.chunker = ck
	}
}

// NewDatabase opens an embedded BadgerDB-backed database at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := applyOptions(opts)

	provider, err := resolveProvider(options)
	if err != nil {
		return nil, err
	}

	docs, chunks, backend, err := badger.NewRepositories(filePath, options.aiConfig.Dimension)
	if err != nil {
		provider.Close()
		return nil, err
	}

	return newDatabase(backend, docs, chunks, provider, options), nil
}

// NewMemoryDatabase opens an in-memory database for testing.
func NewMemoryDatabase(opts ...DatabaseOption) (*Database, error) {
	options := applyOptions(opts)

	provider, err := resolveProvider(options)
	if err != nil {
		return nil, err
	}

	docs, chunks, backend, err := badger.NewMemoryRepositories(options.aiConfig.Dimension)
	if err != nil {
		provider.Close()
		return nil, err
	}

	return newDatabase(backend, docs, chunks, provider, options), nil
}

// NewPostgresDatabase connects to PostgreSQL with pgvector and applies
// migrations.
func NewPostgresDatabase(ctx context.Context, connString string, opts ...DatabaseOption) (*Database, error) {
	options := applyOptions(opts)

	provider, err := resolveProvider(options)
	if err != nil {
		return nil, err
	}

	backend, err := postgres.OpenBackend(ctx, connString)
	if err != nil {
		provider.Close()
		return nil, err
	}

	if err := backend.Migrate(ctx, options.aiConfig.Dimension); err != nil {
		backend.Close()
		provider.Close()
		return nil, err
	}

	docs := postgres.NewDocumentRepository(backend)
	chunks := postgres.NewChunkRepository(backend, options.aiConfig.Dimension)

	return newDatabase(backend, docs, chunks, provider, options), nil
}

func applyOptions(opts []DatabaseOption) *databaseOptions {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.chunker == nil {
		options.chunker = chunker.New()
	}
	return options
}

func resolveProvider(options *databaseOptions) (ai.Provider, error) {
	if options.provider != nil {
		return options.provider, nil
	}
	return openai.NewProvider(options.aiConfig)
}

func newDatabase(closer io.Closer, docs storage.DocumentRepository, chunks storage.ChunkRepository, provider ai.Provider, options *databaseOptions) *Database {
	return &Database{
		closer:   closer,
		docs:     docs,
		chunks:   chunks,
		provider: provider,
		chunker:  options.chunker,
		logger:   slog.Default(),
	}
}

// Close closes the AI provider and the storage backend.
func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.chunks.Close(); err != nil {
		db.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := db.docs.Close(); err != nil {
		db.logger.Error("error closing document repository", "err", err)
		return err
	}
	if err := db.closer.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// DocumentRepository returns the document repository.
func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.docs
}

// ChunkRepository returns the chunk repository.
func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.chunks
}

// Provider returns the AI provider.
func (db *Database) Provider() ai.Provider {
	return db.provider
}

// NewQueue creates a background processing queue whose handler runs
// documents through the chunk-embed-persist pipeline. The caller owns the
// queue and must call Start and Stop.
func (db *Database) NewQueue(opts ...queue.Option) (*queue.Queue, error) {
	processor, err := queue.NewDocumentProcessor(db.docs, db.chunks, db.chunker, db.provider, db.logger)
	if err != nil {
		return nil, err
	}
	return queue.New(processor, opts...)
}

// NewSearcher creates a searcher over the stored chunks.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.chunks, db.provider, opts...)
}

// NewReembedder creates a reembedder that reprocesses every stored chunk
// with the provider's current model.
func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(db.chunks, db.provider.Embedder(), db.provider.Model(), config, progress)
}
