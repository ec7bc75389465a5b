package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests run only when DOCQA_TEST_DATABASE_URL points at a
// PostgreSQL instance with the pgvector extension available.
func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	connString := os.Getenv("DOCQA_TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("DOCQA_TEST_DATABASE_URL not set")
	}

	backend, err := OpenBackend(context.Background(), connString)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	require.NoError(t, backend.Migrate(context.Background(), 4))

	// Start from a clean slate
	_, err = backend.pool.Exec(context.Background(), `DELETE FROM documents`)
	require.NoError(t, err)

	return backend
}

func TestPostgresRoundTrip(t *testing.T) {
	backend := openTestBackend(t)
	ctx := context.Background()

	docs := NewDocumentRepository(backend)
	chunks := NewChunkRepository(backend, 4)

	doc := &storage.Document{ID: "doc-1", Filename: "a.txt", Content: "text"}
	require.NoError(t, docs.AddDocument(ctx, doc))

	err := docs.AddDocument(ctx, &storage.Document{ID: "doc-1", Filename: "b.txt"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	batch := []core.ChunkWithVector{
		{
			Chunk: core.Chunk{
				ID:         core.ChunkIDFor("doc-1", 0, "First chunk."),
				DocumentID: "doc-1",
				Content:    "First chunk.",
				Index:      0,
			},
			Vector: []float32{1, 0, 0, 0},
			Model:  "mock-embedder",
		},
		{
			Chunk: core.Chunk{
				ID:         core.ChunkIDFor("doc-1", 1, "Second chunk."),
				DocumentID: "doc-1",
				Content:    "Second chunk.",
				Index:      1,
			},
			Vector: []float32{0, 1, 0, 0},
			Model:  "mock-embedder",
		},
	}
	require.NoError(t, chunks.UpsertChunks(ctx, batch))
	require.NoError(t, chunks.UpsertChunks(ctx, batch)) // idempotent

	got, err := chunks.GetChunksByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	results, err := chunks.SimilaritySearch(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{
		Limit:         10,
		MinSimilarity: 0.3,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "First chunk.", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 0.001)

	require.NoError(t, docs.DeleteDocument(ctx, "doc-1"))
	got, err = chunks.GetChunksByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostgresDimensionChecks(t *testing.T) {
	backend := openTestBackend(t)
	ctx := context.Background()

	chunks := NewChunkRepository(backend, 4)

	_, err := chunks.SimilaritySearch(ctx, []float32{1, 0}, storage.SearchOptions{Limit: 10})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	err = chunks.UpsertChunks(ctx, []core.ChunkWithVector{{
		Chunk:  core.Chunk{ID: "x", DocumentID: "doc-1", Content: "c"},
		Vector: []float32{1, 0},
	}})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}
