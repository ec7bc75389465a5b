package reembed

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/ai/mock"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
	"github.com/poiesic/docqa/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 8

func seedChunks(t *testing.T, chunks storage.ChunkRepository, count int) {
	t.Helper()
	batch := make([]core.ChunkWithVector, count)
	for i := 0; i < count; i++ {
		content := fmt.Sprintf("Stored chunk number %d with some content.", i)
		batch[i] = core.ChunkWithVector{
			Chunk: core.Chunk{
				ID:         core.ChunkIDFor("doc-1", i, content),
				DocumentID: "doc-1",
				Content:    content,
				Index:      i,
			},
			Vector: make([]float32, testDimension), // stale zero vectors
			Model:  "old-model",
		}
	}
	require.NoError(t, chunks.UpsertChunks(context.Background(), batch))
}

func TestReembedderRun(t *testing.T) {
	_, chunks, backend, err := badger.NewMemoryRepositories(testDimension)
	require.NoError(t, err)
	defer backend.Close()

	seedChunks(t, chunks, 7)

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = testDimension

	var out bytes.Buffer
	r, err := NewReembedder(chunks, embedder, "new-model", &Config{
		BatchSize:      3,
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}, &out)
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))

	all, err := chunks.AllChunks(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 7)
	for _, record := range all {
		assert.Equal(t, "new-model", record.Model)
		var magnitude float32
		for _, v := range record.Vector {
			magnitude += v * v
		}
		assert.InDelta(t, 1.0, magnitude, 0.001, "vector not unit length")
	}

	assert.Contains(t, out.String(), "Reembedding complete")
}

func TestReembedderEmptyStore(t *testing.T) {
	_, chunks, backend, err := badger.NewMemoryRepositories(testDimension)
	require.NoError(t, err)
	defer backend.Close()

	var out bytes.Buffer
	r, err := NewReembedder(chunks, mock.NewMockEmbedder(), "new-model", nil, &out)
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "No chunks found")
}

func TestReembedderRetriesTransientFailures(t *testing.T) {
	_, chunks, backend, err := badger.NewMemoryRepositories(testDimension)
	require.NoError(t, err)
	defer backend.Close()

	seedChunks(t, chunks, 2)

	failures := 1
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = testDimension
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) []ai.Result {
		if failures > 0 {
			failures--
			results := make([]ai.Result, len(texts))
			for i := range results {
				results[i] = ai.Result{Err: fmt.Errorf("model unavailable")}
			}
			return results
		}
		results := make([]ai.Result, len(texts))
		for i, text := range texts {
			results[i] = ai.Result{Vector: mock.DeterministicVector(text, testDimension)}
		}
		return results
	}

	r, err := NewReembedder(chunks, embedder, "new-model", &Config{
		BatchSize:      10,
		ReportInterval: 10,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))

	all, err := chunks.AllChunks(context.Background())
	require.NoError(t, err)
	for _, record := range all {
		assert.Equal(t, "new-model", record.Model)
	}
}

func TestNewReembedderValidation(t *testing.T) {
	_, err := NewReembedder(nil, mock.NewMockEmbedder(), "m", nil, nil)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, chunks, backend, err := badger.NewMemoryRepositories(testDimension)
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewReembedder(chunks, nil, "m", nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestChunkIteratorBatches(t *testing.T) {
	_, chunks, backend, err := badger.NewMemoryRepositories(testDimension)
	require.NoError(t, err)
	defer backend.Close()

	seedChunks(t, chunks, 10)

	it := NewChunkIterator(chunks, 4)
	var sizes []int
	err = it.ForEach(context.Background(), func(batch []core.ChunkWithVector) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4, 2}, sizes)
}
