package search

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/poiesic/docqa/ai/mock"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
	"github.com/poiesic/docqa/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 4

// vectorFor builds a unit vector whose cosine similarity to [1,0,0,0]
// equals sim.
func vectorFor(sim float32) []float32 {
	ortho := float32(math.Sqrt(float64(1 - sim*sim)))
	return []float32{sim, ortho, 0, 0}
}

var queryVector = []float32{1, 0, 0, 0}

// newTestSearcher wires a searcher over in-memory storage with an embedder
// that answers every query with queryVector.
func newTestSearcher(t *testing.T) (*Searcher, storage.ChunkRepository) {
	t.Helper()
	_, chunks, backend, err := badger.NewMemoryRepositories(testDimension)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = testDimension
	embedder.EmbedQueryFunc = func(ctx context.Context, query string) ([]float32, error) {
		return queryVector, nil
	}

	searcher, err := NewSearcher(chunks, mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)
	return searcher, chunks
}

func storeChunk(t *testing.T, chunks storage.ChunkRepository, docID string, index int, content string, sim float32) {
	t.Helper()
	err := chunks.UpsertChunks(context.Background(), []core.ChunkWithVector{{
		Chunk: core.Chunk{
			ID:         core.ChunkIDFor(docID, index, content),
			DocumentID: docID,
			Content:    content,
			Index:      index,
			Metadata:   core.ChunkMetadata{Filename: docID + ".txt"},
		},
		Vector: vectorFor(sim),
		Model:  "mock-embedder",
	}})
	require.NoError(t, err)
}

func TestNewSearcherValidation(t *testing.T) {
	_, err := NewSearcher(nil, mock.NewMockProvider())
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, chunks, backend, err := badger.NewMemoryRepositories(testDimension)
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewSearcher(chunks, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestSearchByVectorRanking(t *testing.T) {
	searcher, chunks := newTestSearcher(t)
	ctx := context.Background()

	storeChunk(t, chunks, "doc-1", 0, "Weakly related text.", 0.4)
	storeChunk(t, chunks, "doc-1", 1, "Strongly related text.", 0.95)
	storeChunk(t, chunks, "doc-2", 0, "Moderately related text.", 0.7)

	results, err := searcher.SearchByVector(ctx, queryVector, Params{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Strongly related text.", results[0].Content)
	assert.Equal(t, "Moderately related text.", results[1].Content)
	assert.Equal(t, "Weakly related text.", results[2].Content)
}

func TestSearchByVectorThreshold(t *testing.T) {
	searcher, chunks := newTestSearcher(t)
	ctx := context.Background()

	storeChunk(t, chunks, "doc-1", 0, "Below the default threshold.", 0.1)
	storeChunk(t, chunks, "doc-1", 1, "Above the default threshold.", 0.8)

	// Default threshold filters the weak match
	results, err := searcher.SearchByVector(ctx, queryVector, Params{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Above the default threshold.", results[0].Content)

	// Raising the threshold can only shrink the result set
	strict, err := searcher.SearchByVector(ctx, queryVector, Params{MinSimilarity: 0.9})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(strict), len(results))
	assert.Empty(t, strict)
}

func TestSearchByVectorDimensionMismatch(t *testing.T) {
	searcher, _ := newTestSearcher(t)

	_, err := searcher.SearchByVector(context.Background(), []float32{1, 0}, Params{})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestSearchByVectorInvalidLimit(t *testing.T) {
	searcher, _ := newTestSearcher(t)

	_, err := searcher.SearchByVector(context.Background(), queryVector, Params{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestSearchByTextEmptyQuery(t *testing.T) {
	searcher, _ := newTestSearcher(t)

	_, err := searcher.SearchByText(context.Background(), "   ", Params{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchByText(t *testing.T) {
	searcher, chunks := newTestSearcher(t)
	ctx := context.Background()

	storeChunk(t, chunks, "doc-1", 0, "Vector search retrieves passages.", 0.9)

	results, err := searcher.SearchByText(ctx, "how does vector search work", Params{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1", results[0].DocumentID)
	assert.Equal(t, "doc-1.txt", results[0].DocumentName)
}

func TestSearchByTextLimit(t *testing.T) {
	searcher, chunks := newTestSearcher(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		storeChunk(t, chunks, "doc-1", i, fmt.Sprintf("Chunk number %d content.", i), 0.8)
	}

	// Default limit
	results, err := searcher.SearchByText(ctx, "query", Params{})
	require.NoError(t, err)
	assert.Len(t, results, DefaultLimit)

	// Explicit limit
	results, err = searcher.SearchByText(ctx, "query", Params{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

type recordingMonitor struct {
	started  bool
	embedded bool
	searched int
	finished int
}

func (m *recordingMonitor) Start(_ string)                         { m.started = true }
func (m *recordingMonitor) AfterQueryEmbedding(_ []float32)        { m.embedded = true }
func (m *recordingMonitor) AfterChunkSearch(r []core.SearchResult) { m.searched = len(r) }
func (m *recordingMonitor) Finish(r []core.SearchResult)           { m.finished = len(r) }

func TestSearchByTextWithMonitor(t *testing.T) {
	searcher, chunks := newTestSearcher(t)
	ctx := context.Background()

	storeChunk(t, chunks, "doc-1", 0, "Monitored chunk content.", 0.9)

	monitor := &recordingMonitor{}
	results, err := searcher.SearchByTextWithMonitor(ctx, "query", Params{}, monitor)
	require.NoError(t, err)

	assert.True(t, monitor.started)
	assert.True(t, monitor.embedded)
	assert.Equal(t, len(results), monitor.searched)
	assert.Equal(t, len(results), monitor.finished)
}

func TestSearchDocumentsTopTwoMean(t *testing.T) {
	searcher, chunks := newTestSearcher(t)
	ctx := context.Background()

	// One spike versus two consistently strong chunks: the consistent
	// document must win. mean(0.9, 0.5) = 0.7 < mean(0.8, 0.8) = 0.8.
	storeChunk(t, chunks, "doc-spike", 0, "A single very strong chunk.", 0.9)
	storeChunk(t, chunks, "doc-spike", 1, "A mediocre chunk of text here.", 0.5)
	storeChunk(t, chunks, "doc-spike", 2, "Another mediocre chunk of text.", 0.5)
	storeChunk(t, chunks, "doc-steady", 0, "A strong chunk of content.", 0.8)
	storeChunk(t, chunks, "doc-steady", 1, "Another strong chunk of content.", 0.8)

	matches, err := searcher.SearchDocuments(ctx, "query", Params{})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "doc-steady", matches[0].DocumentID)
	assert.InDelta(t, 0.8, matches[0].Score, 0.001)
	assert.Equal(t, "doc-spike", matches[1].DocumentID)
	assert.InDelta(t, 0.7, matches[1].Score, 0.001)
}

func TestSearchDocumentsPreview(t *testing.T) {
	searcher, chunks := newTestSearcher(t)
	ctx := context.Background()

	long := strings.Repeat("Relevant sentence about the topic. ", 20)
	storeChunk(t, chunks, "doc-1", 0, long, 0.9)
	storeChunk(t, chunks, "doc-1", 1, "Weaker chunk content here.", 0.5)

	matches, err := searcher.SearchDocuments(ctx, "query", Params{})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// Preview comes from the best chunk, truncated
	assert.True(t, strings.HasPrefix(matches[0].Preview, "Relevant sentence"))
	assert.LessOrEqual(t, len(matches[0].Preview), previewLength+3)
	assert.True(t, strings.HasSuffix(matches[0].Preview, "..."))
	assert.Equal(t, 2, matches[0].MatchingChunks)
}

func TestSearchDocumentsSingleChunkScore(t *testing.T) {
	searcher, chunks := newTestSearcher(t)
	ctx := context.Background()

	storeChunk(t, chunks, "doc-1", 0, "The only chunk in this document.", 0.75)

	matches, err := searcher.SearchDocuments(ctx, "query", Params{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.75, matches[0].Score, 0.001)
	assert.Equal(t, 1, matches[0].MatchingChunks)
}

func TestSearchDocumentsEmpty(t *testing.T) {
	searcher, _ := newTestSearcher(t)

	matches, err := searcher.SearchDocuments(context.Background(), "query", Params{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}
