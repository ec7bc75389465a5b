package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

const testDimension = 4

func newTestRepos(t *testing.T) (storage.DocumentRepository, storage.ChunkRepository) {
	t.Helper()
	docs, chunks, backend, err := NewMemoryRepositories(testDimension)
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	t.Cleanup(func() {
		chunks.Close()
		docs.Close()
		backend.Close()
	})
	return docs, chunks
}

func makeChunkRecord(docID string, index int, content string, vector []float32) core.ChunkWithVector {
	return core.ChunkWithVector{
		Chunk: core.Chunk{
			ID:         core.ChunkIDFor(docID, index, content),
			DocumentID: docID,
			Content:    content,
			Index:      index,
			WordCount:  len(content) / 5,
			Metadata: core.ChunkMetadata{
				Filename:    docID + ".txt",
				CreatedAt:   time.Now().UTC(),
				CharLength:  len(content),
				ChunkMethod: "sentence",
			},
		},
		Vector: vector,
		Model:  "mock-embedder",
	}
}

func TestDocumentBasics(t *testing.T) {
	docs, _ := newTestRepos(t)
	ctx := context.Background()

	doc := &storage.Document{
		ID:       "doc-1",
		Filename: "report.txt",
		Content:  "The full document text.",
	}
	if err := docs.AddDocument(ctx, doc); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	retrieved, err := docs.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Filename != "report.txt" {
		t.Fatalf("Expected 'report.txt', got '%s'", retrieved.Filename)
	}
	if retrieved.EmbeddingStatus != core.EmbeddingPending {
		t.Fatalf("Expected pending status, got '%s'", retrieved.EmbeddingStatus)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set")
	}

	content, err := docs.GetContent(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get content: %v", err)
	}
	if content != "The full document text." {
		t.Fatalf("Unexpected content: %s", content)
	}
}

func TestDocumentDuplicate(t *testing.T) {
	docs, _ := newTestRepos(t)
	ctx := context.Background()

	doc := &storage.Document{ID: "doc-1", Filename: "a.txt", Content: "text"}
	if err := docs.AddDocument(ctx, doc); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	err := docs.AddDocument(ctx, &storage.Document{ID: "doc-1", Filename: "b.txt"})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestDocumentNotFound(t *testing.T) {
	docs, _ := newTestRepos(t)
	ctx := context.Background()

	if _, err := docs.GetDocument(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if _, err := docs.GetContent(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestDocumentNoContent(t *testing.T) {
	docs, _ := newTestRepos(t)
	ctx := context.Background()

	if err := docs.AddDocument(ctx, &storage.Document{ID: "doc-1", Filename: "empty.txt"}); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	if _, err := docs.GetContent(ctx, "doc-1"); !errors.Is(err, storage.ErrNoContent) {
		t.Fatalf("Expected ErrNoContent, got %v", err)
	}
}

func TestMarkEmbeddingsCompleted(t *testing.T) {
	docs, _ := newTestRepos(t)
	ctx := context.Background()

	if err := docs.AddDocument(ctx, &storage.Document{ID: "doc-1", Filename: "a.txt", Content: "text"}); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	if err := docs.SetEmbeddingStatus(ctx, "doc-1", core.EmbeddingProcessing); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}
	if err := docs.MarkEmbeddingsCompleted(ctx, "doc-1", 7, "all-minilm"); err != nil {
		t.Fatalf("Failed to mark completed: %v", err)
	}

	doc, err := docs.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if !doc.EmbeddingsCompleted {
		t.Fatal("Expected EmbeddingsCompleted to be true")
	}
	if doc.EmbeddingStatus != core.EmbeddingCompleted {
		t.Fatalf("Expected completed status, got '%s'", doc.EmbeddingStatus)
	}
	if doc.TotalChunks != 7 {
		t.Fatalf("Expected 7 chunks, got %d", doc.TotalChunks)
	}
	if doc.EmbeddingModel != "all-minilm" {
		t.Fatalf("Expected 'all-minilm', got '%s'", doc.EmbeddingModel)
	}
}

func TestUpsertAndGetChunks(t *testing.T) {
	_, chunks := newTestRepos(t)
	ctx := context.Background()

	batch := []core.ChunkWithVector{
		makeChunkRecord("doc-1", 1, "Second chunk content.", []float32{0, 1, 0, 0}),
		makeChunkRecord("doc-1", 0, "First chunk content.", []float32{1, 0, 0, 0}),
	}
	if err := chunks.UpsertChunks(ctx, batch); err != nil {
		t.Fatalf("Failed to upsert chunks: %v", err)
	}

	got, err := chunks.GetChunksByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(got))
	}
	// Ordered by chunk index regardless of insertion order
	if got[0].Chunk.Index != 0 || got[1].Chunk.Index != 1 {
		t.Fatalf("Chunks not ordered by index: %d, %d", got[0].Chunk.Index, got[1].Chunk.Index)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	_, chunks := newTestRepos(t)
	ctx := context.Background()

	batch := []core.ChunkWithVector{
		makeChunkRecord("doc-1", 0, "Some chunk content.", []float32{1, 0, 0, 0}),
	}
	if err := chunks.UpsertChunks(ctx, batch); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	if err := chunks.UpsertChunks(ctx, batch); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := chunks.GetChunksByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 chunk after re-upsert, got %d", len(got))
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	_, chunks := newTestRepos(t)
	ctx := context.Background()

	batch := []core.ChunkWithVector{
		makeChunkRecord("doc-1", 0, "Valid chunk content.", []float32{1, 0, 0, 0}),
		makeChunkRecord("doc-1", 1, "Wrong vector length.", []float32{1, 0}),
	}
	err := chunks.UpsertChunks(ctx, batch)
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}

	// Whole batch rejected, nothing stored
	got, err := chunks.GetChunksByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Expected no chunks stored, got %d", len(got))
	}
}

func TestSimilaritySearch(t *testing.T) {
	_, chunks := newTestRepos(t)
	ctx := context.Background()

	batch := []core.ChunkWithVector{
		makeChunkRecord("doc-1", 0, "Exact match chunk.", []float32{1, 0, 0, 0}),
		makeChunkRecord("doc-1", 1, "Orthogonal chunk here.", []float32{0, 1, 0, 0}),
		makeChunkRecord("doc-2", 0, "Close match chunk.", []float32{0.9, 0.436, 0, 0}),
	}
	if err := chunks.UpsertChunks(ctx, batch); err != nil {
		t.Fatalf("Failed to upsert chunks: %v", err)
	}

	results, err := chunks.SimilaritySearch(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{
		Limit:         10,
		MinSimilarity: 0.3,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results above threshold, got %d", len(results))
	}
	if results[0].Content != "Exact match chunk." {
		t.Fatalf("Expected exact match first, got '%s'", results[0].Content)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Fatal("Results not in descending similarity order")
	}
}

func TestSimilaritySearchDocumentFilter(t *testing.T) {
	_, chunks := newTestRepos(t)
	ctx := context.Background()

	batch := []core.ChunkWithVector{
		makeChunkRecord("doc-1", 0, "Chunk in first doc.", []float32{1, 0, 0, 0}),
		makeChunkRecord("doc-2", 0, "Chunk in second doc.", []float32{1, 0, 0, 0}),
	}
	if err := chunks.UpsertChunks(ctx, batch); err != nil {
		t.Fatalf("Failed to upsert chunks: %v", err)
	}

	results, err := chunks.SimilaritySearch(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{
		Limit:       10,
		DocumentIDs: []string{"doc-2"},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].DocumentID != "doc-2" {
		t.Fatalf("Expected doc-2, got '%s'", results[0].DocumentID)
	}
}

func TestSimilaritySearchBadQuery(t *testing.T) {
	_, chunks := newTestRepos(t)
	ctx := context.Background()

	if _, err := chunks.SimilaritySearch(ctx, []float32{1, 0}, storage.SearchOptions{Limit: 10}); !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := chunks.SimilaritySearch(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{Limit: 0}); !errors.Is(err, storage.ErrInvalidQuery) {
		t.Fatalf("Expected ErrInvalidQuery, got %v", err)
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	docs, chunks := newTestRepos(t)
	ctx := context.Background()

	if err := docs.AddDocument(ctx, &storage.Document{ID: "doc-1", Filename: "a.txt", Content: "text"}); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	batch := []core.ChunkWithVector{
		makeChunkRecord("doc-1", 0, "First chunk content.", []float32{1, 0, 0, 0}),
		makeChunkRecord("doc-1", 1, "Second chunk content.", []float32{0, 1, 0, 0}),
	}
	if err := chunks.UpsertChunks(ctx, batch); err != nil {
		t.Fatalf("Failed to upsert chunks: %v", err)
	}

	if err := docs.DeleteDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}

	if _, err := docs.GetDocument(ctx, "doc-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	got, err := chunks.GetChunksByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Expected chunks to be deleted, got %d", len(got))
	}
}

func TestAllChunks(t *testing.T) {
	_, chunks := newTestRepos(t)
	ctx := context.Background()

	batch := []core.ChunkWithVector{
		makeChunkRecord("doc-1", 0, "First chunk content.", []float32{1, 0, 0, 0}),
		makeChunkRecord("doc-2", 0, "Second chunk content.", []float32{0, 1, 0, 0}),
		makeChunkRecord("doc-3", 0, "Third chunk content.", []float32{0, 0, 1, 0}),
	}
	if err := chunks.UpsertChunks(ctx, batch); err != nil {
		t.Fatalf("Failed to upsert chunks: %v", err)
	}

	all, err := chunks.AllChunks(ctx)
	if err != nil {
		t.Fatalf("Failed to list chunks: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(all))
	}
}
