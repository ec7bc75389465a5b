package chunker

import (
	"strings"
	"testing"

	"github.com/poiesic/docqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_EmptyText(t *testing.T) {
	c := New()

	assert.Nil(t, c.Chunk("", "doc-1", "empty.txt"))
	assert.Nil(t, c.Chunk("   \n\t  ", "doc-1", "blank.txt"))
}

func TestChunk_SingleSentence(t *testing.T) {
	c := New()

	chunks := c.Chunk("This is a single reasonable sentence about nothing in particular.", "doc-1", "a.txt")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
	assert.Equal(t, chunks[0].WordCount, len(strings.Fields(chunks[0].Content)))
}

func TestChunk_Deterministic(t *testing.T) {
	c := New(WithChunkSize(20), WithOverlap(5))
	text := strings.Repeat("Here is a sentence with exactly eight words total. ", 12)

	first := c.Chunk(text, "doc-1", "a.txt")
	second := c.Chunk(text, "doc-1", "a.txt")
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Content, second[i].Content)
	}
}

func TestChunk_IndicesContiguous(t *testing.T) {
	c := New(WithChunkSize(16), WithOverlap(4))
	text := strings.Repeat("Here is a sentence with exactly eight words total. ", 10)

	chunks := c.Chunk(text, "doc-1", "a.txt")
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.NoError(t, core.ValidateChunk(&chunk))
	}
}

func TestChunk_OverlapInvariant(t *testing.T) {
	overlap := 4
	c := New(WithChunkSize(16), WithOverlap(overlap))
	text := strings.Repeat("Here is a sentence with exactly eight words total. ", 10)

	chunks := c.Chunk(text, "doc-1", "a.txt")
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1].Content)
		nextWords := strings.Fields(chunks[i].Content)

		want := prevWords
		if len(prevWords) > overlap {
			want = prevWords[len(prevWords)-overlap:]
		}
		require.GreaterOrEqual(t, len(nextWords), len(want))
		assert.Equal(t, want, nextWords[:len(want)], "chunk %d should start with the tail of chunk %d", i, i-1)
	}
}

func TestChunk_TinyChunksScenario(t *testing.T) {
	// With a two-word budget and one word of overlap, each sentence closes a
	// chunk and the next one starts with its last word.
	c := New(WithChunkSize(2), WithOverlap(1))

	chunks := c.Chunk("Sentence one. Sentence two. Sentence three.", "doc-1", "tiny.txt")
	require.GreaterOrEqual(t, len(chunks), 2)

	firstWords := strings.Fields(chunks[0].Content)
	secondWords := strings.Fields(chunks[1].Content)
	assert.Equal(t, firstWords[len(firstWords)-1], secondWords[0])
}

func TestChunk_Coverage(t *testing.T) {
	// Every surviving sentence must appear in some chunk.
	c := New(WithChunkSize(12), WithOverlap(2))
	sentences := []string{
		"The mitochondria is the powerhouse of the cell.",
		"Photosynthesis converts light energy into chemical energy.",
		"Ribosomes assemble proteins from amino acids.",
		"The nucleus stores the genetic material of the cell.",
	}
	text := strings.Join(sentences, " ")

	chunks := c.Chunk(text, "doc-1", "bio.txt")
	require.NotEmpty(t, chunks)

	var all strings.Builder
	for _, chunk := range chunks {
		all.WriteString(chunk.Content)
		all.WriteString(" ")
	}
	joined := all.String()
	for _, sentence := range sentences {
		trimmed := strings.TrimSuffix(sentence, ".")
		assert.Contains(t, joined, trimmed)
	}
}

func TestChunk_NoiseSentencesFiltered(t *testing.T) {
	c := New()

	long := strings.Repeat("x", 1200)
	chunks := c.Chunk("ok. "+long+". A real sentence that should survive the filter.", "doc-1", "noise.txt")
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Content, long)
	assert.NotContains(t, chunks[0].Content, "ok")
}

func TestChunk_OversizedSentenceKept(t *testing.T) {
	// A single sentence over the word budget is emitted as its own oversized
	// chunk rather than dropped or split.
	c := New(WithChunkSize(5), WithOverlap(0))

	text := "This one sentence has considerably more words than the configured chunk budget allows."
	chunks := c.Chunk(text, "doc-1", "big.txt")
	require.Len(t, chunks, 1)
	assert.Greater(t, chunks[0].WordCount, 5)
}

func TestChunk_ControlCharactersStripped(t *testing.T) {
	c := New()

	chunks := c.Chunk("A sentence\x00 with some\x1f control characters inside it.", "doc-1", "ctl.txt")
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Content, "\x00")
	assert.NotContains(t, chunks[0].Content, "\x1f")

	// DEL and the C1 range are stripped too
	chunks = c.Chunk("A sentence with some high control characters inside it.", "doc-1", "ctl.txt")
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Content, "")
	assert.NotContains(t, chunks[0].Content, "")
	assert.NotContains(t, chunks[0].Content, "")
}

func TestChunkTablesAsText(t *testing.T) {
	c := New()

	text := "Quarterly results are summarized below. | Region | Revenue | Growth | The numbers exceeded expectations overall."
	chunks := c.ChunkTablesAsText(text, "doc-1", "report.md")
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.NotContains(t, chunk.Content, "|")
	}
}

func TestComputeStats(t *testing.T) {
	c := New(WithChunkSize(16), WithOverlap(4))
	text := strings.Repeat("Here is a sentence with exactly eight words total. ", 10)

	chunks := c.Chunk(text, "doc-1", "a.txt")
	stats := c.ComputeStats(chunks)

	assert.Equal(t, len(chunks), stats.TotalChunks)
	assert.Greater(t, stats.TotalWords, 0)
	assert.GreaterOrEqual(t, stats.MaxWords, stats.MinWords)
	assert.InDelta(t, float64(stats.TotalWords)/float64(len(chunks)), stats.AvgWords, 0.001)

	assert.Equal(t, Stats{}, c.ComputeStats(nil))
}
