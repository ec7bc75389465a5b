package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ChunkID is the stable identifier of a document chunk.
// It is derived from the owning document, the chunk position, and the chunk
// content, so re-chunking the same text yields the same IDs.
type ChunkID string

// chunkIDContentWindow is the number of leading content bytes hashed into
// a chunk ID. Enough to distinguish chunks at the same index after edits
// without hashing the full content on every call.
const chunkIDContentWindow = 100

// ChunkIDFor generates a deterministic chunk ID using BLAKE2b hashing.
// The same (documentID, index, content) triple always produces the same ID,
// which makes reprocessing a document an idempotent upsert.
func ChunkIDFor(documentID string, index int, content string) ChunkID {
	window := content
	if len(window) > chunkIDContentWindow {
		window = window[:chunkIDContentWindow]
	}
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	fmt.Fprintf(h, "%s_%d_%s", documentID, index, window)
	sum := h.Sum(nil)
	return ChunkID(fmt.Sprintf("%s_%d_%016x", documentID, index, binary.LittleEndian.Uint64(sum)))
}

// ChunkMetadata carries descriptive information attached to a chunk.
type ChunkMetadata struct {
	Filename    string
	CreatedAt   time.Time
	CharLength  int
	ChunkMethod string
}

// Chunk is a bounded contiguous slice of a document's text, the unit of
// embedding and retrieval. Chunks are created once during processing and
// never mutated; they are removed only by cascading delete of the document.
type Chunk struct {
	ID         ChunkID
	DocumentID string
	Content    string
	Index      int // 0-based, contiguous per document
	WordCount  int
	Metadata   ChunkMetadata
}

// ChunkWithVector pairs a chunk with its embedding for persistence.
type ChunkWithVector struct {
	Chunk  Chunk
	Vector []float32
	Model  string // embedding model identifier that produced the vector
}

// TaskStatus is the lifecycle state of a background processing task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskRetrying   TaskStatus = "retrying"
)

// Terminal reports whether the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// ProcessingTask tracks the progress of a document through the
// chunk-embed-persist pipeline. Tasks live in queue memory only and do not
// survive a process restart.
type ProcessingTask struct {
	TaskID       string
	DocumentID   string
	Filename     string
	Status       TaskStatus
	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	ErrorMessage string
	RetryCount   int
	Priority     bool // recorded at enqueue time; the queue itself is strict FIFO
}

// EmbeddingStatus is the document-level processing state stored alongside
// the document record.
type EmbeddingStatus string

const (
	EmbeddingPending    EmbeddingStatus = "pending"
	EmbeddingProcessing EmbeddingStatus = "processing"
	EmbeddingCompleted  EmbeddingStatus = "completed"
	EmbeddingFailed     EmbeddingStatus = "failed"
)

// SearchResult is a single chunk-level similarity match.
// Results are produced fresh per query and never stored.
type SearchResult struct {
	ChunkID      ChunkID
	DocumentID   string
	Content      string
	Similarity   float32 // cosine similarity in [-1, 1]
	Metadata     ChunkMetadata
	DocumentName string
	ChunkIndex   int
}

// DocumentMatch is a document-level aggregate over chunk matches.
type DocumentMatch struct {
	DocumentID     string
	DocumentName   string
	Score          float32 // mean of the top-2 chunk similarities
	Preview        string  // content of the best-matching chunk
	MatchingChunks int
}
