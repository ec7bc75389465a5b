package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkIDFor_Deterministic(t *testing.T) {
	id1 := ChunkIDFor("doc-1", 0, "The quick brown fox jumps over the lazy dog")
	id2 := ChunkIDFor("doc-1", 0, "The quick brown fox jumps over the lazy dog")
	assert.Equal(t, id1, id2)
}

func TestChunkIDFor_VariesByInputs(t *testing.T) {
	base := ChunkIDFor("doc-1", 0, "some content")

	t.Run("different document", func(t *testing.T) {
		assert.NotEqual(t, base, ChunkIDFor("doc-2", 0, "some content"))
	})

	t.Run("different index", func(t *testing.T) {
		assert.NotEqual(t, base, ChunkIDFor("doc-1", 1, "some content"))
	})

	t.Run("different content", func(t *testing.T) {
		assert.NotEqual(t, base, ChunkIDFor("doc-1", 0, "other content"))
	})
}

func TestChunkIDFor_LongContentUsesWindow(t *testing.T) {
	// Content differing only beyond the hashed window maps to the same ID.
	// The chunk index disambiguates such chunks in practice.
	prefix := strings.Repeat("a", chunkIDContentWindow)
	id1 := ChunkIDFor("doc-1", 3, prefix+" tail one")
	id2 := ChunkIDFor("doc-1", 3, prefix+" tail two")
	assert.Equal(t, id1, id2)
}

func TestChunkIDFor_EmbedsDocumentAndIndex(t *testing.T) {
	id := ChunkIDFor("doc-9", 7, "content")
	assert.True(t, strings.HasPrefix(string(id), "doc-9_7_"))
}

func TestTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		terminal bool
	}{
		{TaskPending, false},
		{TaskProcessing, false},
		{TaskRetrying, false},
		{TaskCompleted, true},
		{TaskFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}
