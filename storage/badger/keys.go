package badger

import (
	"fmt"

	"github.com/poiesic/docqa/core"
)

// Key prefixes for different data types
const (
	documentPrefix      = "docrec"
	chunkPrefix         = "chkrec"
	chunkDocumentPrefix = "chkdoc"
)

// makeDocumentKey generates a key for a document record by ID.
func makeDocumentKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, id))
}

// makeChunkKey generates a key for a chunk record by chunk ID.
func makeChunkKey(id core.ChunkID) []byte {
	return []byte(fmt.Sprintf("%s:%s", chunkPrefix, id))
}

// makeChunkDocumentKey generates a composite key for the document index.
// Format: prefix:documentID:chunkID
func makeChunkDocumentKey(documentID string, id core.ChunkID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", chunkDocumentPrefix, documentID, id))
}

// makePartialChunkDocumentKey generates a partial key for per-document scans.
func makePartialChunkDocumentKey(documentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkDocumentPrefix, documentID))
}
