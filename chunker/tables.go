package chunker

import (
	"regexp"
	"strings"

	"github.com/poiesic/docqa/core"
)

var tableRowRe = regexp.MustCompile(`\|.+\|`)

// ChunkTablesAsText chunks text that may contain markdown-style tables.
// Table rows are flattened to comma-joined prose before the standard
// sentence pipeline runs; tables are never chunked as structured data.
func (c *Chunker) ChunkTablesAsText(text, documentID, filename string) []core.Chunk {
	processed := tableRowRe.ReplaceAllStringFunc(text, func(row string) string {
		flat := strings.ReplaceAll(row, "|", ", ")
		return strings.Trim(strings.TrimSpace(flat), ", ")
	})
	return c.Chunk(processed, documentID, filename)
}
