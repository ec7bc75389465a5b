package chunker

import "github.com/poiesic/docqa/core"

// Stats summarizes the output of a chunking run.
type Stats struct {
	TotalChunks  int
	TotalWords   int
	AvgWords     float64
	MinWords     int
	MaxWords     int
	AvgChars     float64
	// Efficiency is the ratio of produced chunks to the theoretical minimum
	// at the configured chunk size. Values near 1.0 mean tight packing.
	Efficiency float64
}

// ComputeStats returns summary statistics for a set of chunks.
func (c *Chunker) ComputeStats(chunks []core.Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	stats := Stats{
		TotalChunks: len(chunks),
		MinWords:    chunks[0].WordCount,
	}
	totalChars := 0
	for _, chunk := range chunks {
		stats.TotalWords += chunk.WordCount
		totalChars += len(chunk.Content)
		if chunk.WordCount < stats.MinWords {
			stats.MinWords = chunk.WordCount
		}
		if chunk.WordCount > stats.MaxWords {
			stats.MaxWords = chunk.WordCount
		}
	}
	stats.AvgWords = float64(stats.TotalWords) / float64(len(chunks))
	stats.AvgChars = float64(totalChars) / float64(len(chunks))
	if stats.TotalWords > 0 {
		stats.Efficiency = float64(len(chunks)) / (float64(stats.TotalWords) / float64(c.chunkSize))
	}
	return stats
}
