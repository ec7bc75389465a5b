// Package chunker splits raw document text into semantically coherent,
// size-bounded, overlapping chunks suitable for embedding.
//
// Text is normalized, split into sentences on punctuation boundaries, and
// greedily packed into chunks of a configurable word budget. When a chunk
// closes, the next chunk is seeded with the trailing words of the previous
// one so that context spanning a boundary is not lost. Sentences outside
// reasonable length bounds are treated as noise and discarded.
//
// Chunking is deterministic: the same text, document ID, and parameters
// always produce the same chunk boundaries and chunk IDs, which makes
// reprocessing idempotent at the storage layer.
package chunker
