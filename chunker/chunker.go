// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunker

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/docqa/core"
)

const (
	// DefaultChunkSize is the target chunk size in words.
	DefaultChunkSize = 512

	// DefaultOverlap is the number of trailing words carried into the next
	// chunk for continuity.
	DefaultOverlap = 50

	// Sentences outside these character bounds are treated as noise
	// (fragments, binary garbage) and discarded.
	minSentenceChars = 10
	maxSentenceChars = 1000

	chunkMethodSentence = "sentence_based"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	controlRe    = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
	sentenceRe   = regexp.MustCompile(`[.!?]+\s+`)
)

// Chunker splits raw document text into size-bounded, overlapping chunks
// along sentence boundaries. A Chunker is a pure function over its
// parameters: identical input always yields identical chunk boundaries and
// chunk IDs.
type Chunker struct {
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in words.
// Values below 1 fall back to the default.
func WithChunkSize(words int) Option {
	return func(c *Chunker) {
		if words > 0 {
			c.chunkSize = words
		}
	}
}

// WithOverlap sets the word overlap between consecutive chunks.
// Negative values are treated as zero.
func WithOverlap(words int) Option {
	return func(c *Chunker) {
		if words >= 0 {
			c.overlap = words
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// New creates a Chunker with the default parameters, then applies options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
		logger:    slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits text into sentence-aligned chunks for the given document.
// Empty or whitespace-only text yields no chunks and no error.
func (c *Chunker) Chunk(text, documentID, filename string) []core.Chunk {
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("empty text provided for chunking", "documentID", documentID)
		return nil
	}

	cleaned := cleanText(text)
	sentences := splitSentences(cleaned)
	if len(sentences) == 0 {
		c.logger.Warn("no usable sentences after cleaning", "documentID", documentID, "filename", filename)
		return nil
	}

	var chunks []core.Chunk
	var current string
	currentWords := 0
	index := 0

	for _, sentence := range sentences {
		sentenceWords := len(strings.Fields(sentence))

		if currentWords+sentenceWords > c.chunkSize && current != "" {
			chunks = append(chunks, c.newChunk(documentID, current, index, currentWords, filename))

			// Seed the next chunk with trailing words of the closed one.
			overlap := overlapText(current, c.overlap)
			if overlap != "" {
				current = overlap + " " + sentence
			} else {
				current = sentence
			}
			currentWords = len(strings.Fields(current))
			index++
			continue
		}

		if current != "" {
			current += " " + sentence
		} else {
			current = sentence
		}
		currentWords += sentenceWords
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, c.newChunk(documentID, current, index, currentWords, filename))
	}

	c.logger.Debug("text chunked", "documentID", documentID, "filename", filename, "chunks", len(chunks))
	return chunks
}

func (c *Chunker) newChunk(documentID, content string, index, wordCount int, filename string) core.Chunk {
	return core.Chunk{
		ID:         core.ChunkIDFor(documentID, index, content),
		DocumentID: documentID,
		Content:    content,
		Index:      index,
		WordCount:  wordCount,
		Metadata: core.ChunkMetadata{
			Filename:    filename,
			CreatedAt:   time.Now().UTC(),
			CharLength:  len(content),
			ChunkMethod: chunkMethodSentence,
		},
	}
}

// cleanText collapses whitespace and strips control characters while keeping
// punctuation intact.
func cleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = controlRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// splitSentences splits text on punctuation boundaries and drops sentences
// outside the accepted length bounds.
func splitSentences(text string) []string {
	parts := sentenceRe.Split(text, -1)

	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if len(part) > minSentenceChars && len(part) < maxSentenceChars {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

// overlapText returns the last overlapWords words of text, or all of it when
// the text is shorter than the requested overlap.
func overlapText(text string, overlapWords int) string {
	if overlapWords <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= overlapWords {
		return text
	}
	return strings.Join(words[len(words)-overlapWords:], " ")
}
