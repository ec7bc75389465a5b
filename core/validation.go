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


package core

import "fmt"

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - DocumentID must not be empty
//   - Index must not be negative
//   - ID must match the deterministic derivation from (DocumentID, Index, Content)
//
// NOT validated:
//   - WordCount and Metadata (descriptive, populated by the chunker)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyDocumentID)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeIndex)
	}

	if want := ChunkIDFor(chunk.DocumentID, chunk.Index, chunk.Content); chunk.ID != want {
		return fmt.Errorf("%w: id %q does not match content derivation %q", ErrInvalidChunk, chunk.ID, want)
	}

	return nil
}

// ValidateTaskStatus validates that a TaskStatus has a known value.
func ValidateTaskStatus(status TaskStatus) error {
	switch status {
	case TaskPending, TaskProcessing, TaskCompleted, TaskFailed, TaskRetrying:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, status)
}
