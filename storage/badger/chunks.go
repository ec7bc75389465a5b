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


package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
// Similarity search is a full scan over chunk records; acceptable for the
// embedded backend where corpora are small.
type ChunkRepository struct {
	backend   *Backend
	dimension int
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository with a fixed embedding
// dimension. All stored vectors must match it.
func NewChunkRepository(backend *Backend, dimension int) *ChunkRepository {
	return &ChunkRepository{
		backend:   backend,
		dimension: dimension,
	}
}

// Close is a no-op; the backend owns the database handle.
func (r *ChunkRepository) Close() error {
	return nil
}

// Dimension returns the configured embedding dimension.
func (r *ChunkRepository) Dimension() int {
	return r.dimension
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertChunks stores chunk+vector pairs atomically as one batch.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, batch []core.ChunkWithVector) error {
	for i := range batch {
		if len(batch[i].Vector) != r.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, want %d",
				storage.ErrDimensionMismatch, batch[i].Chunk.ID, len(batch[i].Vector), r.dimension)
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for i := range batch {
			record := &batch[i]
			key := makeChunkKey(record.Chunk.ID)
			if err := tx.Set(key, storage.MarshalChunkRecord(record)); err != nil {
				return err
			}

			// Document index entry; value is the chunk key for lookups.
			docKey := makeChunkDocumentKey(record.Chunk.DocumentID, record.Chunk.ID)
			if err := tx.Set(docKey, key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// SimilaritySearch scans all chunk records and ranks them by cosine
// similarity. Vectors are stored normalized, so similarity is the dot
// product.
func (r *ChunkRepository) SimilaritySearch(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]core.SearchResult, error) {
	if len(vector) != r.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d",
			storage.ErrDimensionMismatch, len(vector), r.dimension)
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var docFilter map[string]bool
	if len(opts.DocumentIDs) > 0 {
		docFilter = make(map[string]bool, len(opts.DocumentIDs))
		for _, id := range opts.DocumentIDs {
			docFilter[id] = true
		}
	}

	var results []core.SearchResult

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var record *core.ChunkWithVector
			err := item.Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalChunkRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record == nil || len(record.Vector) == 0 {
				continue
			}
			if docFilter != nil && !docFilter[record.Chunk.DocumentID] {
				continue
			}

			similarity := dotProduct(vector, record.Vector)
			if similarity >= opts.MinSimilarity {
				results = append(results, core.SearchResult{
					ChunkID:      record.Chunk.ID,
					DocumentID:   record.Chunk.DocumentID,
					Content:      record.Chunk.Content,
					Similarity:   similarity,
					Metadata:     record.Chunk.Metadata,
					DocumentName: record.Chunk.Metadata.Filename,
					ChunkIndex:   record.Chunk.Index,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending; chunk ID breaks ties so results
	// are reproducible.
	slices.SortFunc(results, func(a, b core.SearchResult) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		return strings.Compare(string(a.ChunkID), string(b.ChunkID))
	})

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results, nil
}

// GetChunksByDocument returns a document's chunks ordered by chunk index.
func (r *ChunkRepository) GetChunksByDocument(ctx context.Context, documentID string) ([]core.ChunkWithVector, error) {
	var records []core.ChunkWithVector

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = makePartialChunkDocumentKey(documentID)
		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunkKey []byte
			err := iter.Item().Value(func(val []byte) error {
				chunkKey = append([]byte(nil), val...)
				return nil
			})
			if err != nil {
				return err
			}

			record, err := readChunkRecord(tx, chunkKey)
			if err != nil {
				return err
			}
			if record != nil {
				records = append(records, *record)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(records, func(a, b core.ChunkWithVector) int {
		return a.Chunk.Index - b.Chunk.Index
	})

	return records, nil
}

// AllChunks returns every stored chunk.
func (r *ChunkRepository) AllChunks(ctx context.Context) ([]core.ChunkWithVector, error) {
	var records []core.ChunkWithVector

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.ChunkWithVector
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalChunkRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record != nil {
				records = append(records, *record)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// DeleteByDocument removes all chunks belonging to a document.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = makePartialChunkDocumentKey(documentID)
		iterOpts.PrefetchValues = true
		iter := tx.NewIterator(iterOpts)

		var docKeys, chunkKeys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			docKeys = append(docKeys, item.KeyCopy(nil))

			var chunkKey []byte
			if err := item.Value(func(val []byte) error {
				chunkKey = append([]byte(nil), val...)
				return nil
			}); err != nil {
				iter.Close()
				return err
			}
			chunkKeys = append(chunkKeys, chunkKey)
		}
		// The iterator must be closed before any write or commit on the
		// transaction.
		iter.Close()

		for _, key := range chunkKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		for _, key := range docKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// readChunkRecord reads a chunk by key. Returns nil (no error) when missing.
func readChunkRecord(tx *badger.Txn, key []byte) (*core.ChunkWithVector, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record *core.ChunkWithVector
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalChunkRecord(val)
		return err
	})
	return record, err
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
