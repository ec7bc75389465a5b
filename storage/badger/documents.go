package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	chunks  *ChunkRepository
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository. The chunk
// repository is used to cascade deletes.
func NewDocumentRepository(backend *Backend, chunks *ChunkRepository) *DocumentRepository {
	return &DocumentRepository{
		backend: backend,
		chunks:  chunks,
	}
}

// Close is a no-op; the backend owns the database handle.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocument stores a document record.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *storage.Document) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.ID)

		_, err := tx.Get(key)
		if err == nil {
			return storage.ErrDuplicateKey
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = time.Now().UTC()
		}
		doc.UpdatedAt = doc.CreatedAt
		if doc.EmbeddingStatus == "" {
			doc.EmbeddingStatus = core.EmbeddingPending
		}

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*storage.Document, error) {
	var doc *storage.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, makeDocumentKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// GetContent returns the raw text content of a document.
func (r *DocumentRepository) GetContent(ctx context.Context, id string) (string, error) {
	doc, err := r.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.Content == "" {
		return "", storage.ErrNoContent
	}
	return doc.Content, nil
}

// SetEmbeddingStatus updates the document-level processing status.
func (r *DocumentRepository) SetEmbeddingStatus(ctx context.Context, id string, status core.EmbeddingStatus) error {
	return r.updateDocument(id, func(doc *storage.Document) {
		doc.EmbeddingStatus = status
	})
}

// MarkEmbeddingsCompleted flags a document as fully embedded.
func (r *DocumentRepository) MarkEmbeddingsCompleted(ctx context.Context, id string, totalChunks int, model string) error {
	return r.updateDocument(id, func(doc *storage.Document) {
		doc.EmbeddingsCompleted = true
		doc.EmbeddingStatus = core.EmbeddingCompleted
		doc.TotalChunks = totalChunks
		doc.EmbeddingModel = model
	})
}

// DeleteDocument removes a document and all of its chunks.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id string) error {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}
	return r.chunks.DeleteByDocument(ctx, id)
}

// updateDocument applies a mutation to an existing document record.
func (r *DocumentRepository) updateDocument(id string, mutate func(doc *storage.Document)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		mutate(doc)
		doc.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readDocument reads a document by key. Returns nil (no error) when missing.
func readDocument(tx *badger.Txn, key []byte) (*storage.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var doc *storage.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

