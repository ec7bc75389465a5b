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

import "github.com/poiesic/docqa/storage"

// NewRepositories creates document and chunk repositories backed by a
// BadgerDB database at path. Caller must close the backend when done.
func NewRepositories(path string, dimension int) (storage.DocumentRepository, storage.ChunkRepository, *Backend, error) {
	return newRepositories(path, false, dimension)
}

// NewMemoryRepositories creates in-memory document and chunk repositories
// for testing. Caller must close the backend when done.
func NewMemoryRepositories(dimension int) (storage.DocumentRepository, storage.ChunkRepository, *Backend, error) {
	return newRepositories("", true, dimension)
}

func newRepositories(path string, inMemory bool, dimension int) (storage.DocumentRepository, storage.ChunkRepository, *Backend, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, nil, nil, err
	}

	chunkRepo := NewChunkRepository(backend, dimension)
	docRepo := NewDocumentRepository(backend, chunkRepo)

	return docRepo, chunkRepo, backend, nil
}
