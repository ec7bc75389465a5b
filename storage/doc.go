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


// Package storage provides the storage abstraction layer for docqa.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. It allows for different storage backends (PostgreSQL with
// pgvector, embedded BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backends:
//
//	docs, chunks, err := badger.NewRepositories(path, dim)  // returns storage interfaces
//
// Internal package constructors (newBackend, newDocumentRepository, etc.) may
// return concrete types since they're only used within the implementation package.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Repository: base interface with transaction and lifecycle support
//   - DocumentRepository: operations on documents and embedding bookkeeping
//   - ChunkRepository: chunk persistence and vector similarity search
//
// # Usage
//
// Create repositories against the embedded backend:
//
//	docs, chunks, err := badger.NewRepositories("/path/to/db", 384)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer docs.Close()
//
// Use in tests with in-memory storage:
//
//	docs, chunks, err := badger.NewMemoryRepositories(384)
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
