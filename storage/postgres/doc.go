// Package postgres implements the storage interfaces on PostgreSQL with
// the pgvector extension.
//
// Similarity search uses the cosine distance operator:
//
//	1 - (embedding <=> query)
//
// which an HNSW index with vector_cosine_ops accelerates. Migrate creates
// the extension, tables, and indexes; it is idempotent and safe to run on
// every startup.
//
// All repositories share one pgxpool.Pool owned by the Backend. Calls made
// inside WithTransaction run on a single transaction carried through the
// context.
package postgres
