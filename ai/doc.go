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


// Package ai provides abstractions for the embedding services used to turn
// document text into vectors.
//
// The package defines the Embedder interface together with the Result type
// for per-item batch outcomes, and a Provider interface that bundles an
// embedder with its model identity and lifecycle.
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external dependencies
//
// # Prefix Convention
//
// The embedding models this system targets (the e5 family and compatible
// models) are asymmetric: document passages are embedded with the
// "passage: " prefix and search queries with the "query: " prefix. The
// Embedder implementations apply the prefixes internally; callers pass raw
// text. Mixing the prefixes produces no error but silently degrades
// retrieval quality, which is why the convention lives in one place.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedQuery(ctx, "what is photosynthesis?")
package ai
