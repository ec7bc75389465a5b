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


// Package search answers similarity queries over embedded document chunks.
//
// The Searcher supports three entry points:
//   - SearchByVector for callers that already hold an embedding
//   - SearchByText, which embeds the query with the query prefix first
//   - SearchDocuments, which aggregates chunk hits to document level
//
// Document scores are the mean of the top two chunk similarities, so a
// document backed by several strong chunks outranks one with a single
// marginally better hit.
//
// Failures surface as errors: a wrong-dimension vector or an unreachable
// store never degrades into silently empty results.
package search
