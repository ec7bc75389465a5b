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


// Package reembed regenerates embeddings for every stored chunk.
//
// Mixing vectors from different embedding models in one search space
// produces meaningless similarity scores, so changing the model requires
// reprocessing the whole corpus. The Reembedder streams chunks in batches,
// embeds them with exponential-backoff retry, normalizes the vectors, and
// upserts the results in place. Progress is reported to an io.Writer.
package reembed
