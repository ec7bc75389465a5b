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


// Package queue provides an in-memory FIFO queue for background document
// processing.
//
// Each enqueued task moves a document through the chunk-embed-persist
// pipeline implemented by DocumentProcessor. The queue owns its task
// registry: callers hold task IDs and observe progress through Status and
// Stats rather than sharing task structs.
//
// # Retry policy
//
// Transient failures are retried up to DefaultMaxRetries times with a
// DefaultRetryDelay pause; a retried task rejoins the back of the queue.
// Failures wrapped with Permanent are never retried, which keeps contract
// errors such as a missing document or a wrong-dimension vector from
// burning the retry budget.
//
// # Ordering
//
// With the default single worker the queue processes tasks in strict FIFO
// order. WithWorkers enables concurrent processing at the cost of ordering
// guarantees. The Priority flag on a task is informational only.
package queue
