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


package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for the embedding service.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "all-minilm", "text-embedding-3-small"
	EmbeddingModel string

	// Dimension is the expected embedding vector length. Vectors of any
	// other length are rejected by the storage layer.
	// Default: 384 (all-minilm)
	Dimension int

	// MaxTextLength is the character limit applied before embedding.
	// Longer text is truncated with a logged warning rather than rejected.
	// Default: 2000
	MaxTextLength int

	// BatchSize is the number of texts processed per batch during bulk
	// embedding. Default: 5
	BatchSize int

	// ItemDelay is the pause between consecutive embeddings within a batch.
	// Together with BatchDelay it throttles bulk embedding to bound peak
	// memory and CPU on resource-constrained hosts. Default: 100ms
	ItemDelay time.Duration

	// BatchDelay is the pause between batches. Default: 500ms
	BatchDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithDimension sets the expected embedding vector length.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithMaxTextLength sets the truncation limit in characters.
func WithMaxTextLength(chars int) ConfigOption {
	return func(c *Config) {
		c.MaxTextLength = chars
	}
}

// WithBatchSize sets the bulk embedding batch size.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithThrottle sets the inter-item and inter-batch delays for bulk embedding.
func WithThrottle(itemDelay, batchDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.ItemDelay = itemDelay
		c.BatchDelay = batchDelay
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "all-minilm",
		Dimension:      384,
		MaxTextLength:  2000,
		BatchSize:      5,
		ItemDelay:      100 * time.Millisecond,
		BatchDelay:     500 * time.Millisecond,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),
//	    ai.WithModel("all-minilm"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to the host if missing, which is
// required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.Dimension <= 0 {
		return errors.New("ai config: Dimension must be positive")
	}
	if c.MaxTextLength <= 0 {
		return errors.New("ai config: MaxTextLength must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("ai config: BatchSize must be positive")
	}
	if c.ItemDelay < 0 || c.BatchDelay < 0 {
		return errors.New("ai config: throttle delays cannot be negative")
	}
	return nil
}
