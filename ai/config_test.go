package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 384, cfg.Dimension)
	assert.Equal(t, 2000, cfg.MaxTextLength)
	assert.Equal(t, 5, cfg.BatchSize)
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://embed.internal:9100"),
		WithModel("text-embedding-3-small"),
		WithDimension(1536),
		WithMaxTextLength(4000),
		WithBatchSize(16),
		WithThrottle(10*time.Millisecond, 50*time.Millisecond),
	)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://embed.internal:9100/v1", cfg.EmbeddingHost)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 1536, cfg.Dimension)
	assert.Equal(t, 4000, cfg.MaxTextLength)
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.ItemDelay)
	assert.Equal(t, 50*time.Millisecond, cfg.BatchDelay)
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"adds v1 suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trims trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"keeps existing v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"empty left alone", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.EmbeddingHost = tt.host
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing host", func(c *Config) { c.EmbeddingHost = "" }},
		{"missing model", func(c *Config) { c.EmbeddingModel = "" }},
		{"zero dimension", func(c *Config) { c.Dimension = 0 }},
		{"negative dimension", func(c *Config) { c.Dimension = -1 }},
		{"zero max text length", func(c *Config) { c.MaxTextLength = 0 }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"negative delay", func(c *Config) { c.ItemDelay = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
