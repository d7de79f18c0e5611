package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI)
	assert.Equal(t, 1000, cfg.MovieBatchSize)
	assert.Equal(t, 10000, cfg.RatingBatchSize)
	assert.Equal(t, 1, cfg.WriterCount)
	assert.Equal(t, 10, cfg.RecommendLimit)
	assert.Equal(t, 5*time.Second, cfg.PassTimeout)
	assert.InDelta(t, 0.1, cfg.SimilarityCutoff, 1e-9)
	assert.False(t, cfg.ReconcileGenres)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MOVIE_BATCH_SIZE", "250")
	t.Setenv("RATING_BATCH_SIZE", "not-a-number")
	t.Setenv("PASS_TIMEOUT", "3")
	t.Setenv("NEO4J_CONNECT_TIMEOUT", "1500ms")
	t.Setenv("SIMILARITY_CUTOFF", "0.25")
	t.Setenv("RECONCILE_GENRES", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()

	assert.Equal(t, 250, cfg.MovieBatchSize)
	assert.Equal(t, 10000, cfg.RatingBatchSize, "invalid values fall back to defaults")
	assert.Equal(t, 3*time.Second, cfg.PassTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Neo4jConnectTimeout)
	assert.InDelta(t, 0.25, cfg.SimilarityCutoff, 1e-9)
	assert.True(t, cfg.ReconcileGenres)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero batch size", mutate: func(c *Config) { c.MovieBatchSize = 0 }},
		{name: "cutoff above one", mutate: func(c *Config) { c.SimilarityCutoff = 1.5 }},
		{name: "missing uri", mutate: func(c *Config) { c.Neo4jURI = "" }},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "no writers", mutate: func(c *Config) { c.WriterCount = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
