package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"movie-recommender/internal/validation"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Neo4jURI            string        `validate:"required"`
	Neo4jUser           string        `validate:"required"`
	Neo4jPassword       string
	Neo4jDatabase       string
	Neo4jMaxPoolSize    int           `validate:"min=1"`
	Neo4jConnectTimeout time.Duration `validate:"gt=0"`

	// DatabaseURL is optional. When set, ingestion checkpoints are persisted
	// in PostgreSQL so that a failed run can be resumed from another process.
	DatabaseURL string

	MovieBatchSize  int `validate:"min=1"`
	RatingBatchSize int `validate:"min=1"`
	WriterCount     int `validate:"min=1,max=64"`
	ReconcileGenres bool

	RecommendLimit int           `validate:"min=1,max=1000"`
	PassTimeout    time.Duration `validate:"gt=0"`

	SimilarityCutoff float64 `validate:"gte=0,lte=1"`
	SimilarityTopK   int     `validate:"min=1"`
	ProjectionName   string  `validate:"required"`

	HTTPAddr string `validate:"required"`
	LogLevel string `validate:"oneof=trace debug info warn error"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	return &Config{
		Neo4jURI:            getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:           getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:       getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:       getEnv("NEO4J_DATABASE", ""),
		Neo4jMaxPoolSize:    getEnvInt("NEO4J_MAX_POOL_SIZE", 50),
		Neo4jConnectTimeout: getEnvDuration("NEO4J_CONNECT_TIMEOUT", 10*time.Second),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		MovieBatchSize:      getEnvInt("MOVIE_BATCH_SIZE", 1000),
		RatingBatchSize:     getEnvInt("RATING_BATCH_SIZE", 10000),
		WriterCount:         getEnvInt("WRITER_COUNT", 1),
		ReconcileGenres:     getEnvBool("RECONCILE_GENRES", false),
		RecommendLimit:      getEnvInt("RECOMMEND_LIMIT", 10),
		PassTimeout:         getEnvDuration("PASS_TIMEOUT", 5*time.Second),
		SimilarityCutoff:    getEnvFloat("SIMILARITY_CUTOFF", 0.1),
		SimilarityTopK:      getEnvInt("SIMILARITY_TOP_K", 10),
		ProjectionName:      getEnv("PROJECTION_NAME", "movieGenres"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate checks the loaded values before any connection is opened.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer, using default")
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid number, using default")
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getEnvDuration accepts Go durations ("5s") and plain seconds ("5").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
	return fallback
}
