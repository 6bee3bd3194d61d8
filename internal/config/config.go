package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docpipe-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	// Chunk size bounds are in characters; the embedding ceiling is in
	// tokens of the embedding model's tokenizer.
	MaxChunkSize       int `envconfig:"MAX_CHUNK_SIZE" default:"1200"`
	MinChunkSize       int `envconfig:"MIN_CHUNK_SIZE" default:"200"`
	ChunkOverlap       int `envconfig:"CHUNK_OVERLAP" default:"200"`
	MaxEmbeddingTokens int `envconfig:"MAX_EMBEDDING_TOKENS" default:"8000"`

	// Structure detection thresholds.
	ClauseFraction   float64 `envconfig:"CLAUSE_FRACTION" default:"0.15"`
	TitleFraction    float64 `envconfig:"TITLE_FRACTION" default:"0.25"`
	QAMinPairs       int     `envconfig:"QA_MIN_PAIRS" default:"3"`
	NumberedFraction float64 `envconfig:"NUMBERED_FRACTION" default:"0.30"`

	// CategoryList is the closed set of categories the enricher may assign,
	// comma separated. Empty disables classification.
	CategoryList string `envconfig:"CATEGORY_LIST"`
	KeywordLimit int    `envconfig:"KEYWORD_LIMIT" default:"5"`

	WorkerCount    int `envconfig:"WORKER_COUNT" default:"4"`
	MaxRetries     int `envconfig:"MAX_RETRIES" default:"3"`
	RetryInitialMS int `envconfig:"RETRY_INITIAL_MS" default:"500"`

	// BackfillIntervalS is how often the metadata backfill worker scans for
	// chunks stored without keywords or category. Zero disables it.
	BackfillIntervalS int `envconfig:"BACKFILL_INTERVAL_S" default:"60"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCPIPE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.MinChunkSize >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("MIN_CHUNK_SIZE (%d) must be below MAX_CHUNK_SIZE (%d)", cfg.MinChunkSize, cfg.MaxChunkSize)
	}
	if cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be below MAX_CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.MaxChunkSize)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// Categories parses CategoryList into its canonical entries.
func (c *Config) Categories() []string {
	if strings.TrimSpace(c.CategoryList) == "" {
		return nil
	}
	var categories []string
	for _, part := range strings.Split(c.CategoryList, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			categories = append(categories, trimmed)
		}
	}
	return categories
}
