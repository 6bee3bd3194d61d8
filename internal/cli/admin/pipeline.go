package admin

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docpipe/internal/chunking"
	"github.com/cloo-solutions/docpipe/internal/config"
	"github.com/cloo-solutions/docpipe/internal/detect"
	"github.com/cloo-solutions/docpipe/internal/enrich"
	"github.com/cloo-solutions/docpipe/internal/extract"
	"github.com/cloo-solutions/docpipe/internal/ingest"
	"github.com/cloo-solutions/docpipe/internal/openai"
	"github.com/cloo-solutions/docpipe/internal/repository"
	"github.com/cloo-solutions/docpipe/internal/storage"
	"github.com/cloo-solutions/docpipe/internal/token"
)

// pipeline bundles everything the serve and ingest commands wire up.
type pipeline struct {
	orchestrator *ingest.Orchestrator
	client       *openai.Client
	enricher     *enrich.Enricher
	chunks       *repository.ChunkRepository
	runs         *repository.RunRepository
}

// buildPipeline assembles the ingestion pipeline from configuration. The
// tokenizer is loaded eagerly: without it the token ceiling cannot be
// enforced, so startup fails rather than ingestion.
func buildPipeline(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*pipeline, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	counter, err := token.NewCounter(token.DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	var remote ingest.Fetcher
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		remote = s3Client
	}

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
	})

	chunkCfg := chunking.Config{
		MaxChunkSize:       cfg.MaxChunkSize,
		MinChunkSize:       cfg.MinChunkSize,
		Overlap:            cfg.ChunkOverlap,
		MaxEmbeddingTokens: cfg.MaxEmbeddingTokens,
	}

	detector := detect.NewDetector(detect.Thresholds{
		ClauseFraction:   cfg.ClauseFraction,
		TitleFraction:    cfg.TitleFraction,
		QAMinPairs:       cfg.QAMinPairs,
		NumberedFraction: cfg.NumberedFraction,
	})

	enricher := enrich.NewEnricher(client, enrich.Config{
		Categories:   cfg.Categories(),
		KeywordLimit: cfg.KeywordLimit,
	})

	chunks := repository.NewChunkRepository(pool)
	runs := repository.NewRunRepository(pool)

	orchestrator := ingest.NewOrchestrator(
		ingest.NewSourceRouter(remote),
		extract.NewExtractor(),
		detector,
		chunking.NewSelector(chunkCfg),
		chunking.NewNormalizer(counter, chunkCfg),
		enricher,
		client,
		ingest.NewTxRecordStore(repository.NewTxRunner(pool)),
		runs,
		ingest.Config{
			WorkerCount:          cfg.WorkerCount,
			MaxRetries:           cfg.MaxRetries,
			RetryInitialInterval: time.Duration(cfg.RetryInitialMS) * time.Millisecond,
		},
	)

	return &pipeline{
		orchestrator: orchestrator,
		client:       client,
		enricher:     enricher,
		chunks:       chunks,
		runs:         runs,
	}, nil
}
