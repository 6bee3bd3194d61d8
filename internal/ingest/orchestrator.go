// Package ingest drives documents through the ingestion pipeline: extract,
// detect structure, chunk, normalize, enrich, embed, store. Documents in a
// batch are independent; one failure never aborts the others.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/cloo-solutions/docpipe/internal/chunking"
	"github.com/cloo-solutions/docpipe/internal/detect"
	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/openai"
	"github.com/cloo-solutions/docpipe/internal/telemetry"
)

// Extractor converts a local file into ordered document elements.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]domain.DocumentElement, error)
}

// EmbeddingClient generates an embedding vector for a chunk of text.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Enricher attaches keywords and a category to a chunk. Enrichment is
// best-effort: failures surface as warnings, not errors.
type Enricher interface {
	Enrich(ctx context.Context, documentID string, chunkIndex int, text string) (domain.ChunkMetadata, []domain.Warning, error)
}

// Config holds orchestration knobs.
type Config struct {
	// WorkerCount bounds how many documents are processed concurrently.
	WorkerCount int
	// MaxRetries caps retry attempts per embedding call.
	MaxRetries int
	// RetryInitialInterval seeds the exponential backoff between retries.
	RetryInitialInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		WorkerCount:          4,
		MaxRetries:           3,
		RetryInitialInterval: 500 * time.Millisecond,
	}
}

// Orchestrator runs the per-document state machine over a batch of sources.
type Orchestrator struct {
	fetcher    Fetcher
	extractor  Extractor
	detector   *detect.Detector
	selector   *chunking.Selector
	normalizer *chunking.Normalizer
	enricher   Enricher
	embedder   EmbeddingClient
	store      RecordStore
	runs       RunStore
	cfg        Config
}

func NewOrchestrator(
	fetcher Fetcher,
	extractor Extractor,
	detector *detect.Detector,
	selector *chunking.Selector,
	normalizer *chunking.Normalizer,
	enricher Enricher,
	embedder EmbeddingClient,
	store RecordStore,
	runs RunStore,
	cfg Config,
) *Orchestrator {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig().WorkerCount
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = DefaultConfig().RetryInitialInterval
	}
	return &Orchestrator{
		fetcher:    fetcher,
		extractor:  extractor,
		detector:   detector,
		selector:   selector,
		normalizer: normalizer,
		enricher:   enricher,
		embedder:   embedder,
		store:      store,
		runs:       runs,
		cfg:        cfg,
	}
}

// Run processes the sources as one batch and reports the run plus the
// per-document outcomes in source order. The returned error covers run
// bookkeeping only; document failures are reported in the results.
func (o *Orchestrator) Run(ctx context.Context, sources []string) (*domain.IngestionRun, []*domain.DocumentResult, error) {
	run, err := o.createRun(ctx, sources)
	if err != nil {
		return nil, nil, err
	}
	results, err := o.process(ctx, run, sources)
	return run, results, err
}

// Start creates the run and processes it in the background, returning
// immediately. Callers poll the run status through the run store.
func (o *Orchestrator) Start(ctx context.Context, sources []string) (*domain.IngestionRun, error) {
	run, err := o.createRun(ctx, sources)
	if err != nil {
		return nil, err
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := o.process(bg, run, sources); err != nil {
			log.Printf("Run %s: background processing error: %v", run.ID, err)
		}
	}()

	return run, nil
}

func (o *Orchestrator) createRun(ctx context.Context, sources []string) (*domain.IngestionRun, error) {
	now := time.Now().UTC()
	run := &domain.IngestionRun{
		ID:        uuid.NewString(),
		Status:    domain.RunStatusRunning,
		TotalDocs: len(sources),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.runs.Create(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (o *Orchestrator) process(ctx context.Context, run *domain.IngestionRun, sources []string) ([]*domain.DocumentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.Run", telemetry.SpanAttributes{
		RunID:     run.ID,
		Operation: "ingest_batch",
	})
	defer span.End()

	log.Printf("Run %s started with %d documents, %d workers", run.ID, len(sources), o.cfg.WorkerCount)

	results := make([]*domain.DocumentResult, len(sources))

	pool, err := ants.NewPool(o.cfg.WorkerCount)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, source := range sources {
		i, source := i, source
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = o.ProcessDocument(ctx, source)
		}
		if err := pool.Submit(task); err != nil {
			// Pool rejected the task; run it inline rather than drop the
			// document.
			task()
		}
	}
	wg.Wait()

	for _, result := range results {
		if err := o.runs.AddDocumentResult(ctx, run.ID, result); err != nil {
			log.Printf("Run %s: failed to record result for %s: %v", run.ID, result.DocumentID, err)
			telemetry.CaptureError(ctx, err)
		}
		if result.Succeeded() {
			run.StoredDocs++
		} else {
			run.FailedDocs++
		}
	}

	run.Status = domain.RunStatusCompleted
	if run.StoredDocs == 0 && run.FailedDocs > 0 {
		run.Status = domain.RunStatusFailed
		run.Error = "no documents reached the vector store"
	}
	run.UpdatedAt = time.Now().UTC()
	if err := o.runs.Finish(ctx, run); err != nil {
		return nil, err
	}

	log.Printf("Run %s finished: %d stored, %d failed", run.ID, run.StoredDocs, run.FailedDocs)
	return results, nil
}

// ProcessDocument walks one source through the full state machine. The
// result's State field records how far the document got.
func (o *Orchestrator) ProcessDocument(ctx context.Context, source string) *domain.DocumentResult {
	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.ProcessDocument", telemetry.SpanAttributes{
		Source:    source,
		Operation: "ingest_document",
	})
	defer span.End()

	result := &domain.DocumentResult{
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
	defer func() { result.FinishedAt = time.Now().UTC() }()

	fail := func(state domain.IngestState, err error) *domain.DocumentResult {
		log.Printf("Document %s failed at %s: %v", source, state, err)
		span.SetError(err)
		if result.DocumentID == "" {
			// Content never became readable; identify the document by its
			// source reference so the run ledger still gets a distinct row.
			result.DocumentID = fingerprintSource(source)
		}
		result.State = domain.StateFailed
		result.Error = err.Error()
		return result
	}

	path, cleanup, err := o.fetcher.Fetch(ctx, source)
	if err != nil {
		return fail(domain.StateExtracted, err)
	}
	defer cleanup()

	documentID, err := fingerprintFile(path)
	if err != nil {
		return fail(domain.StateExtracted, err)
	}
	result.DocumentID = documentID
	span.SetAttributes(telemetry.SpanAttributes{DocumentID: documentID})

	elements, err := o.extractor.Extract(ctx, path)
	if err != nil {
		return fail(domain.StateExtracted, err)
	}
	doc := &domain.Document{ID: documentID, Source: source, Elements: elements}
	if doc.NonEmptyCount() == 0 {
		return fail(domain.StateExtracted, domain.ErrEmptyDocument)
	}
	result.State = domain.StateExtracted

	signal := o.detector.Detect(doc.Elements)
	result.Pattern = signal.Pattern
	result.State = domain.StateDetected

	chunks, fellBack := o.selector.ChunkDocument(doc, signal)
	if fellBack {
		result.Pattern = domain.PatternSemantic
		result.Warnings = append(result.Warnings, domain.Warning{
			Code:       domain.WarnStructuralFallback,
			Message:    "structural strategy produced no chunks, fell back to semantic chunking",
			ChunkIndex: -1,
		})
	}
	result.State = domain.StateChunked

	chunks, warnings, err := o.normalizer.Normalize(doc, chunks)
	if err != nil {
		return fail(domain.StateNormalized, err)
	}
	result.Warnings = append(result.Warnings, warnings...)
	result.State = domain.StateNormalized

	records := make([]domain.EmbeddingRecord, 0, len(chunks))
	for i, chunk := range chunks {
		meta := domain.ChunkMetadata{ChunkIndex: i, DocumentID: documentID}
		if o.enricher != nil {
			var enrichWarnings []domain.Warning
			meta, enrichWarnings, err = o.enricher.Enrich(ctx, documentID, i, chunk.Text)
			if err != nil {
				return fail(domain.StateEnriched, err)
			}
			result.Warnings = append(result.Warnings, enrichWarnings...)
		} else {
			result.Warnings = append(result.Warnings, domain.Warning{
				Code:       domain.WarnEnrichmentUnavailable,
				Message:    "no completion client configured, chunk stored without keywords or category",
				ChunkIndex: i,
			})
		}

		vector, err := o.embedWithRetry(ctx, chunk.Text)
		if err != nil {
			return fail(domain.StateEnriched, fmt.Errorf("chunk %d: %w", i, err))
		}

		records = append(records, domain.EmbeddingRecord{
			ID:       domain.RecordID(documentID, i),
			Text:     chunk.Text,
			Metadata: meta,
			Vector:   vector,
		})
	}
	result.State = domain.StateEnriched
	result.ChunkCount = len(records)

	if err := o.store.StoreRecords(ctx, documentID, records); err != nil {
		return fail(domain.StateStored, err)
	}
	result.State = domain.StateStored

	log.Printf("Document %s stored: pattern=%s chunks=%d warnings=%d", documentID, result.Pattern, result.ChunkCount, len(result.Warnings))
	return result
}

// embedWithRetry retries transient embedding failures with exponential
// backoff. Permanent API errors surface immediately.
func (o *Orchestrator) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.EmbedChunk", telemetry.SpanAttributes{
		Operation: "embed",
	})
	defer span.End()

	var vector []float32
	op := func() error {
		v, err := o.embedder.GenerateEmbedding(ctx, text)
		if err != nil {
			if !openai.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		vector = v
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = o.cfg.RetryInitialInterval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(o.cfg.MaxRetries)), ctx)

	if err := backoff.Retry(op, b); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "embedding failed after retries", err)
	}
	return vector, nil
}
