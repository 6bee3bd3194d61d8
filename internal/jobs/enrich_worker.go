package jobs

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/repository"
)

const (
	// DefaultBatchSize limits how many bare chunks one tick picks up.
	DefaultBatchSize = 20
)

// ChunkMetadataStore is the persistence surface the backfill worker needs.
type ChunkMetadataStore interface {
	ListUnenriched(ctx context.Context, limit int) ([]repository.UnenrichedChunk, error)
	UpdateMetadata(ctx context.Context, id string, keywords []string, category string) error
}

// MetadataEnricher produces keywords and a category for a chunk of text.
type MetadataEnricher interface {
	Enrich(ctx context.Context, documentID string, chunkIndex int, text string) (domain.ChunkMetadata, []domain.Warning, error)
}

// EnrichWorker backfills metadata on chunks that were stored bare because
// the completion API was unavailable during ingestion.
type EnrichWorker struct {
	store     ChunkMetadataStore
	enricher  MetadataEnricher
	batchSize int
}

// NewEnrichWorker creates a new EnrichWorker instance
func NewEnrichWorker(store ChunkMetadataStore, enricher MetadataEnricher, batchSize int) *EnrichWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &EnrichWorker{
		store:     store,
		enricher:  enricher,
		batchSize: batchSize,
	}
}

// ProcessBatch implements the Processor interface
func (w *EnrichWorker) ProcessBatch(ctx context.Context) error {
	chunks, err := w.store.ListUnenriched(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list unenriched chunks: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	log.Printf("backfilling metadata for %d chunks", len(chunks))

	for _, chunk := range chunks {
		if err := w.processChunk(ctx, chunk); err != nil {
			log.Printf("error backfilling chunk %s: %v", chunk.ID, err)
		}
	}

	return nil
}

func (w *EnrichWorker) processChunk(ctx context.Context, chunk repository.UnenrichedChunk) error {
	documentID, chunkIndex, err := splitChunkID(chunk.ID)
	if err != nil {
		return err
	}

	meta, warnings, err := w.enricher.Enrich(ctx, documentID, chunkIndex, chunk.Content)
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}
	for _, warn := range warnings {
		log.Printf("chunk %s: %s", chunk.ID, warn.Message)
	}

	// Nothing came back; leave the chunk for a later tick.
	if len(meta.Keywords) == 0 && meta.Category == "" {
		return nil
	}

	if err := w.store.UpdateMetadata(ctx, chunk.ID, meta.Keywords, meta.Category); err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	return nil
}

// splitChunkID reverses the documentID:index record id format.
func splitChunkID(id string) (string, int, error) {
	docID, indexPart, ok := strings.Cut(id, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed chunk id %q", id)
	}
	index, err := strconv.Atoi(indexPart)
	if err != nil {
		return "", 0, fmt.Errorf("malformed chunk index in id %q: %w", id, err)
	}
	return docID, index, nil
}
