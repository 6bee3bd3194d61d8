package ingest

import (
	"context"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/repository"
)

// RecordStore persists a document's full chunk set in the vector index.
type RecordStore interface {
	StoreRecords(ctx context.Context, documentID string, records []domain.EmbeddingRecord) error
}

// RunStore persists ingestion runs and per-document outcomes.
type RunStore interface {
	Create(ctx context.Context, run *domain.IngestionRun) error
	Finish(ctx context.Context, run *domain.IngestionRun) error
	AddDocumentResult(ctx context.Context, runID string, result *domain.DocumentResult) error
}

// TxRecordStore writes a document's chunks atomically: stale chunks from a
// previous, longer ingestion of the same document are dropped in the same
// transaction that upserts the new set.
type TxRecordStore struct {
	runner *repository.TxRunner
}

func NewTxRecordStore(runner *repository.TxRunner) *TxRecordStore {
	return &TxRecordStore{runner: runner}
}

func (s *TxRecordStore) StoreRecords(ctx context.Context, documentID string, records []domain.EmbeddingRecord) error {
	err := s.runner.WithTx(ctx, func(repos repository.TxRepositories) error {
		if err := repos.Chunks.DeleteStale(ctx, documentID, len(records)); err != nil {
			return err
		}
		return repos.Chunks.UpsertRecords(ctx, records)
	})
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store chunks for document "+documentID, err)
	}
	return nil
}
