package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/pagination"
)

// RunRepository persists ingestion runs and their per-document outcomes.
type RunRepository struct {
	db dbtx
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: pool}
}

func NewRunRepositoryWithTx(tx pgx.Tx) *RunRepository {
	return &RunRepository{db: tx}
}

func (r *RunRepository) Create(ctx context.Context, run *domain.IngestionRun) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ingestion_runs (id, status, total_docs, stored_docs, failed_docs, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Status, run.TotalDocs, run.StoredDocs, run.FailedDocs,
		nullableString(run.Error), run.CreatedAt, run.UpdatedAt,
	)
	return err
}

// Finish records the run's terminal status and document tallies.
func (r *RunRepository) Finish(ctx context.Context, run *domain.IngestionRun) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_runs
		 SET status = $1, stored_docs = $2, failed_docs = $3, error = $4, updated_at = $5
		 WHERE id = $6`,
		run.Status, run.StoredDocs, run.FailedDocs, nullableString(run.Error),
		time.Now().UTC(), run.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

// AddDocumentResult stores one document's outcome under its run. Warnings
// are kept as JSONB so the full diagnostic detail survives the run.
func (r *RunRepository) AddDocumentResult(ctx context.Context, runID string, result *domain.DocumentResult) error {
	var warnings []byte
	if len(result.Warnings) > 0 {
		var err error
		warnings, err = json.Marshal(result.Warnings)
		if err != nil {
			return err
		}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO run_documents
			(run_id, document_id, source, state, pattern, chunk_count, warnings, error, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (run_id, document_id) DO UPDATE SET
			state = EXCLUDED.state,
			pattern = EXCLUDED.pattern,
			chunk_count = EXCLUDED.chunk_count,
			warnings = EXCLUDED.warnings,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at`,
		runID, result.DocumentID, result.Source, result.State,
		nullableString(string(result.Pattern)), result.ChunkCount,
		warnings, nullableString(result.Error), result.StartedAt, result.FinishedAt,
	)
	return err
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.IngestionRun, error) {
	var run domain.IngestionRun
	var errMsg pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, status, total_docs, stored_docs, failed_docs, error, created_at, updated_at
		 FROM ingestion_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Status, &run.TotalDocs, &run.StoredDocs, &run.FailedDocs, &errMsg, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return &run, nil
}

// ListDocuments returns the per-document outcomes of a run in start order.
func (r *RunRepository) ListDocuments(ctx context.Context, runID string) ([]*domain.DocumentResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT document_id, source, state, pattern, chunk_count, warnings, error, started_at, finished_at
		 FROM run_documents
		 WHERE run_id = $1
		 ORDER BY started_at ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.DocumentResult
	for rows.Next() {
		var result domain.DocumentResult
		var pattern, errMsg pgtype.Text
		var warnings []byte
		if err := rows.Scan(&result.DocumentID, &result.Source, &result.State, &pattern, &result.ChunkCount, &warnings, &errMsg, &result.StartedAt, &result.FinishedAt); err != nil {
			return nil, err
		}
		if pattern.Valid {
			result.Pattern = domain.StructurePattern(pattern.String)
		}
		if errMsg.Valid {
			result.Error = errMsg.String
		}
		if len(warnings) > 0 {
			if err := json.Unmarshal(warnings, &result.Warnings); err != nil {
				return nil, err
			}
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

// List returns runs newest first using cursor pagination.
func (r *RunRepository) List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*domain.IngestionRun], error) {
	if limit <= 0 {
		limit = 20
	}

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if decoded != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, status, total_docs, stored_docs, failed_docs, error, created_at, updated_at
			 FROM ingestion_runs
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			decoded.Timestamp, decoded.LastID, limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, status, total_docs, stored_docs, failed_docs, error, created_at, updated_at
			 FROM ingestion_runs
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.IngestionRun, 0, limit)
	for rows.Next() {
		var run domain.IngestionRun
		var errMsg pgtype.Text
		if err := rows.Scan(&run.ID, &run.Status, &run.TotalDocs, &run.StoredDocs, &run.FailedDocs, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	next := pagination.CreateNextCursor(runs, limit,
		func(run *domain.IngestionRun) string { return run.ID },
		func(run *domain.IngestionRun) time.Time { return run.CreatedAt },
	)

	return &pagination.PageResult[*domain.IngestionRun]{
		Items:   runs,
		Cursor:  next,
		HasMore: next != "",
	}, nil
}
