package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// ChunkRepository persists embedding records keyed by their stable chunk
// id. Upserts overwrite, so re-ingesting a document never duplicates rows.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// UpsertRecords writes the records with store-or-overwrite semantics keyed
// by id.
func (r *ChunkRepository) UpsertRecords(ctx context.Context, records []domain.EmbeddingRecord) error {
	now := time.Now().UTC()
	for _, rec := range records {
		keywords := rec.Metadata.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, document_id, chunk_index, content, keywords, category, embedding, created_at, updated_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $8)
			 ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				keywords = EXCLUDED.keywords,
				category = EXCLUDED.category,
				embedding = EXCLUDED.embedding,
				updated_at = EXCLUDED.updated_at`,
			rec.ID,
			rec.Metadata.DocumentID,
			rec.Metadata.ChunkIndex,
			rec.Text,
			keywords,
			nullableString(rec.Metadata.Category),
			pgvector.NewVector(rec.Vector),
			now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteStale removes chunks of a document at or beyond keepCount. Used
// when re-ingestion yields fewer chunks than a previous run stored.
func (r *ChunkRepository) DeleteStale(ctx context.Context, documentID string, keepCount int) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1 AND chunk_index >= $2`,
		documentID, keepCount,
	)
	return err
}

// CountByDocument returns the number of stored chunks for a document.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}

// UnenrichedChunk is a stored chunk that has no metadata yet.
type UnenrichedChunk struct {
	ID      string
	Content string
}

// ListUnenriched returns chunks stored without keywords or category, oldest
// first. Enrichment is best-effort during ingestion, so chunks can land bare
// when the completion API is unavailable.
func (r *ChunkRepository) ListUnenriched(ctx context.Context, limit int) ([]UnenrichedChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, content FROM document_chunks
		 WHERE keywords = '{}' AND category IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []UnenrichedChunk
	for rows.Next() {
		var c UnenrichedChunk
		if err := rows.Scan(&c.ID, &c.Content); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

// UpdateMetadata sets keywords and category on an already stored chunk.
func (r *ChunkRepository) UpdateMetadata(ctx context.Context, id string, keywords []string, category string) error {
	if keywords == nil {
		keywords = []string{}
	}
	_, err := r.db.Exec(ctx,
		`UPDATE document_chunks
		 SET keywords = $2, category = $3, updated_at = $4
		 WHERE id = $1`,
		id, keywords, nullableString(category), time.Now().UTC(),
	)
	return err
}

// SearchResult is one vector similarity hit over stored chunks.
type SearchResult struct {
	ID         string   `json:"id"`
	DocumentID string   `json:"document_id"`
	ChunkIndex int      `json:"chunk_index"`
	Content    string   `json:"content"`
	Keywords   []string `json:"keywords"`
	Category   string   `json:"category,omitempty"`
	Score      float64  `json:"score"`
}

// Search runs a cosine similarity query over stored chunk embeddings.
func (r *ChunkRepository) Search(ctx context.Context, embedding []float32, limit int) ([]*SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, keywords, category,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM document_chunks
		 ORDER BY score DESC
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*SearchResult, 0, limit)
	for rows.Next() {
		var result SearchResult
		var category *string
		if err := rows.Scan(&result.ID, &result.DocumentID, &result.ChunkIndex, &result.Content, &result.Keywords, &category, &result.Score); err != nil {
			return nil, err
		}
		if category != nil {
			result.Category = *category
		}
		results = append(results, &result)
	}

	return results, rows.Err()
}
