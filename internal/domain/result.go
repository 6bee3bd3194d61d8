package domain

import "time"

// IngestState tracks a document through the ingestion state machine.
type IngestState string

const (
	StateExtracted  IngestState = "extracted"
	StateDetected   IngestState = "detected"
	StateChunked    IngestState = "chunked"
	StateNormalized IngestState = "normalized"
	StateEnriched   IngestState = "enriched"
	StateStored     IngestState = "stored"
	StateFailed     IngestState = "failed"
)

// Warning codes attached to a document result for stage-local recoverable
// issues. Warnings never fail a document.
const (
	WarnKeywordsUnavailable   = "keywords_unavailable"
	WarnCategoryMismatch      = "category_mismatch"
	WarnHardCut               = "hard_cut"
	WarnUndersizedLastChunk   = "undersized_last_chunk"
	WarnStructuralFallback    = "structural_fallback"
	WarnEnrichmentUnavailable = "enrichment_unavailable"
)

// Warning records a recoverable issue encountered while processing a
// document. ChunkIndex is -1 when the warning is not chunk specific.
type Warning struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	ChunkIndex int    `json:"chunk_index"`
}

// DocumentResult is the per-document outcome reported for a batch run.
type DocumentResult struct {
	DocumentID string           `json:"document_id"`
	Source     string           `json:"source"`
	State      IngestState      `json:"state"`
	Pattern    StructurePattern `json:"pattern,omitempty"`
	ChunkCount int              `json:"chunk_count"`
	Warnings   []Warning        `json:"warnings,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Succeeded reports whether the document reached the vector store.
func (r *DocumentResult) Succeeded() bool {
	return r.State == StateStored
}

// RunStatus is the lifecycle of a batch ingestion run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IngestionRun is one batch ingestion invocation over a set of documents.
type IngestionRun struct {
	ID         string    `json:"id"`
	Status     RunStatus `json:"status"`
	TotalDocs  int       `json:"total_docs"`
	StoredDocs int       `json:"stored_docs"`
	FailedDocs int       `json:"failed_docs"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
