package domain

import "fmt"

// SizeClass classifies a chunk relative to the configured size bounds.
type SizeClass string

const (
	SizeClassUndersized SizeClass = "undersized"
	SizeClassNormal     SizeClass = "normal"
	SizeClassOversized  SizeClass = "oversized"
)

// CharSpan is a half-open byte range [Start, End) into the document's
// joined text.
type CharSpan struct {
	Start int
	End   int
}

// Len returns the span length in bytes.
func (s CharSpan) Len() int {
	return s.End - s.Start
}

// Chunk is a contiguous span of source text destined for one embedding
// call. Chunks are created by a chunking strategy, mutated only by the
// post-processor, and frozen before enrichment.
type Chunk struct {
	Text           string
	Span           CharSpan
	SourceElements []int
	TokenCount     int
	SizeClass      SizeClass

	// HardCut marks a chunk produced by a last-resort character cut when no
	// sentence boundary fit under the token ceiling.
	HardCut bool
}

// ChunkMetadata is attached 1:1 to a finalized chunk and never mutated
// afterwards. Category is empty when classification failed or was skipped.
type ChunkMetadata struct {
	Keywords   []string `json:"keywords"`
	Category   string   `json:"category,omitempty"`
	ChunkIndex int      `json:"chunk_index"`
	DocumentID string   `json:"document_id"`
}

// EmbeddingRecord is the unit persisted to the vector store. Ownership
// passes entirely to the store on write.
type EmbeddingRecord struct {
	ID       string
	Text     string
	Metadata ChunkMetadata
	Vector   []float32
}

// RecordID builds the stable store key for a document chunk. Re-ingesting
// the same document yields the same IDs, which is what makes upserts
// idempotent.
func RecordID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s:%04d", documentID, chunkIndex)
}
