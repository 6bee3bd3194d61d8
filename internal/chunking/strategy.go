// Package chunking turns a document's extracted elements into
// retrieval-ready chunks: five structural strategies, selection by detected
// pattern with a semantic fallback, and a post-processor that enforces the
// configured size bounds and the embedding token ceiling.
package chunking

import (
	"strings"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// Config controls chunk sizing. Sizes and overlap are in runes; the token
// ceiling is in tokens of the embedding model's tokenizer.
type Config struct {
	MaxChunkSize       int
	MinChunkSize       int
	Overlap            int
	MaxEmbeddingTokens int
}

// DefaultConfig provides sane defaults for chunking.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize:       1200,
		MinChunkSize:       200,
		Overlap:            200,
		MaxEmbeddingTokens: 8000,
	}
}

// Strategy produces ordered chunks from a document's elements. All
// strategies cut on element boundaries except the semantic fallback, which
// may split inside a long element's text.
type Strategy interface {
	Pattern() domain.StructurePattern
	Chunk(doc *domain.Document) []domain.Chunk
}

// Selector maps a detected structure pattern to its strategy, in the fixed
// priority order of the detector.
type Selector struct {
	cfg        Config
	strategies map[domain.StructurePattern]Strategy
	fallback   Strategy
}

// NewSelector creates a Selector over the closed strategy set.
func NewSelector(cfg Config) *Selector {
	if cfg.MaxChunkSize <= 0 {
		cfg = DefaultConfig()
	}
	fallback := &SemanticStrategy{cfg: cfg}
	return &Selector{
		cfg: cfg,
		strategies: map[domain.StructurePattern]Strategy{
			domain.PatternClauseBased: &ClauseStrategy{},
			domain.PatternTitleBased:  &TitleStrategy{},
			domain.PatternQandA:       &QAStrategy{},
			domain.PatternNumbered:    &NumberedStrategy{},
			domain.PatternSemantic:    fallback,
		},
		fallback: fallback,
	}
}

// ForPattern returns the strategy for a pattern, or the semantic fallback
// for unknown patterns.
func (s *Selector) ForPattern(pattern domain.StructurePattern) Strategy {
	if strategy, ok := s.strategies[pattern]; ok {
		return strategy
	}
	return s.fallback
}

// ChunkDocument runs the strategy selected by the signal and falls back to
// the semantic strategy when the primary produces zero chunks. Structural
// detection must never leave a non-empty document unchunked. The returned
// bool reports whether the fallback was used.
func (s *Selector) ChunkDocument(doc *domain.Document, signal domain.StructureSignal) ([]domain.Chunk, bool) {
	primary := s.ForPattern(signal.Pattern)
	chunks := primary.Chunk(doc)
	if len(chunks) > 0 || primary.Pattern() == domain.PatternSemantic {
		return chunks, false
	}
	return s.fallback.Chunk(doc), true
}

// buildStructuralChunks turns ordered groups of element indices into chunks
// that tile the joined document text exactly: each chunk's span runs from
// its first element to the start of the next group (or the end of text), so
// the union of spans has no gaps and no overlap. Groups whose combined text
// is blank are dropped; their text rides along in the preceding span.
func buildStructuralChunks(doc *domain.Document, groups [][]int) []domain.Chunk {
	joined := doc.JoinedText()
	offsets := doc.ElementOffsets()

	kept := make([][]int, 0, len(groups))
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		blank := true
		for _, idx := range group {
			if strings.TrimSpace(doc.Elements[idx].Text) != "" {
				blank = false
				break
			}
		}
		if !blank {
			kept = append(kept, group)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(kept))
	for i, group := range kept {
		start := offsets[group[0]]
		if i == 0 {
			start = 0
		}
		end := len(joined)
		if i+1 < len(kept) {
			end = offsets[kept[i+1][0]]
		}

		chunks = append(chunks, domain.Chunk{
			Text:           joined[start:end],
			Span:           domain.CharSpan{Start: start, End: end},
			SourceElements: append([]int(nil), group...),
		})
	}

	return chunks
}
