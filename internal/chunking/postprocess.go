package chunking

import (
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// TokenCounter counts and truncates text against the embedding model's
// tokenizer.
type TokenCounter interface {
	Count(text string) int
	Fits(text string, maxTokens int) bool
	Truncate(text string, maxTokens int) string
}

// Normalizer enforces the chunk size bounds: undersized chunks merge
// forward into their successor, chunks over the embedding token ceiling are
// split at sentence boundaries (hard character cut as last resort), and the
// result is re-indexed in document order with size classes recomputed.
type Normalizer struct {
	counter TokenCounter
	cfg     Config
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(counter TokenCounter, cfg Config) *Normalizer {
	if cfg.MaxChunkSize <= 0 {
		cfg = DefaultConfig()
	}
	return &Normalizer{counter: counter, cfg: cfg}
}

// Normalize applies the merge and split passes. The span coverage of the
// input is preserved: merging joins adjacent spans, splitting partitions a
// span exactly. No chunk is ever dropped for being small; an undersized
// final chunk stays as-is with a warning.
func (n *Normalizer) Normalize(doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, []domain.Warning, error) {
	if len(chunks) == 0 {
		return nil, nil, nil
	}

	joined := doc.JoinedText()
	offsets := doc.ElementOffsets()

	// Merge pass: undersized chunks absorb the following chunk, never the
	// preceding one, to preserve forward reading continuity.
	merged := make([]domain.Chunk, 0, len(chunks))
	i := 0
	for i < len(chunks) {
		current := chunks[i]
		for utf8.RuneCountInString(current.Text) < n.cfg.MinChunkSize && i+1 < len(chunks) {
			current = mergeChunks(joined, doc, offsets, current, chunks[i+1])
			i++
		}
		merged = append(merged, current)
		i++
	}

	// Split pass: recursive sentence-boundary splits under the token ceiling.
	normalized := make([]domain.Chunk, 0, len(merged))
	for _, chunk := range merged {
		parts, err := n.split(doc, offsets, chunk)
		if err != nil {
			return nil, nil, err
		}
		normalized = append(normalized, parts...)
	}

	var warnings []domain.Warning
	for idx := range normalized {
		normalized[idx].SizeClass = n.classify(normalized[idx].Text)
		if normalized[idx].HardCut {
			warnings = append(warnings, domain.Warning{
				Code:       domain.WarnHardCut,
				Message:    "no sentence boundary under the token ceiling, applied a hard character cut",
				ChunkIndex: idx,
			})
		}
	}

	last := len(normalized) - 1
	if normalized[last].SizeClass == domain.SizeClassUndersized {
		warnings = append(warnings, domain.Warning{
			Code:       domain.WarnUndersizedLastChunk,
			Message:    "final chunk is below the minimum size and was kept unmerged",
			ChunkIndex: last,
		})
	}

	return normalized, warnings, nil
}

func (n *Normalizer) classify(text string) domain.SizeClass {
	length := utf8.RuneCountInString(text)
	switch {
	case length < n.cfg.MinChunkSize:
		return domain.SizeClassUndersized
	case length > n.cfg.MaxChunkSize:
		return domain.SizeClassOversized
	default:
		return domain.SizeClassNormal
	}
}

// split partitions a chunk until every part fits under the token ceiling.
// The split point is the last sentence boundary whose prefix still fits;
// when no boundary fits, the tokenizer-aligned truncation point is used and
// the piece is flagged as a hard cut.
func (n *Normalizer) split(doc *domain.Document, offsets []int, chunk domain.Chunk) ([]domain.Chunk, error) {
	count := n.counter.Count(chunk.Text)
	if count <= n.cfg.MaxEmbeddingTokens {
		chunk.TokenCount = count
		return []domain.Chunk{chunk}, nil
	}

	cut := 0
	boundaries := sentenceBoundaries(chunk.Text)
	for _, b := range boundaries {
		if !n.counter.Fits(chunk.Text[:b], n.cfg.MaxEmbeddingTokens) {
			break
		}
		cut = b
	}

	hardCut := false
	if cut == 0 {
		prefix := n.counter.Truncate(chunk.Text, n.cfg.MaxEmbeddingTokens)
		cut = len(prefix)
		hardCut = true
	}
	if cut <= 0 || cut >= len(chunk.Text) {
		return nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeEmbedding,
			fmt.Sprintf("cannot split %d-token chunk under ceiling %d", count, n.cfg.MaxEmbeddingTokens),
			domain.ErrChunkOverBudget,
		)
	}

	left := domain.Chunk{
		Text:           chunk.Text[:cut],
		Span:           domain.CharSpan{Start: chunk.Span.Start, End: chunk.Span.Start + cut},
		SourceElements: elementsInSpan(doc, offsets, chunk.Span.Start, chunk.Span.Start+cut),
		TokenCount:     n.counter.Count(chunk.Text[:cut]),
		HardCut:        hardCut,
	}

	right := domain.Chunk{
		Text:           chunk.Text[cut:],
		Span:           domain.CharSpan{Start: chunk.Span.Start + cut, End: chunk.Span.End},
		SourceElements: elementsInSpan(doc, offsets, chunk.Span.Start+cut, chunk.Span.End),
	}

	rest, err := n.split(doc, offsets, right)
	if err != nil {
		return nil, err
	}

	return append([]domain.Chunk{left}, rest...), nil
}

// mergeChunks joins two adjacent chunks into one spanning both. The text is
// re-read from the joined document text so overlapping spans merge cleanly.
func mergeChunks(joined string, doc *domain.Document, offsets []int, a, b domain.Chunk) domain.Chunk {
	span := domain.CharSpan{Start: a.Span.Start, End: b.Span.End}
	return domain.Chunk{
		Text:           joined[span.Start:span.End],
		Span:           span,
		SourceElements: elementsInSpan(doc, offsets, span.Start, span.End),
	}
}

// sentenceBoundaries returns ascending byte positions inside text that fall
// just after a sentence terminator or a newline. Positions 0 and len(text)
// are never returned.
func sentenceBoundaries(text string) []int {
	var bounds []int
	prevTerminator := false
	for i, r := range text {
		if r == '\n' {
			bounds = append(bounds, i+1)
			prevTerminator = false
			continue
		}
		if prevTerminator && unicode.IsSpace(r) {
			bounds = append(bounds, i+utf8.RuneLen(r))
		}
		prevTerminator = isSentenceTerminator(r)
	}

	sort.Ints(bounds)
	deduped := bounds[:0]
	for idx, b := range bounds {
		if b >= len(text) {
			continue
		}
		if idx > 0 && len(deduped) > 0 && deduped[len(deduped)-1] == b {
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

func isSentenceTerminator(r rune) bool {
	switch r {
	case '.', '?', '!', '。', '？', '！':
		return true
	default:
		return false
	}
}

// ValidateSpans checks the coverage invariant: sorted by start, chunk spans
// must cover [0, len(text)) with no gaps, and may overlap only when
// allowOverlap is set. Each chunk's text must match its span.
func ValidateSpans(text string, chunks []domain.Chunk, allowOverlap bool) error {
	if len(chunks) == 0 {
		if len(text) == 0 {
			return nil
		}
		return domain.ErrInvalidSpan
	}

	sorted := append([]domain.Chunk(nil), chunks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Span.Start < sorted[j].Span.Start })

	if sorted[0].Span.Start != 0 {
		return fmt.Errorf("span coverage starts at %d, not 0: %w", sorted[0].Span.Start, domain.ErrInvalidSpan)
	}

	covered := 0
	for _, c := range sorted {
		if c.Text != text[c.Span.Start:c.Span.End] {
			return fmt.Errorf("chunk text diverges from span [%d,%d): %w", c.Span.Start, c.Span.End, domain.ErrInvalidSpan)
		}
		if c.Span.Start > covered {
			return fmt.Errorf("gap before offset %d: %w", c.Span.Start, domain.ErrInvalidSpan)
		}
		if c.Span.Start < covered && !allowOverlap {
			return fmt.Errorf("overlap at offset %d: %w", c.Span.Start, domain.ErrInvalidSpan)
		}
		if c.Span.End > covered {
			covered = c.Span.End
		}
	}

	if covered != len(text) {
		return fmt.Errorf("span coverage ends at %d, not %d: %w", covered, len(text), domain.ErrInvalidSpan)
	}
	return nil
}
