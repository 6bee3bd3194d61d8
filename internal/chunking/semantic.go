package chunking

import (
	"unicode"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// SemanticStrategy is the structural fallback: a sliding window of
// MaxChunkSize runes over the joined document text, carrying Overlap runes
// of trailing context into the next window. It is the only strategy whose
// spans intentionally overlap, and the only one allowed to split inside an
// element's text.
type SemanticStrategy struct {
	cfg Config
}

// NewSemanticStrategy creates the fallback strategy with the given sizing.
func NewSemanticStrategy(cfg Config) *SemanticStrategy {
	if cfg.MaxChunkSize <= 0 {
		cfg = DefaultConfig()
	}
	return &SemanticStrategy{cfg: cfg}
}

func (s *SemanticStrategy) Pattern() domain.StructurePattern {
	return domain.PatternSemantic
}

func (s *SemanticStrategy) Chunk(doc *domain.Document) []domain.Chunk {
	joined := doc.JoinedText()
	if len(joined) == 0 {
		return nil
	}

	runes := []rune(joined)
	// bytePos[i] is the byte offset of rune i; bytePos[len(runes)] == len(joined).
	bytePos := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		bytePos[i] = pos
		pos += len(string(r))
	}
	bytePos[len(runes)] = pos

	offsets := doc.ElementOffsets()

	if len(runes) <= s.cfg.MaxChunkSize {
		return []domain.Chunk{{
			Text:           joined,
			Span:           domain.CharSpan{Start: 0, End: len(joined)},
			SourceElements: elementsInSpan(doc, offsets, 0, len(joined)),
		}}
	}

	chunks := make([]domain.Chunk, 0, 8)
	start := 0
	for start < len(runes) {
		end := start + s.cfg.MaxChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		// Prefer a whitespace-aligned cut so windows do not split words,
		// but never shrink below the configured minimum.
		if end < len(runes) {
			cut := end
			minCut := start + s.cfg.MinChunkSize
			if minCut > end {
				minCut = start
			}
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		if end <= start {
			break
		}

		startByte := bytePos[start]
		endByte := bytePos[end]
		chunks = append(chunks, domain.Chunk{
			Text:           joined[startByte:endByte],
			Span:           domain.CharSpan{Start: startByte, End: endByte},
			SourceElements: elementsInSpan(doc, offsets, startByte, endByte),
		})

		if end >= len(runes) {
			break
		}

		nextStart := end
		if s.cfg.Overlap > 0 && end-start > s.cfg.Overlap {
			nextStart = end - s.cfg.Overlap
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

// elementsInSpan returns the indices of elements whose text overlaps the
// byte range [start, end) of the joined text.
func elementsInSpan(doc *domain.Document, offsets []int, start, end int) []int {
	var indices []int
	for i, el := range doc.Elements {
		elStart := offsets[i]
		elEnd := elStart + len(el.Text)
		if elStart < end && elEnd > start {
			indices = append(indices, i)
		}
	}
	return indices
}
