package chunking

import (
	"github.com/cloo-solutions/docpipe/internal/detect"
	"github.com/cloo-solutions/docpipe/internal/domain"
)

// QAStrategy pairs each question lead with the contiguous answer elements
// that follow it, up to the next question. One chunk per Q&A pair; elements
// before the first question form a preamble chunk.
type QAStrategy struct{}

func (s *QAStrategy) Pattern() domain.StructurePattern {
	return domain.PatternQandA
}

func (s *QAStrategy) Chunk(doc *domain.Document) []domain.Chunk {
	var groups [][]int
	var current []int

	for i, el := range doc.Elements {
		if detect.IsQuestionLead(el.Text) && len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, i)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}

	return buildStructuralChunks(doc, groups)
}
