package chunking

import (
	"github.com/cloo-solutions/docpipe/internal/detect"
	"github.com/cloo-solutions/docpipe/internal/domain"
)

// NumberedStrategy splits at each top-level numbered marker. Lettered and
// circled sub-items nest inside the parent chunk rather than splitting
// further.
type NumberedStrategy struct{}

func (s *NumberedStrategy) Pattern() domain.StructurePattern {
	return domain.PatternNumbered
}

func (s *NumberedStrategy) Chunk(doc *domain.Document) []domain.Chunk {
	var groups [][]int
	var current []int

	for i, el := range doc.Elements {
		topLevel := detect.HasNumberedMarker(el.Text) && !detect.HasSubItemMarker(el.Text)
		if topLevel && len(current) > 0 {
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
