package chunking

import (
	"github.com/cloo-solutions/docpipe/internal/domain"
)

// TitleStrategy starts a new chunk at every Title-typed element and
// accumulates the non-title elements that follow until the next title.
type TitleStrategy struct{}

func (s *TitleStrategy) Pattern() domain.StructurePattern {
	return domain.PatternTitleBased
}

func (s *TitleStrategy) Chunk(doc *domain.Document) []domain.Chunk {
	var groups [][]int
	var current []int

	for i, el := range doc.Elements {
		if el.Type == domain.ElementTypeTitle && len(current) > 0 {
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
