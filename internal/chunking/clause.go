package chunking

import (
	"github.com/cloo-solutions/docpipe/internal/detect"
	"github.com/cloo-solutions/docpipe/internal/domain"
)

// ClauseStrategy groups the elements between successive clause or article
// markers into one chunk per clause. Text before the first marker becomes a
// preamble chunk so nothing is lost.
type ClauseStrategy struct{}

func (s *ClauseStrategy) Pattern() domain.StructurePattern {
	return domain.PatternClauseBased
}

func (s *ClauseStrategy) Chunk(doc *domain.Document) []domain.Chunk {
	var groups [][]int
	var current []int

	for i, el := range doc.Elements {
		if detect.HasClauseMarker(el.Text) && len(current) > 0 {
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
