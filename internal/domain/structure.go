package domain

// StructurePattern is the dominant organizational convention detected in a
// document. Patterns are ordered by detection priority: earlier patterns are
// stronger structural cues and win ties regardless of confidence magnitude.
type StructurePattern string

const (
	PatternClauseBased StructurePattern = "clause_based"
	PatternTitleBased  StructurePattern = "title_based"
	PatternQandA       StructurePattern = "qanda"
	PatternNumbered    StructurePattern = "numbered"
	PatternSemantic    StructurePattern = "semantic"
)

// IsValid checks whether the pattern is a known value
func (p StructurePattern) IsValid() bool {
	switch p {
	case PatternClauseBased, PatternTitleBased, PatternQandA, PatternNumbered, PatternSemantic:
		return true
	default:
		return false
	}
}

// StructureSignal is the detection verdict for one document. Created once by
// the structure detector and read-only afterwards.
type StructureSignal struct {
	Pattern       StructurePattern
	Confidence    float64
	EvidenceCount int
}
