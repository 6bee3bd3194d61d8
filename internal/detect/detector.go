// Package detect classifies a document's dominant organizational pattern
// from its extracted elements.
package detect

import (
	"strings"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// Thresholds tune the marker-density checks. The exact values are corpus
// dependent, so they are configuration rather than constants.
type Thresholds struct {
	// ClauseFraction is the minimum fraction of elements carrying a clause
	// marker for a ClauseBased verdict.
	ClauseFraction float64
	// TitleFraction is the minimum fraction of Title-typed elements for a
	// TitleBased verdict.
	TitleFraction float64
	// QAMinPairs is the minimum number of question/answer pairs for a QandA
	// verdict.
	QAMinPairs int
	// NumberedFraction is the minimum fraction of elements carrying a
	// top-level numbered marker for a Numbered verdict.
	NumberedFraction float64
}

// DefaultThresholds provides defaults tuned on mixed legal and manual-style
// documents.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ClauseFraction:   0.15,
		TitleFraction:    0.25,
		QAMinPairs:       3,
		NumberedFraction: 0.30,
	}
}

// Detector inspects extracted elements and classifies the document's
// structure. Detection is deterministic: the same element sequence always
// yields the same signal.
type Detector struct {
	thresholds Thresholds
}

// NewDetector creates a Detector. Zero-valued threshold fields fall back to
// the defaults.
func NewDetector(thresholds Thresholds) *Detector {
	defaults := DefaultThresholds()
	if thresholds.ClauseFraction <= 0 {
		thresholds.ClauseFraction = defaults.ClauseFraction
	}
	if thresholds.TitleFraction <= 0 {
		thresholds.TitleFraction = defaults.TitleFraction
	}
	if thresholds.QAMinPairs <= 0 {
		thresholds.QAMinPairs = defaults.QAMinPairs
	}
	if thresholds.NumberedFraction <= 0 {
		thresholds.NumberedFraction = defaults.NumberedFraction
	}
	return &Detector{thresholds: thresholds}
}

// Detect returns the structure signal for the given elements. Checks run in
// fixed priority order: clause markers, title density, Q&A pairs, numbered
// markers, then the semantic fallback. Earlier patterns are stronger
// structural cues and win even at lower confidence; numbered detection is
// last before the fallback because stray page numbers make it the most
// false-positive prone.
func (d *Detector) Detect(elements []domain.DocumentElement) domain.StructureSignal {
	total := 0
	clauseCount := 0
	titleCount := 0
	numberedCount := 0
	qaPairs := 0

	prevQuestion := false
	for _, el := range elements {
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		total++

		if HasClauseMarker(text) {
			clauseCount++
		}
		if el.Type == domain.ElementTypeTitle {
			titleCount++
		}
		if HasNumberedMarker(text) {
			numberedCount++
		}

		// A question lead followed by an answer-like element counts as one
		// Q&A pair. An explicit answer prefix (A., 답변) marks the element as
		// an answer even when its own text ends interrogatively.
		if prevQuestion && (IsAnswerLead(text) || !IsQuestionLead(text)) {
			qaPairs++
			prevQuestion = false
		} else {
			prevQuestion = IsQuestionLead(text)
		}
	}

	if total == 0 {
		return domain.StructureSignal{Pattern: domain.PatternSemantic, Confidence: 1.0}
	}

	if frac := float64(clauseCount) / float64(total); frac >= d.thresholds.ClauseFraction {
		return domain.StructureSignal{
			Pattern:       domain.PatternClauseBased,
			Confidence:    frac,
			EvidenceCount: clauseCount,
		}
	}

	if frac := float64(titleCount) / float64(total); frac >= d.thresholds.TitleFraction {
		return domain.StructureSignal{
			Pattern:       domain.PatternTitleBased,
			Confidence:    frac,
			EvidenceCount: titleCount,
		}
	}

	if qaPairs >= d.thresholds.QAMinPairs {
		frac := float64(qaPairs*2) / float64(total)
		if frac > 1.0 {
			frac = 1.0
		}
		return domain.StructureSignal{
			Pattern:       domain.PatternQandA,
			Confidence:    frac,
			EvidenceCount: qaPairs,
		}
	}

	if frac := float64(numberedCount) / float64(total); frac >= d.thresholds.NumberedFraction {
		return domain.StructureSignal{
			Pattern:       domain.PatternNumbered,
			Confidence:    frac,
			EvidenceCount: numberedCount,
		}
	}

	return domain.StructureSignal{Pattern: domain.PatternSemantic, Confidence: 1.0}
}
