package detect

import (
	"regexp"
	"strings"
)

// Marker patterns shared by the detector and the chunking strategies.
// Clause markers cover Korean statute numbering (제N조, 제N장, 제N절) and the
// western equivalents (Article N, Section N, §N). Numbered markers are
// restricted to short top-level forms so page numbers and years do not
// register as list structure.
var (
	clauseMarkerRe   = regexp.MustCompile(`^\s*(제\s*[0-9０-９]+\s*(조|장|절)|(?i:article|section)\s+\d+|§\s*\d+)`)
	questionLeadRe   = regexp.MustCompile(`^\s*((?i:q)\s*\d*\s*[.:)\]]|질문\s*\d*\s*[.:)]?\s|문\s*\d+\s*[.)])`)
	answerLeadRe     = regexp.MustCompile(`^\s*((?i:a)\s*\d*\s*[.:)\]]|답변?\s*\d*\s*[.:)]?\s)`)
	numberedMarkerRe = regexp.MustCompile(`^\s*\d{1,3}[.)]\s+`)
	subItemMarkerRe  = regexp.MustCompile(`^\s*(\(?[a-z][.)]\s|\([a-z]\)|\(?[가-힣]\)|[①-⑮㉮-㉻])\s*`)
)

// HasClauseMarker reports whether text opens with a clause or article
// marker.
func HasClauseMarker(text string) bool {
	return clauseMarkerRe.MatchString(text)
}

// IsQuestionLead reports whether text reads as the start of a question:
// either an explicit question prefix (Q., Q1:, 질문) or an interrogative
// ending.
func IsQuestionLead(text string) bool {
	if questionLeadRe.MatchString(text) {
		return true
	}
	trimmed := strings.TrimSpace(text)
	return strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "까?")
}

// IsAnswerLead reports whether text opens with an explicit answer prefix.
func IsAnswerLead(text string) bool {
	return answerLeadRe.MatchString(text)
}

// HasNumberedMarker reports whether text opens with a top-level numbered
// list marker (1., 2), ...).
func HasNumberedMarker(text string) bool {
	return numberedMarkerRe.MatchString(text)
}

// HasSubItemMarker reports whether text opens with a lettered or circled
// sub-item marker that nests under a numbered parent.
func HasSubItemMarker(text string) bool {
	return subItemMarkerRe.MatchString(text)
}
