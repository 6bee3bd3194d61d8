// Package extract adapts document conversion into the pipeline's element
// model. Raw text extraction itself is delegated to docconv (pdftotext and
// friends); this package only segments and classifies the converted text.
package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"code.sajari.com/docconv"

	"github.com/cloo-solutions/docpipe/internal/detect"
	"github.com/cloo-solutions/docpipe/internal/domain"
)

// maxTitleLength is the longest block still considered a heading candidate.
const maxTitleLength = 80

var bulletRe = regexp.MustCompile(`^\s*[-*•·]\s+`)

// Extractor converts a source file into ordered document elements.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract converts the file at path and segments the text into elements in
// reading order. Page numbers follow the form-feed page breaks emitted by
// the PDF converter. Unreadable or unsupported input yields an extraction
// error.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.DocumentElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := docconv.ConvertPath(path)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExtraction, "failed to convert "+path, err)
	}
	if res == nil || strings.TrimSpace(res.Body) == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExtraction, "no text extracted from "+path, domain.ErrEmptyDocument)
	}

	return SegmentText(res.Body), nil
}

// SegmentText splits converted text into typed elements. Blocks are
// separated by blank lines; form feeds advance the page counter.
func SegmentText(body string) []domain.DocumentElement {
	var elements []domain.DocumentElement
	page := 1
	order := 0

	for _, pageText := range strings.Split(body, "\f") {
		for _, block := range splitBlocks(pageText) {
			elements = append(elements, domain.DocumentElement{
				Text:       block,
				Type:       classifyBlock(block),
				PageNumber: page,
				OrderIndex: order,
			})
			order++
		}
		page++
	}

	return elements
}

func splitBlocks(text string) []string {
	var blocks []string
	for _, raw := range strings.Split(text, "\n\n") {
		block := strings.TrimSpace(raw)
		if block == "" {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// classifyBlock assigns an element type from surface features of the block.
// The heuristics deliberately favor NarrativeText: a mistyped narrative
// block chunks fine, a mistyped title can split a section in half.
func classifyBlock(block string) domain.ElementType {
	if looksTabular(block) {
		return domain.ElementTypeTable
	}
	if bulletRe.MatchString(block) || (detect.HasNumberedMarker(block) && utf8.RuneCountInString(block) <= 200) || detect.HasSubItemMarker(block) {
		return domain.ElementTypeListItem
	}
	if looksLikeTitle(block) {
		return domain.ElementTypeTitle
	}
	return domain.ElementTypeNarrativeText
}

func looksTabular(block string) bool {
	tabs := strings.Count(block, "\t")
	pipes := strings.Count(block, "|")
	return tabs >= 2 || pipes >= 2
}

func looksLikeTitle(block string) bool {
	if strings.Contains(block, "\n") {
		return false
	}
	if utf8.RuneCountInString(block) > maxTitleLength {
		return false
	}

	trimmed := strings.TrimSpace(block)
	if trimmed == "" {
		return false
	}

	// Clause headings are titles even with trailing punctuation.
	if detect.HasClauseMarker(trimmed) && utf8.RuneCountInString(trimmed) <= maxTitleLength {
		return true
	}

	last, _ := utf8.DecodeLastRuneInString(trimmed)
	if last == '.' || last == '?' || last == '!' || last == ',' || last == ';' || last == '。' {
		return false
	}

	// A short line starting with an uppercase letter or a CJK character
	// reads as a heading.
	first, _ := utf8.DecodeRuneInString(trimmed)
	return unicode.IsUpper(first) || unicode.Is(unicode.Hangul, first) || unicode.Is(unicode.Han, first)
}
