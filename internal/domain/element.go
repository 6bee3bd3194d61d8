package domain

import "strings"

// ElementType classifies a unit of extracted document content.
type ElementType string

const (
	ElementTypeTitle         ElementType = "title"
	ElementTypeNarrativeText ElementType = "narrative_text"
	ElementTypeListItem      ElementType = "list_item"
	ElementTypeTable         ElementType = "table"
	ElementTypeOther         ElementType = "other"
)

// IsValid checks whether the element type is a known value
func (t ElementType) IsValid() bool {
	switch t {
	case ElementTypeTitle, ElementTypeNarrativeText, ElementTypeListItem, ElementTypeTable, ElementTypeOther:
		return true
	default:
		return false
	}
}

// DocumentElement is one unit of extracted content in canonical reading
// order. Elements are immutable once produced by the extractor; OrderIndex
// is the document's reading order and must never be altered downstream.
type DocumentElement struct {
	Text       string
	Type       ElementType
	PageNumber int
	OrderIndex int
}

// Document holds the extracted elements for a single source document.
type Document struct {
	ID       string
	Source   string
	Elements []DocumentElement
}

// JoinedText returns the document's full text: element texts joined by a
// single newline. Chunk char spans are byte offsets into this string.
func (d *Document) JoinedText() string {
	texts := make([]string, len(d.Elements))
	for i, el := range d.Elements {
		texts[i] = el.Text
	}
	return strings.Join(texts, "\n")
}

// ElementOffsets returns the byte offset of each element's text within
// JoinedText. The returned slice has one entry per element.
func (d *Document) ElementOffsets() []int {
	offsets := make([]int, len(d.Elements))
	pos := 0
	for i, el := range d.Elements {
		offsets[i] = pos
		pos += len(el.Text) + 1 // joining newline
	}
	return offsets
}

// NonEmptyCount returns the number of elements with non-blank text.
func (d *Document) NonEmptyCount() int {
	n := 0
	for _, el := range d.Elements {
		if strings.TrimSpace(el.Text) != "" {
			n++
		}
	}
	return n
}
