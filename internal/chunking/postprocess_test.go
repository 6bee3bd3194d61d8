package chunking

import (
	"strings"
	"testing"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runeCounter is a deterministic stand-in for the model tokenizer: one rune
// per token. Keeps normalizer tests independent of tokenizer data files.
type runeCounter struct{}

func (runeCounter) Count(text string) int {
	return len([]rune(text))
}

func (runeCounter) Fits(text string, maxTokens int) bool {
	return runeCounter{}.Count(text) <= maxTokens
}

func (runeCounter) Truncate(text string, maxTokens int) string {
	runes := []rune(text)
	if len(runes) <= maxTokens {
		return text
	}
	return string(runes[:maxTokens])
}

func normalizeDoc(t *testing.T, doc *domain.Document, cfg Config, strategy Strategy) ([]domain.Chunk, []domain.Warning) {
	t.Helper()
	chunks := strategy.Chunk(doc)
	require.NotEmpty(t, chunks)

	normalized, warnings, err := NewNormalizer(runeCounter{}, cfg).Normalize(doc, chunks)
	require.NoError(t, err)
	return normalized, warnings
}

func TestNormalizeMergesUndersizedForward(t *testing.T) {
	// A 10-char chunk with MIN_CHUNK_SIZE=30 merges into the following
	// chunk, not the preceding one.
	doc := makeDoc(
		domain.DocumentElement{Text: "Tiny head.", Type: domain.ElementTypeTitle},
		domain.DocumentElement{Text: "A following chunk that is comfortably long enough to stand alone.", Type: domain.ElementTypeTitle},
	)

	cfg := Config{MaxChunkSize: 500, MinChunkSize: 30, Overlap: 0, MaxEmbeddingTokens: 8000}
	normalized, _ := normalizeDoc(t, doc, cfg, &TitleStrategy{})

	require.Len(t, normalized, 1)
	assert.True(t, strings.HasPrefix(normalized[0].Text, "Tiny head."))
	assert.NoError(t, ValidateSpans(doc.JoinedText(), normalized, false))
}

func TestNormalizeKeepsUndersizedLastChunk(t *testing.T) {
	doc := makeDoc(
		domain.DocumentElement{Text: "A first chunk that is comfortably long enough to stand on its own.", Type: domain.ElementTypeTitle},
		domain.DocumentElement{Text: "Tiny tail.", Type: domain.ElementTypeTitle},
	)

	cfg := Config{MaxChunkSize: 500, MinChunkSize: 30, Overlap: 0, MaxEmbeddingTokens: 8000}
	normalized, warnings := normalizeDoc(t, doc, cfg, &TitleStrategy{})

	require.Len(t, normalized, 2, "an undersized final chunk is kept, never dropped")
	assert.Equal(t, domain.SizeClassUndersized, normalized[1].SizeClass)

	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarnUndersizedLastChunk, warnings[0].Code)
	assert.Equal(t, 1, warnings[0].ChunkIndex)
}

func TestNormalizeSplitsOverTokenCeiling(t *testing.T) {
	// 9000 "tokens" (runes) against a ceiling of 8000: at least two chunks,
	// each within the ceiling, spans contiguous.
	sentence := "This sentence pads the chunk with useful characters. "
	text := strings.Repeat(sentence, 9000/len(sentence)+1)[:9000]
	doc := makeDoc(domain.DocumentElement{Text: text})

	cfg := Config{MaxChunkSize: 20000, MinChunkSize: 10, Overlap: 0, MaxEmbeddingTokens: 8000}
	chunks := []domain.Chunk{{
		Text:           doc.JoinedText(),
		Span:           domain.CharSpan{Start: 0, End: len(doc.JoinedText())},
		SourceElements: []int{0},
	}}

	normalized, warnings, err := NewNormalizer(runeCounter{}, cfg).Normalize(doc, chunks)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(normalized), 2)
	for i, c := range normalized {
		assert.LessOrEqual(t, c.TokenCount, 8000, "chunk %d exceeds the ceiling", i)
	}
	assert.NoError(t, ValidateSpans(doc.JoinedText(), normalized, false))
	assert.Empty(t, warnings, "sentence boundaries exist, no hard cut expected")
}

func TestNormalizeHardCutWhenNoBoundary(t *testing.T) {
	// One unbroken run with no sentence boundaries under the ceiling forces
	// a flagged character cut.
	text := strings.Repeat("a", 900)
	doc := makeDoc(domain.DocumentElement{Text: text})

	cfg := Config{MaxChunkSize: 2000, MinChunkSize: 10, Overlap: 0, MaxEmbeddingTokens: 400}
	chunks := []domain.Chunk{{
		Text:           text,
		Span:           domain.CharSpan{Start: 0, End: len(text)},
		SourceElements: []int{0},
	}}

	normalized, warnings, err := NewNormalizer(runeCounter{}, cfg).Normalize(doc, chunks)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(normalized), 3)
	for _, c := range normalized {
		assert.LessOrEqual(t, c.TokenCount, 400)
	}
	assert.NoError(t, ValidateSpans(doc.JoinedText(), normalized, false))

	hardCuts := 0
	for _, w := range warnings {
		if w.Code == domain.WarnHardCut {
			hardCuts++
		}
	}
	assert.GreaterOrEqual(t, hardCuts, 2)
}

func TestNormalizeRecomputesSizeClasses(t *testing.T) {
	doc := makeDoc(
		domain.DocumentElement{Text: strings.Repeat("normal sized content here. ", 10)},
	)

	cfg := Config{MaxChunkSize: 1000, MinChunkSize: 50, Overlap: 0, MaxEmbeddingTokens: 8000}
	normalized, _ := normalizeDoc(t, doc, cfg, NewSemanticStrategy(cfg))

	for _, c := range normalized {
		assert.Equal(t, domain.SizeClassNormal, c.SizeClass)
		assert.Greater(t, c.TokenCount, 0)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	doc := makeDoc(domain.DocumentElement{Text: "whatever"})
	normalized, warnings, err := NewNormalizer(runeCounter{}, DefaultConfig()).Normalize(doc, nil)

	assert.NoError(t, err)
	assert.Nil(t, normalized)
	assert.Nil(t, warnings)
}

func TestSentenceBoundaries(t *testing.T) {
	text := "First. Second! Third? Fourth\nFifth"
	bounds := sentenceBoundaries(text)

	for _, b := range bounds {
		assert.Greater(t, b, 0)
		assert.Less(t, b, len(text))
	}
	// Boundaries land after terminator+space and after newlines.
	assert.Contains(t, bounds, len("First. "))
	assert.Contains(t, bounds, len("First. Second! "))
	assert.Contains(t, bounds, len("First. Second! Third? "))
	assert.Contains(t, bounds, len("First. Second! Third? Fourth\n"))
}

func TestValidateSpans(t *testing.T) {
	text := "abcdef"

	good := []domain.Chunk{
		{Text: "abc", Span: domain.CharSpan{Start: 0, End: 3}},
		{Text: "def", Span: domain.CharSpan{Start: 3, End: 6}},
	}
	assert.NoError(t, ValidateSpans(text, good, false))

	gap := []domain.Chunk{
		{Text: "abc", Span: domain.CharSpan{Start: 0, End: 3}},
		{Text: "ef", Span: domain.CharSpan{Start: 4, End: 6}},
	}
	assert.Error(t, ValidateSpans(text, gap, false))

	overlap := []domain.Chunk{
		{Text: "abcd", Span: domain.CharSpan{Start: 0, End: 4}},
		{Text: "cdef", Span: domain.CharSpan{Start: 2, End: 6}},
	}
	assert.Error(t, ValidateSpans(text, overlap, false))
	assert.NoError(t, ValidateSpans(text, overlap, true))

	mismatch := []domain.Chunk{
		{Text: "zzz", Span: domain.CharSpan{Start: 0, End: 3}},
		{Text: "def", Span: domain.CharSpan{Start: 3, End: 6}},
	}
	assert.Error(t, ValidateSpans(text, mismatch, false))
}
