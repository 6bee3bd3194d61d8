// Package enrich derives best-effort chunk metadata (keywords, category)
// through a text-completion collaborator. Chunk text is authoritative:
// enrichment failures degrade to empty metadata instead of failing the
// document.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

const (
	keywordMaxTokens  = 128
	categoryMaxTokens = 32

	// promptTextLimit caps how much chunk text travels in a prompt; the
	// head of a chunk carries enough signal for keywords and category.
	promptTextLimit = 4000
)

// CompletionClient runs one deterministic text completion.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Config holds the externally-configured enrichment policy.
type Config struct {
	// Categories is the fixed category list; classification must return one
	// of these values or it is treated as a failure.
	Categories []string
	// KeywordLimit caps the number of extracted keywords.
	KeywordLimit int
}

// Enricher attaches keywords and a category to finalized chunks.
type Enricher struct {
	client CompletionClient
	cfg    Config
}

// NewEnricher creates an Enricher.
func NewEnricher(client CompletionClient, cfg Config) *Enricher {
	if cfg.KeywordLimit <= 0 {
		cfg.KeywordLimit = 5
	}
	return &Enricher{client: client, cfg: cfg}
}

// Enrich builds the metadata for one chunk. The returned warnings record
// degraded fields; the only error returned is context cancellation, since
// metadata is never worth failing a document over.
func (e *Enricher) Enrich(ctx context.Context, documentID string, chunkIndex int, text string) (domain.ChunkMetadata, []domain.Warning, error) {
	meta := domain.ChunkMetadata{
		Keywords:   []string{},
		ChunkIndex: chunkIndex,
		DocumentID: documentID,
	}

	var warnings []domain.Warning

	keywords, err := e.extractKeywords(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return meta, nil, ctx.Err()
		}
		warnings = append(warnings, domain.Warning{
			Code:       domain.WarnKeywordsUnavailable,
			Message:    fmt.Sprintf("keyword extraction failed: %v", err),
			ChunkIndex: chunkIndex,
		})
	} else {
		meta.Keywords = keywords
	}

	category, err := e.classify(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return meta, nil, ctx.Err()
		}
		warnings = append(warnings, domain.Warning{
			Code:       domain.WarnCategoryMismatch,
			Message:    fmt.Sprintf("category classification failed: %v", err),
			ChunkIndex: chunkIndex,
		})
	} else {
		meta.Category = category
	}

	return meta, warnings, nil
}

func (e *Enricher) extractKeywords(ctx context.Context, text string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Extract at most %d keywords that best describe the following text. "+
			"Reply with the keywords only, comma separated, no numbering and no other text.\n\nText:\n%s",
		e.cfg.KeywordLimit, clipText(text),
	)

	raw, err := e.client.Complete(ctx, prompt, keywordMaxTokens)
	if err != nil {
		return nil, err
	}

	keywords := parseKeywords(raw, e.cfg.KeywordLimit)
	if len(keywords) == 0 {
		return nil, domain.ErrKeywordsUnavailable
	}
	return keywords, nil
}

// classify asks for exactly one category from the configured list. Any
// answer outside the list is a classification failure, never coerced.
func (e *Enricher) classify(ctx context.Context, text string) (string, error) {
	if len(e.cfg.Categories) == 0 {
		return "", domain.ErrClassificationMismatch
	}

	prompt := fmt.Sprintf(
		"Classify the following text into exactly one of these categories: %s. "+
			"Reply with the category name only.\n\nText:\n%s",
		strings.Join(e.cfg.Categories, ", "), clipText(text),
	)

	raw, err := e.client.Complete(ctx, prompt, categoryMaxTokens)
	if err != nil {
		return "", err
	}

	answer := strings.Trim(strings.TrimSpace(raw), `"'.`)
	for _, category := range e.cfg.Categories {
		if strings.EqualFold(answer, category) {
			return category, nil
		}
	}

	return "", fmt.Errorf("%w: got %q", domain.ErrClassificationMismatch, answer)
}

func parseKeywords(raw string, limit int) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})

	seen := make(map[string]bool, len(fields))
	keywords := make([]string, 0, limit)
	for _, field := range fields {
		keyword := strings.Trim(strings.TrimSpace(field), `"'`)
		if keyword == "" {
			continue
		}
		lower := strings.ToLower(keyword)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		keywords = append(keywords, keyword)
		if len(keywords) >= limit {
			break
		}
	}
	return keywords
}

func clipText(text string) string {
	runes := []rune(text)
	if len(runes) <= promptTextLimit {
		return text
	}
	return string(runes[:promptTextLimit])
}
