// Package token wraps the embedding model's tokenizer for counting and
// truncating text against a token budget.
package token

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/cloo-solutions/docpipe/internal/domain"
)

// DefaultModel is the embedding model whose tokenizer is used unless
// configured otherwise.
const DefaultModel = "text-embedding-3-small"

// Counter counts and truncates text under a model tokenizer. Both
// operations are deterministic and side-effect-free.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter loads the tokenizer for the given model. Failure to load the
// encoding is batch-fatal: the pipeline must not fall back to character
// approximations for embedding-bound text.
func NewCounter(model string) (*Counter, error) {
	if model == "" {
		model = DefaultModel
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeTokenizerUnavailable,
			"failed to load tokenizer for model "+model,
			err,
		)
	}

	return &Counter{encoding: encoding}, nil
}

// Count returns the token count of text under the configured tokenizer.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Fits reports whether text stays within maxTokens.
func (c *Counter) Fits(text string, maxTokens int) bool {
	return c.Count(text) <= maxTokens
}

// Truncate returns the longest tokenizer-aligned prefix of text whose token
// count is at most maxTokens. The cut always falls on a token boundary,
// never inside a multi-byte token.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}

	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}

	return c.encoding.Decode(tokens[:maxTokens])
}
